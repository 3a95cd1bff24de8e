package classfile

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Constant pool tags (JVM spec table 4.4-A).
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
)

// parseConstantPool reads constant_pool_count-1 entries from r. The
// returned slice is 1-indexed (index 0 is nil); Long/Double entries
// consume two slots, per the JVM spec's well-known oddity.
func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, errors.Wrapf(err, "reading constant pool tag at index %d", i)
		}

		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, errors.Wrapf(err, "reading Utf8 length at index %d", i)
			}
			raw := make([]byte, length)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, errors.Wrapf(err, "reading Utf8 bytes at index %d", i)
			}
			pool[i] = &ConstantUtf8{Value: string(raw)}

		case TagInteger:
			var val int32
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, errors.Wrapf(err, "reading Integer at index %d", i)
			}
			pool[i] = &ConstantInteger{Value: val}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, errors.Wrapf(err, "reading Float at index %d", i)
			}
			pool[i] = &ConstantFloat{Value: math.Float32frombits(bits)}

		case TagLong:
			var val int64
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, errors.Wrapf(err, "reading Long at index %d", i)
			}
			pool[i] = &ConstantLong{Value: val}
			i++ // occupies two constant pool entries

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, errors.Wrapf(err, "reading Double at index %d", i)
			}
			pool[i] = &ConstantDouble{Value: math.Float64frombits(bits)}
			i++ // occupies two constant pool entries

		case TagClass:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, errors.Wrapf(err, "reading Class at index %d", i)
			}
			pool[i] = &ConstantClass{NameIndex: nameIndex}

		case TagString:
			var stringIndex uint16
			if err := binary.Read(r, binary.BigEndian, &stringIndex); err != nil {
				return nil, errors.Wrapf(err, "reading String at index %d", i)
			}
			pool[i] = &ConstantString{StringIndex: stringIndex}

		case TagFieldref:
			var classIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &classIndex); err != nil {
				return nil, errors.Wrapf(err, "reading Fieldref class_index at index %d", i)
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, errors.Wrapf(err, "reading Fieldref name_and_type_index at index %d", i)
			}
			pool[i] = &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagMethodref:
			var classIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &classIndex); err != nil {
				return nil, errors.Wrapf(err, "reading Methodref class_index at index %d", i)
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, errors.Wrapf(err, "reading Methodref name_and_type_index at index %d", i)
			}
			pool[i] = &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagInterfaceMethodref:
			var classIndex, natIndex uint16
			if err := binary.Read(r, binary.BigEndian, &classIndex); err != nil {
				return nil, errors.Wrapf(err, "reading InterfaceMethodref class_index at index %d", i)
			}
			if err := binary.Read(r, binary.BigEndian, &natIndex); err != nil {
				return nil, errors.Wrapf(err, "reading InterfaceMethodref name_and_type_index at index %d", i)
			}
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagNameAndType:
			var nameIndex, descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, errors.Wrapf(err, "reading NameAndType name_index at index %d", i)
			}
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, errors.Wrapf(err, "reading NameAndType descriptor_index at index %d", i)
			}
			pool[i] = &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			skip := make([]byte, 3) // reference_kind (u1) + reference_index (u2)
			if _, err := io.ReadFull(r, skip); err != nil {
				return nil, errors.Wrapf(err, "reading MethodHandle at index %d", i)
			}
			pool[i] = &constantPlaceholder{tag: tag}

		case TagMethodType:
			skip := make([]byte, 2) // descriptor_index (u2)
			if _, err := io.ReadFull(r, skip); err != nil {
				return nil, errors.Wrapf(err, "reading MethodType at index %d", i)
			}
			pool[i] = &constantPlaceholder{tag: tag}

		case TagDynamic, TagInvokeDynamic:
			skip := make([]byte, 4) // bootstrap_method_attr_index (u2) + name_and_type_index (u2)
			if _, err := io.ReadFull(r, skip); err != nil {
				return nil, errors.Wrapf(err, "reading Dynamic/InvokeDynamic at index %d", i)
			}
			pool[i] = &constantPlaceholder{tag: tag}

		default:
			return nil, errors.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
	}

	return pool, nil
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return "", errors.Errorf("invalid constant pool index %d", index)
	}
	utf8, ok := pool[index].(*ConstantUtf8)
	if !ok {
		return "", errors.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, pool[index].Tag())
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	if int(classIndex) >= len(pool) || pool[classIndex] == nil {
		return "", errors.Errorf("invalid constant pool index %d", classIndex)
	}
	class, ok := pool[classIndex].(*ConstantClass)
	if !ok {
		return "", errors.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

// MethodRefInfo holds a resolved CONSTANT_Methodref/InterfaceMethodref.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
}

func resolveNameAndType(pool []ConstantPoolEntry, natIndex uint16) (name, descriptor string, err error) {
	if int(natIndex) >= len(pool) || pool[natIndex] == nil {
		return "", "", errors.Errorf("invalid NameAndType index %d", natIndex)
	}
	nat, ok := pool[natIndex].(*ConstantNameAndType)
	if !ok {
		return "", "", errors.Errorf("constant pool index %d is not NameAndType", natIndex)
	}
	name, err = GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return "", "", errors.Wrap(err, "resolving name")
	}
	descriptor, err = GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return "", "", errors.Wrap(err, "resolving descriptor")
	}
	return name, descriptor, nil
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, errors.Errorf("invalid constant pool index %d", index)
	}
	mref, ok := pool[index].(*ConstantMethodref)
	if !ok {
		return nil, errors.Errorf("constant pool index %d is not Methodref", index)
	}
	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving Methodref class")
	}
	name, desc, err := resolveNameAndType(pool, mref.NameAndTypeIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving Methodref name_and_type")
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: desc}, nil
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, errors.Errorf("invalid constant pool index %d", index)
	}
	mref, ok := pool[index].(*ConstantInterfaceMethodref)
	if !ok {
		return nil, errors.Errorf("constant pool index %d is not InterfaceMethodref", index)
	}
	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving InterfaceMethodref class")
	}
	name, desc, err := resolveNameAndType(pool, mref.NameAndTypeIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving InterfaceMethodref name_and_type")
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: desc}, nil
}

// FieldRefInfo holds a resolved CONSTANT_Fieldref.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, errors.Errorf("invalid constant pool index %d", index)
	}
	fref, ok := pool[index].(*ConstantFieldref)
	if !ok {
		return nil, errors.Errorf("constant pool index %d is not Fieldref", index)
	}
	className, err := GetClassName(pool, fref.ClassIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving Fieldref class")
	}
	name, desc, err := resolveNameAndType(pool, fref.NameAndTypeIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving Fieldref name_and_type")
	}
	return &FieldRefInfo{ClassName: className, FieldName: name, Descriptor: desc}, nil
}

// ResolveLoadableConstant returns the Go value a ldc/ldc_w/ldc2_w
// instruction would push for this pool index: int32, float32, int64,
// float64, or string. Class constants resolve to their
// name string; ldc on a live Class object is handled by the interpreter.
func ResolveLoadableConstant(pool []ConstantPoolEntry, index uint16) (interface{}, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, errors.Errorf("invalid constant pool index %d", index)
	}
	switch e := pool[index].(type) {
	case *ConstantInteger:
		return e.Value, nil
	case *ConstantFloat:
		return e.Value, nil
	case *ConstantLong:
		return e.Value, nil
	case *ConstantDouble:
		return e.Value, nil
	case *ConstantString:
		return GetUtf8(pool, e.StringIndex)
	case *ConstantClass:
		return GetClassName(pool, index)
	default:
		return nil, errors.Errorf("constant pool index %d (tag=%d) is not loadable", index, pool[index].Tag())
	}
}
