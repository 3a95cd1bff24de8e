package classfile

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Encode serializes cf back into .class bytes. It does not attempt to
// reproduce the exact byte layout of whatever file cf was parsed from
// (constant pool entries it doesn't interpret, like MethodHandle or
// InvokeDynamic, are re-emitted with zeroed payloads since their real
// content was already discarded at parse time) — only that re-parsing
// the result yields a ClassFile equal in every field this core actually
// reads.
func Encode(cf *ClassFile) ([]byte, error) {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.BigEndian, uint32(classMagic))
	binary.Write(buf, binary.BigEndian, cf.MinorVersion)
	binary.Write(buf, binary.BigEndian, cf.MajorVersion)

	binary.Write(buf, binary.BigEndian, uint16(len(cf.ConstantPool)))
	if err := encodeConstantPool(buf, cf.ConstantPool); err != nil {
		return nil, errors.Wrap(err, "encoding constant pool")
	}

	binary.Write(buf, binary.BigEndian, cf.AccessFlags)
	binary.Write(buf, binary.BigEndian, cf.ThisClass)
	binary.Write(buf, binary.BigEndian, cf.SuperClass)

	binary.Write(buf, binary.BigEndian, uint16(len(cf.Interfaces)))
	for _, idx := range cf.Interfaces {
		binary.Write(buf, binary.BigEndian, idx)
	}

	binary.Write(buf, binary.BigEndian, uint16(len(cf.Fields)))
	for i := range cf.Fields {
		if err := encodeFieldOrMethod(buf, cf.ConstantPool, cf.Fields[i].AccessFlags,
			cf.Fields[i].Name, cf.Fields[i].Descriptor, cf.Fields[i].Attributes); err != nil {
			return nil, errors.Wrapf(err, "encoding field %d", i)
		}
	}

	binary.Write(buf, binary.BigEndian, uint16(len(cf.Methods)))
	for i := range cf.Methods {
		if err := encodeFieldOrMethod(buf, cf.ConstantPool, cf.Methods[i].AccessFlags,
			cf.Methods[i].Name, cf.Methods[i].Descriptor, cf.Methods[i].Attributes); err != nil {
			return nil, errors.Wrapf(err, "encoding method %d", i)
		}
	}

	classAttrs, err := classAttributes(cf)
	if err != nil {
		return nil, errors.Wrap(err, "building class attributes")
	}
	binary.Write(buf, binary.BigEndian, uint16(len(classAttrs)))
	for _, attr := range classAttrs {
		if err := encodeAttribute(buf, cf.ConstantPool, attr); err != nil {
			return nil, errors.Wrap(err, "encoding class attribute")
		}
	}

	return buf.Bytes(), nil
}

// classAttributes rebuilds the class-level attribute list from the
// fields ClassFile keeps resolved (only SourceFile survives parsing
// today; everything else this core doesn't interpret is dropped at
// decode time, so it has nothing to re-emit here either).
func classAttributes(cf *ClassFile) ([]AttributeInfo, error) {
	if cf.SourceFile == "" {
		return nil, nil
	}
	idx, err := utf8Index(cf.ConstantPool, cf.SourceFile)
	if err != nil {
		return nil, errors.Wrap(err, "resolving SourceFile constant")
	}
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, idx)
	return []AttributeInfo{{Name: "SourceFile", Data: data}}, nil
}

func encodeFieldOrMethod(buf *bytes.Buffer, pool []ConstantPoolEntry, accessFlags uint16, name, descriptor string, attrs []AttributeInfo) error {
	nameIdx, err := utf8Index(pool, name)
	if err != nil {
		return errors.Wrapf(err, "resolving name %q", name)
	}
	descIdx, err := utf8Index(pool, descriptor)
	if err != nil {
		return errors.Wrapf(err, "resolving descriptor %q", descriptor)
	}
	binary.Write(buf, binary.BigEndian, accessFlags)
	binary.Write(buf, binary.BigEndian, nameIdx)
	binary.Write(buf, binary.BigEndian, descIdx)
	binary.Write(buf, binary.BigEndian, uint16(len(attrs)))
	for _, attr := range attrs {
		if err := encodeAttribute(buf, pool, attr); err != nil {
			return err
		}
	}
	return nil
}

func encodeAttribute(buf *bytes.Buffer, pool []ConstantPoolEntry, attr AttributeInfo) error {
	nameIdx, err := utf8Index(pool, attr.Name)
	if err != nil {
		return errors.Wrapf(err, "resolving attribute name %q", attr.Name)
	}
	binary.Write(buf, binary.BigEndian, nameIdx)
	binary.Write(buf, binary.BigEndian, uint32(len(attr.Data)))
	buf.Write(attr.Data)
	return nil
}

// utf8Index finds the constant pool index of a Utf8 entry equal to s.
// Decoding always produced Name/Descriptor strings this way in reverse,
// so the matching entry is guaranteed to exist for anything that came
// out of Parse.
func utf8Index(pool []ConstantPoolEntry, s string) (uint16, error) {
	for i, e := range pool {
		if u, ok := e.(*ConstantUtf8); ok && u.Value == s {
			return uint16(i), nil
		}
	}
	return 0, errors.Errorf("no Utf8 constant pool entry for %q", s)
}

func encodeConstantPool(buf *bytes.Buffer, pool []ConstantPoolEntry) error {
	for i := 1; i < len(pool); i++ {
		entry := pool[i]
		if entry == nil {
			continue // second slot of a preceding Long/Double
		}
		buf.WriteByte(entry.Tag())
		switch e := entry.(type) {
		case *ConstantUtf8:
			raw := []byte(e.Value)
			binary.Write(buf, binary.BigEndian, uint16(len(raw)))
			buf.Write(raw)
		case *ConstantInteger:
			binary.Write(buf, binary.BigEndian, e.Value)
		case *ConstantFloat:
			binary.Write(buf, binary.BigEndian, math.Float32bits(e.Value))
		case *ConstantLong:
			binary.Write(buf, binary.BigEndian, e.Value)
		case *ConstantDouble:
			binary.Write(buf, binary.BigEndian, math.Float64bits(e.Value))
		case *ConstantClass:
			binary.Write(buf, binary.BigEndian, e.NameIndex)
		case *ConstantString:
			binary.Write(buf, binary.BigEndian, e.StringIndex)
		case *ConstantFieldref:
			binary.Write(buf, binary.BigEndian, e.ClassIndex)
			binary.Write(buf, binary.BigEndian, e.NameAndTypeIndex)
		case *ConstantMethodref:
			binary.Write(buf, binary.BigEndian, e.ClassIndex)
			binary.Write(buf, binary.BigEndian, e.NameAndTypeIndex)
		case *ConstantInterfaceMethodref:
			binary.Write(buf, binary.BigEndian, e.ClassIndex)
			binary.Write(buf, binary.BigEndian, e.NameAndTypeIndex)
		case *ConstantNameAndType:
			binary.Write(buf, binary.BigEndian, e.NameIndex)
			binary.Write(buf, binary.BigEndian, e.DescriptorIndex)
		case *constantPlaceholder:
			payload := placeholderPayloadSize(e.tag)
			buf.Write(make([]byte, payload))
		default:
			return errors.Errorf("unknown constant pool entry type at index %d", i)
		}
	}
	return nil
}

func placeholderPayloadSize(tag uint8) int {
	switch tag {
	case TagMethodHandle:
		return 3
	case TagMethodType:
		return 2
	case TagDynamic, TagInvokeDynamic:
		return 4
	default:
		return 0
	}
}
