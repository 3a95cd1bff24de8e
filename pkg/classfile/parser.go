package classfile

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

const classMagic = 0xCAFEBABE

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a .class file from r in the JVM spec's field order.
func Parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "reading magic number")
	}
	if magic != classMagic {
		return nil, errors.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	if err := binary.Read(r, binary.BigEndian, &cf.MinorVersion); err != nil {
		return nil, errors.Wrap(err, "reading minor version")
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MajorVersion); err != nil {
		return nil, errors.Wrap(err, "reading major version")
	}

	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, errors.Wrap(err, "reading constant pool count")
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, errors.Wrap(err, "parsing constant pool")
	}
	cf.ConstantPool = pool

	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, errors.Wrap(err, "reading access flags")
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, errors.Wrap(err, "reading this_class")
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, errors.Wrap(err, "reading super_class")
	}

	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, errors.Wrap(err, "reading interfaces count")
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := uint16(0); i < interfacesCount; i++ {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, errors.Wrapf(err, "reading interface %d", i)
		}
	}

	var fieldsCount uint16
	if err := binary.Read(r, binary.BigEndian, &fieldsCount); err != nil {
		return nil, errors.Wrap(err, "reading fields count")
	}
	cf.Fields, err = parseFields(r, cf.ConstantPool, fieldsCount)
	if err != nil {
		return nil, errors.Wrap(err, "parsing fields")
	}

	var methodsCount uint16
	if err := binary.Read(r, binary.BigEndian, &methodsCount); err != nil {
		return nil, errors.Wrap(err, "reading methods count")
	}
	cf.Methods, err = parseMethods(r, cf.ConstantPool, methodsCount)
	if err != nil {
		return nil, errors.Wrap(err, "parsing methods")
	}

	if err := cf.parseClassAttributes(r); err != nil {
		return nil, errors.Wrap(err, "parsing class attributes")
	}

	return cf, nil
}

func parseFields(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]FieldInfo, error) {
	fields := make([]FieldInfo, count)
	for i := uint16(0); i < count; i++ {
		var accessFlags, nameIndex, descIndex, attrCount uint16
		if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
			return nil, errors.Wrapf(err, "reading field %d access flags", i)
		}
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, errors.Wrapf(err, "reading field %d name index", i)
		}
		if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
			return nil, errors.Wrapf(err, "reading field %d descriptor index", i)
		}
		if err := binary.Read(r, binary.BigEndian, &attrCount); err != nil {
			return nil, errors.Wrapf(err, "reading field %d attributes count", i)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving field %d name", i)
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving field %d descriptor", i)
		}

		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing field %d attributes", i)
		}

		field := FieldInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
		for _, attr := range attrs {
			if attr.Name == "ConstantValue" && len(attr.Data) == 2 {
				idx := binary.BigEndian.Uint16(attr.Data)
				val, err := ResolveLoadableConstant(pool, idx)
				if err != nil {
					return nil, errors.Wrapf(err, "resolving ConstantValue for field %s", name)
				}
				field.ConstantValue = val
			}
		}
		fields[i] = field
	}
	return fields, nil
}

func parseMethods(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]MethodInfo, error) {
	methods := make([]MethodInfo, count)
	for i := uint16(0); i < count; i++ {
		var accessFlags, nameIndex, descIndex, attrCount uint16
		if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
			return nil, errors.Wrapf(err, "reading method %d access flags", i)
		}
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, errors.Wrapf(err, "reading method %d name index", i)
		}
		if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
			return nil, errors.Wrapf(err, "reading method %d descriptor index", i)
		}
		if err := binary.Read(r, binary.BigEndian, &attrCount); err != nil {
			return nil, errors.Wrapf(err, "reading method %d attributes count", i)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving method %d name", i)
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving method %d descriptor", i)
		}

		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing method %d attributes", i)
		}

		m := MethodInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
		for _, attr := range attrs {
			if attr.Name == "Code" {
				code, err := parseCodeAttribute(pool, attr.Data)
				if err != nil {
					return nil, errors.Wrapf(err, "parsing Code attribute for method %s", name)
				}
				m.Code = code
				break
			}
		}
		methods[i] = m
	}
	return methods, nil
}

func parseAttributeInfos(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := uint16(0); i < count; i++ {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d name index", i)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d length", i)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d data", i)
		}
		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving attribute %d name", i)
		}
		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, nil
}

func parseCodeAttribute(pool []ConstantPoolEntry, data []byte) (*CodeAttribute, error) {
	if len(data) < 8 {
		return nil, errors.Errorf("Code attribute too short: %d bytes", len(data))
	}

	maxStack := binary.BigEndian.Uint16(data[0:2])
	maxLocals := binary.BigEndian.Uint16(data[2:4])
	codeLength := binary.BigEndian.Uint32(data[4:8])

	if len(data) < 8+int(codeLength) {
		return nil, errors.Errorf("Code attribute data too short for code_length %d", codeLength)
	}
	code := make([]byte, codeLength)
	copy(code, data[8:8+codeLength])

	offset := 8 + int(codeLength)
	var handlers []ExceptionHandler
	if offset+2 <= len(data) {
		exTableLen := binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
		handlers = make([]ExceptionHandler, exTableLen)
		for i := uint16(0); i < exTableLen; i++ {
			if offset+8 > len(data) {
				return nil, errors.Errorf("Code attribute exception table truncated at entry %d", i)
			}
			handlers[i] = ExceptionHandler{
				StartPC:   binary.BigEndian.Uint16(data[offset : offset+2]),
				EndPC:     binary.BigEndian.Uint16(data[offset+2 : offset+4]),
				HandlerPC: binary.BigEndian.Uint16(data[offset+4 : offset+6]),
				CatchType: binary.BigEndian.Uint16(data[offset+6 : offset+8]),
			}
			offset += 8
		}
	}

	var lines []LineNumberEntry
	if offset+2 <= len(data) {
		attrCount := binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
		for i := uint16(0); i < attrCount; i++ {
			if offset+6 > len(data) {
				return nil, errors.Errorf("Code attribute sub-attributes truncated at entry %d", i)
			}
			nameIdx := binary.BigEndian.Uint16(data[offset : offset+2])
			length := binary.BigEndian.Uint32(data[offset+2 : offset+6])
			offset += 6
			if offset+int(length) > len(data) {
				return nil, errors.Errorf("Code sub-attribute %d data truncated", i)
			}
			body := data[offset : offset+int(length)]
			offset += int(length)

			name, err := GetUtf8(pool, nameIdx)
			if err != nil || name != "LineNumberTable" {
				continue
			}
			lines = append(lines, parseLineNumberTable(body)...)
		}
	}

	return &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
		LineNumbers:       lines,
	}, nil
}

func parseLineNumberTable(data []byte) []LineNumberEntry {
	if len(data) < 2 {
		return nil
	}
	count := binary.BigEndian.Uint16(data[0:2])
	entries := make([]LineNumberEntry, 0, count)
	offset := 2
	for i := uint16(0); i < count && offset+4 <= len(data); i++ {
		entries = append(entries, LineNumberEntry{
			StartPC: binary.BigEndian.Uint16(data[offset : offset+2]),
			Line:    binary.BigEndian.Uint16(data[offset+2 : offset+4]),
		})
		offset += 4
	}
	return entries
}

// parseClassAttributes reads the class-level attribute table, recording
// SourceFile and otherwise skipping what this core doesn't interpret
// (BootstrapMethods among them: invokedynamic is out of scope).
func (cf *ClassFile) parseClassAttributes(r io.Reader) error {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return errors.Wrap(err, "reading class attributes count")
	}
	for i := uint16(0); i < count; i++ {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return errors.Wrapf(err, "reading class attribute %d name index", i)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return errors.Wrapf(err, "reading class attribute %d length", i)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return errors.Wrapf(err, "reading class attribute %d data", i)
		}
		name, err := GetUtf8(cf.ConstantPool, nameIndex)
		if err != nil {
			continue
		}
		if name == "SourceFile" && len(data) == 2 {
			idx := binary.BigEndian.Uint16(data)
			if sf, err := GetUtf8(cf.ConstantPool, idx); err == nil {
				cf.SourceFile = sf
			}
		}
	}
	return nil
}

// ClassName returns the fully qualified internal name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// SuperClassName returns the internal name of the superclass, or "" for
// java/lang/Object (super_class == 0).
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return GetClassName(cf.ConstantPool, cf.SuperClass)
}

// InterfaceNames resolves every entry of the interfaces table to a name.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		name, err := GetClassName(cf.ConstantPool, idx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving interface %d", i)
		}
		names[i] = name
	}
	return names, nil
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds the first method matching name, ignoring overloads.
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}
