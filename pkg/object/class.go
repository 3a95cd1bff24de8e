package object

import (
	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
)

// State is the class lifecycle: a class moves forward through these
// states and never back.
type State int

const (
	Unloaded State = iota
	Loading
	Linked
	Initializing
	Initialized
)

// FieldDef is a declared field slot, static or per-instance.
type FieldDef struct {
	Name        string
	Descriptor  string
	Type        jtype.Type
	AccessFlags uint16
	IsStatic    bool
	LayoutIndex int // index into Class.StaticValues or Object.Fields
}

func (f *FieldDef) IsFinal() bool    { return f.AccessFlags&0x0010 != 0 }
func (f *FieldDef) IsPublic() bool   { return f.AccessFlags&0x0001 != 0 }

// ExceptionEntry is one row of a Code attribute's exception table:
// [start_pc, end_pc) protected by handler_pc, catching CatchType (empty
// means catch-all, for finally blocks).
type ExceptionEntry struct {
	StartPC, EndPC, HandlerPC int
	CatchType                 string
}

// LineEntry maps a bytecode offset to a source line, decoded purely for
// diagnostic stack traces.
type LineEntry struct {
	StartPC int
	Line    int
}

// CodeBody is a method's executable bytecode plus the metadata the
// interpreter needs to run it.
type CodeBody struct {
	MaxStack       int
	MaxLocals      int
	Code           []byte
	ExceptionTable []ExceptionEntry
	LineNumbers    []LineEntry
}

// NativeMethod is a host-implemented method body, bound through the
// gfunction registration protocol. It receives the resolved `this`
// (Value{} zero value for static calls) and the already type-checked
// argument list, and returns either a single result Value (Void for
// void methods) or a Java exception/host error.
type NativeMethod func(rt Runtime, this Value, args []Value) (Value, error)

// Method is a resolved method_info: either bytecode-backed or natively
// implemented, never both.
type Method struct {
	Name        string
	Descriptor  string
	Desc        *jtype.MethodDescriptor
	AccessFlags uint16
	Class       *Class
	Code        *CodeBody    // nil for native/abstract methods
	Native      NativeMethod // nil for bytecode methods
}

func (m *Method) IsStatic() bool   { return m.AccessFlags&0x0008 != 0 }
func (m *Method) IsAbstract() bool { return m.AccessFlags&0x0400 != 0 }
func (m *Method) IsNative() bool   { return m.Native != nil }

// Key is the method-table lookup key: name and descriptor together, since
// overloads share a name.
func (m *Method) Key() string { return MethodKey(m.Name, m.Descriptor) }

func MethodKey(name, descriptor string) string { return name + ":" + descriptor }

// Class is an immutable class definition once Linked: its shape (fields,
// methods, supertype chain) never changes again, only StaticValues and
// State mutate as initialization proceeds.
type Class struct {
	Name           string
	SuperName      string
	InterfaceNames []string
	AccessFlags    uint16

	Super      *Class
	Interfaces []*Class

	Fields  []*FieldDef // declared here only, not inherited
	Methods map[string]*Method

	InstanceFieldCount int // own + inherited instance field slots
	StaticValues       []Value

	// ResolutionCache is keyed by constant-pool index. NewClass allocates
	// it, but nothing reads or writes it: the interpreter resolves every
	// symbolic reference again by name each time it is used.
	ResolutionCache map[int]interface{}

	ArrayElemType *jtype.Type // non-nil only for synthesized array classes

	State State

	SourceFile string

	// RawConstantPool is the decoded .class constant pool bytecode in
	// this class's own methods indexes into (ldc, getfield, invoke*).
	// Host classes built directly by gfunction leave this nil; they
	// carry no bytecode.
	RawConstantPool []classfile.ConstantPoolEntry
}

func NewClass(name string) *Class {
	return &Class{
		Name:            name,
		Methods:         make(map[string]*Method),
		ResolutionCache: make(map[int]interface{}),
	}
}

func (c *Class) IsInterface() bool { return c.AccessFlags&0x0200 != 0 }
func (c *Class) IsAbstract() bool  { return c.AccessFlags&0x0400 != 0 }
func (c *Class) IsArray() bool     { return c.ArrayElemType != nil }

// FindMethod looks up name+descriptor in this class only (no supertype
// walk); virtual/interface dispatch walks the chain itself.
func (c *Class) FindMethod(name, descriptor string) *Method {
	return c.Methods[MethodKey(name, descriptor)]
}

// FindFieldInChain looks up name starting at this class and walking up
// the superclass chain, the way getfield/getstatic resolution does. It
// returns the class that actually declared the field, since that is
// whose StaticValues a static field's storage lives in.
func (c *Class) FindFieldInChain(name string) (owner *Class, fd *FieldDef) {
	for cur := c; cur != nil; cur = cur.Super {
		if f := cur.FindField(name); f != nil {
			return cur, f
		}
	}
	return nil, nil
}

// FindField looks up a declared-here field by name.
func (c *Class) FindField(name string) *FieldDef {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsSubclassOf walks the superclass chain.
func (c *Class) IsSubclassOf(other *Class) bool {
	for cur := c; cur != nil; cur = cur.Super {
		if cur == other {
			return true
		}
	}
	return false
}

// ImplementsInterface walks interfaces transitively (an interface's own
// superinterfaces are recorded in its Interfaces slice too).
func (c *Class) ImplementsInterface(iface *Class) bool {
	for cur := c; cur != nil; cur = cur.Super {
		for _, i := range cur.Interfaces {
			if i == iface || i.ImplementsInterface(iface) {
				return true
			}
		}
	}
	return false
}

// ClassResolver looks up an already-linked class by internal name,
// letting IsAssignableTo walk reference array element types without
// this package importing the loader that produces them.
type ClassResolver func(name string) (*Class, error)

// IsAssignableTo implements the instanceof/checkcast relation: identity,
// superclass, interface, or array covariance (array-of-S assignable to
// array-of-T when S assignable to T, reference-array variance only —
// primitive arrays are invariant). resolve is consulted only for
// reference-element arrays, to turn an element jtype.Type back into a
// *Class so the element comparison can recurse the same way; it may be
// nil if neither side is ever a reference array in context.
func (c *Class) IsAssignableTo(target *Class, resolve ClassResolver) bool {
	if c == target {
		return true
	}
	if c.IsArray() && target.IsArray() {
		se, te := c.ArrayElemType, target.ArrayElemType
		switch {
		case se.Kind == jtype.ArrayOf && te.Kind == jtype.ArrayOf:
			seClass, teClass := &Class{Name: se.String(), ArrayElemType: se.Elem}, &Class{Name: te.String(), ArrayElemType: te.Elem}
			return seClass.IsAssignableTo(teClass, resolve)
		case se.Kind == jtype.ClassRef && te.Kind == jtype.ClassRef:
			if resolve == nil {
				return se.ClassName == te.ClassName
			}
			seClass, err := resolve(se.ClassName)
			if err != nil {
				return false
			}
			teClass, err := resolve(te.ClassName)
			if err != nil {
				return false
			}
			return seClass.IsAssignableTo(teClass, resolve)
		case se.Kind != te.Kind:
			return false // e.g. [Ljava/lang/Object; vs [[I
		default:
			return se.String() == te.String() // primitive element arrays are invariant
		}
	}
	if c.IsArray() != target.IsArray() {
		return target.Name == "java/lang/Object" && !target.IsArray()
	}
	if target.IsInterface() {
		return c.ImplementsInterface(target)
	}
	return c.IsSubclassOf(target)
}
