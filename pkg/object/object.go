package object

import "github.com/tinyjvm/tinyjvm/pkg/jtype"

// Object is a heap instance: either a plain object (dense field-slot
// vector sized by its class's InstanceFieldCount) or an array (contiguous
// element buffer). Objects are ordinary Go heap values: the core runs no
// collector of its own, and Go's garbage collector reclaims an object,
// cycles included, once nothing reaches it.
type Object struct {
	Class *Class

	Fields []Value // valid when !IsArray: one slot per inherited+own instance field

	ElemType jtype.Type
	Elems    []Value // valid when IsArray

	// Monitor is a placeholder identity for monitorenter/monitorexit,
	// no-ops in this single-threaded core; the field exists so object
	// identity and lock bookkeeping (if ever needed) aren't conflated
	// with Fields.
	Monitor int32
}

func (o *Object) IsArray() bool { return o.Class != nil && o.Class.IsArray() }

// NewInstance allocates a plain object with every declared field set to
// its type's JVM default value (fields are zeroed before any
// constructor runs).
func NewInstance(class *Class) *Object {
	obj := &Object{Class: class, Fields: make([]Value, class.InstanceFieldCount)}
	for cur := class; cur != nil; cur = cur.Super {
		for _, f := range cur.Fields {
			if !f.IsStatic {
				obj.Fields[f.LayoutIndex] = DefaultValue(f.Type)
			}
		}
	}
	return obj
}

// NewArray allocates an array of length n, every slot at its element
// type's default value.
func NewArray(arrayClass *Class, elemType jtype.Type, n int) *Object {
	elems := make([]Value, n)
	def := DefaultValue(elemType)
	for i := range elems {
		elems[i] = def
	}
	return &Object{Class: arrayClass, ElemType: elemType, Elems: elems}
}

func (o *Object) Length() int { return len(o.Elems) }

// GetField reads an instance field by its pre-resolved layout index.
func (o *Object) GetField(idx int) Value { return o.Fields[idx] }

// SetField writes an instance field by its pre-resolved layout index.
func (o *Object) SetField(idx int, v Value) { o.Fields[idx] = v }
