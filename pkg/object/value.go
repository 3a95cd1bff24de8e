package object

import "github.com/tinyjvm/tinyjvm/pkg/jtype"

// Value is the tagged variant operand-stack/local-variable/field entry:
// void, one of the eight primitives at their specified widths
// (boolean/byte/char/short widened to int on the stack, as the
// teacher's frame.go already assumed for plain ints), or a nullable
// object handle. A long or double is held whole in one field (I or F64)
// so a Value remains a single logical operand-stack entry even though they occupy
// two local-variable slots.
type Value struct {
	Kind jtype.Kind
	I    int64   // Boolean/Byte/Char/Short/Int (widened) and Long
	F32  float32 // Float
	F64  float64 // Double
	Ref  *Object // valid when Kind == jtype.ClassRef or jtype.ArrayOf; nil means Java null
}

// Void is the value produced by a void-returning method.
var Void = Value{Kind: jtype.Void}

// Null is the generic null reference.
var Null = Value{Kind: jtype.ClassRef}

func IntValue(v int32) Value     { return Value{Kind: jtype.Int, I: int64(v)} }
func LongValue(v int64) Value    { return Value{Kind: jtype.Long, I: v} }
func FloatValue(v float32) Value { return Value{Kind: jtype.Float, F32: v} }
func DoubleValue(v float64) Value {
	return Value{Kind: jtype.Double, F64: v}
}
func BoolValue(b bool) Value {
	if b {
		return Value{Kind: jtype.Boolean, I: 1}
	}
	return Value{Kind: jtype.Boolean, I: 0}
}
func ByteValue(v int8) Value  { return Value{Kind: jtype.Byte, I: int64(v)} }
func CharValue(v uint16) Value { return Value{Kind: jtype.Char, I: int64(v)} }
func ShortValue(v int16) Value { return Value{Kind: jtype.Short, I: int64(v)} }

// RefValue wraps an object handle. A nil obj represents Java null.
func RefValue(obj *Object) Value { return Value{Kind: jtype.ClassRef, Ref: obj} }

// IsNull reports whether this is a (possibly typed) null reference.
func (v Value) IsNull() bool {
	return v.Ref == nil && (v.Kind == jtype.ClassRef || v.Kind == jtype.ArrayOf)
}

// IsReference reports whether this value's kind carries an object handle.
func (v Value) IsReference() bool {
	return v.Kind == jtype.ClassRef || v.Kind == jtype.ArrayOf
}

// Int32 returns the value truncated/widened to a signed 32-bit int, as
// used by int-category arithmetic and stack slots.
func (v Value) Int32() int32 { return int32(v.I) }

// Bool reports the value as a Java boolean.
func (v Value) Bool() bool { return v.I != 0 }

// IsCategory2 reports whether this value occupies two stack/local slots.
func (v Value) IsCategory2() bool { return v.Kind == jtype.Long || v.Kind == jtype.Double }

// DefaultValue returns the JVM default value for a field of the given
// type, as getstatic/getfield see it before any constructor or
// <clinit> has run.
func DefaultValue(t jtype.Type) Value {
	switch t.Kind {
	case jtype.Long:
		return LongValue(0)
	case jtype.Float:
		return FloatValue(0)
	case jtype.Double:
		return DoubleValue(0)
	case jtype.ClassRef, jtype.ArrayOf:
		return Value{Kind: t.Kind}
	default:
		return IntValue(0)
	}
}
