package gfunction

import (
	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// The boxed primitive wrapper classes, generalized from the teacher's
// standalone NativeInteger{Value int32} (pkg/native/integer.go) into a
// uniform boxing scheme shared by every wrapper: one private "value"
// field carrying the primitive, a static valueOf, and an instance
// xxxValue unboxer, so autoboxing at invokevirtual/getfield call sites
// behaves uniformly instead of one bespoke Go struct per wrapper type.
func init() {
	register(wrapperSpec("java/lang/Integer", "I", intValueOf, intUnbox))
	register(wrapperSpec("java/lang/Long", "J", longValueOf, longUnbox))
	register(wrapperSpec("java/lang/Double", "D", doubleValueOf, doubleUnbox))
	register(wrapperSpec("java/lang/Float", "F", floatValueOf, floatUnbox))
	register(wrapperSpec("java/lang/Boolean", "Z", boolValueOf, boolUnbox))
	register(wrapperSpec("java/lang/Character", "C", charValueOf, charUnbox))
	register(wrapperSpec("java/lang/Byte", "B", byteValueOf, byteUnbox))
	register(wrapperSpec("java/lang/Short", "S", shortValueOf, shortUnbox))
}

func wrapperSpec(name, prim string, valueOf, unbox object.NativeMethod) ClassSpec {
	unboxName := map[string]string{
		"I": "intValue", "J": "longValue", "D": "doubleValue", "F": "floatValue",
		"Z": "booleanValue", "C": "charValue", "B": "byteValue", "S": "shortValue",
	}[prim]
	return ClassSpec{
		Name:        name,
		SuperName:   "java/lang/Object",
		AccessFlags: classfile.AccPublic | classfile.AccFinal,
		Fields: []FieldSpec{
			{Name: "value", Descriptor: prim, AccessFlags: classfile.AccPrivate | classfile.AccFinal},
		},
		Methods: []MethodSpec{
			{Name: "<init>", Descriptor: "(" + prim + ")V", Fn: wrapperInit},
			{Name: "valueOf", Descriptor: "(" + prim + ")L" + name + ";", AccessFlags: classfile.AccStatic, Fn: valueOf},
			{Name: unboxName, Descriptor: "()" + prim, Fn: unbox},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Fn: wrapperToString},
			{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", Fn: wrapperEquals},
			{Name: "hashCode", Descriptor: "()I", Fn: wrapperHashCode},
		},
	}
}

func wrapperInit(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	if _, fd := this.Ref.Class.FindFieldInChain("value"); fd != nil {
		this.Ref.SetField(fd.LayoutIndex, args[0])
	}
	return object.Void, nil
}

func boxedValue(this object.Value) object.Value { return fieldValue(this, "value") }

func boxNew(rt object.Runtime, className string, v object.Value) (object.Value, error) {
	class, err := rt.ResolveClass(className)
	if err != nil {
		return object.Value{}, err
	}
	obj := object.NewInstance(class)
	if _, fd := class.FindFieldInChain("value"); fd != nil {
		obj.SetField(fd.LayoutIndex, v)
	}
	return object.RefValue(obj), nil
}

func intValueOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return boxNew(rt, "java/lang/Integer", args[0])
}
func intUnbox(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.IntValue(boxedValue(this).Int32()), nil
}

func longValueOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return boxNew(rt, "java/lang/Long", args[0])
}
func longUnbox(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.LongValue(boxedValue(this).I), nil
}

func doubleValueOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return boxNew(rt, "java/lang/Double", args[0])
}
func doubleUnbox(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.DoubleValue(boxedValue(this).F64), nil
}

func floatValueOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return boxNew(rt, "java/lang/Float", args[0])
}
func floatUnbox(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.FloatValue(boxedValue(this).F32), nil
}

func boolValueOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return boxNew(rt, "java/lang/Boolean", args[0])
}
func boolUnbox(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.BoolValue(boxedValue(this).Bool()), nil
}

func charValueOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return boxNew(rt, "java/lang/Character", args[0])
}
func charUnbox(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.CharValue(uint16(boxedValue(this).I)), nil
}

func byteValueOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return boxNew(rt, "java/lang/Byte", args[0])
}
func byteUnbox(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.ByteValue(int8(boxedValue(this).I)), nil
}

func shortValueOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return boxNew(rt, "java/lang/Short", args[0])
}
func shortUnbox(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.ShortValue(int16(boxedValue(this).I)), nil
}

func wrapperToString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.RefValue(rt.NewString(valueToString(rt, boxedValue(this)))), nil
}

func wrapperEquals(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	other := args[0]
	if other.IsNull() || other.Ref.Class.Name != this.Ref.Class.Name {
		return object.BoolValue(false), nil
	}
	a, b := boxedValue(this), boxedValue(other)
	return object.BoolValue(valueToString(rt, a) == valueToString(rt, b)), nil
}

func wrapperHashCode(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.IntValue(identityHash(valueToString(rt, boxedValue(this)))), nil
}
