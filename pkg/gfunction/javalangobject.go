package gfunction

import (
	"fmt"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

func init() {
	register(ClassSpec{
		Name:        "java/lang/Object",
		AccessFlags: classfile.AccPublic,
		Methods: []MethodSpec{
			{Name: "<init>", Descriptor: "()V", Fn: justReturn},
			{Name: "hashCode", Descriptor: "()I", Fn: objectHashCode},
			{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", Fn: objectEquals},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Fn: objectToString},
			{Name: "getClass", Descriptor: "()Ljava/lang/Class;", Fn: objectGetClass},
		},
	})
}

// justReturn is the native body for no-op methods, matching jacobin's
// gfunction convention of the same name for Object.<init>,
// Thread.registerNatives, and similar do-nothing natives.
func justReturn(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.Void, nil
}

// objectHashCode uses the instance's own Go pointer identity, the same
// default-identity-hash behavior Object.hashCode has when unoverridden.
func objectHashCode(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	if this.IsNull() {
		return object.Value{}, rt.Throw("java/lang/NullPointerException", "")
	}
	return object.IntValue(identityHash(fmt.Sprintf("%p", this.Ref))), nil
}

// identityHash turns a pointer's string form into a small deterministic
// int32, standing in for the JVM's identity hash code.
func identityHash(s string) int32 {
	var h int32 = 17
	for i := 0; i < len(s); i++ {
		h = h*31 + int32(s[i])
	}
	if h < 0 {
		h = -h
	}
	return h
}

func objectEquals(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	other := args[0]
	return object.BoolValue(!this.IsNull() && !other.IsNull() && this.Ref == other.Ref), nil
}

func objectToString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	if this.IsNull() {
		return object.Value{}, rt.Throw("java/lang/NullPointerException", "")
	}
	return object.RefValue(rt.NewString(fmt.Sprintf("%s@%p", this.Ref.Class.Name, this.Ref))), nil
}

func objectGetClass(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	if this.IsNull() {
		return object.Value{}, rt.Throw("java/lang/NullPointerException", "")
	}
	return newClassMirror(rt, this.Ref.Class)
}
