package gfunction

import (
	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// The Throwable hierarchy every exception-throwing opcode in pkg/interp
// assumes exists (athrow, idiv-by-zero, null checkfield/invoke, bad
// checkcast, array bounds/negative-size/store). Each class carries a
// single "message" field, the slot interp.Throw and findField already
// read/write directly, and a <init>/<init>(String)/getMessage/toString
// set grounded on the teacher's exception-as-plain-value approach
// (vm/exception.go) generalized into real catchable instances.
func init() {
	register(throwableSpec("java/lang/Throwable", "java/lang/Object"))
	register(throwableSpec("java/lang/Exception", "java/lang/Throwable"))
	register(throwableSpec("java/lang/RuntimeException", "java/lang/Exception"))
	register(throwableSpec("java/lang/ArithmeticException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/NullPointerException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/ClassCastException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/ArrayIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"))
	register(throwableSpec("java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/NegativeArraySizeException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/ArrayStoreException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/NumberFormatException", "java/lang/IllegalArgumentException"))
	register(throwableSpec("java/lang/IllegalArgumentException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/IllegalStateException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/UnsupportedOperationException", "java/lang/RuntimeException"))
	register(throwableSpec("java/lang/Error", "java/lang/Throwable"))
	register(throwableSpec("java/lang/NoClassDefFoundError", "java/lang/Error"))
	register(throwableSpec("java/lang/ClassNotFoundException", "java/lang/Exception"))
	register(throwableSpec("java/lang/StackOverflowError", "java/lang/Error"))
	register(throwableSpec("java/io/IOException", "java/lang/Exception"))
}

func throwableSpec(name, super string) ClassSpec {
	return ClassSpec{
		Name:        name,
		SuperName:   super,
		AccessFlags: classfile.AccPublic,
		Fields: []FieldSpec{
			{Name: "message", Descriptor: "Ljava/lang/String;", AccessFlags: classfile.AccPrivate},
		},
		Methods: []MethodSpec{
			{Name: "<init>", Descriptor: "()V", Fn: throwableInitDefault},
			{Name: "<init>", Descriptor: "(Ljava/lang/String;)V", Fn: throwableInitMessage},
			{Name: "getMessage", Descriptor: "()Ljava/lang/String;", Fn: throwableGetMessage},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Fn: throwableToString},
		},
	}
}

func throwableInitDefault(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.Void, nil
}

func throwableInitMessage(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	if _, fd := this.Ref.Class.FindFieldInChain("message"); fd != nil {
		this.Ref.SetField(fd.LayoutIndex, args[0])
	}
	return object.Void, nil
}

func throwableGetMessage(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return fieldValue(this, "message"), nil
}

func throwableToString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	name := binaryName(this.Ref.Class.Name)
	msg := fieldValue(this, "message")
	if msg.IsNull() {
		return object.RefValue(rt.NewString(name)), nil
	}
	s, _ := rt.GoString(msg.Ref)
	return object.RefValue(rt.NewString(name + ": " + s)), nil
}
