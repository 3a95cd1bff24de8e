package gfunction

import (
	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// java/io/PrintStream's println/print overloads, grounded directly on
// the teacher's handlePrintStream switch in vm.go, generalized from a
// native.PrintStream wrapper writing straight to a Go io.Writer into
// calls through object.Runtime.Println/Print so the same code path
// works under OSHost or FakeHost.
func init() {
	register(ClassSpec{
		Name:        "java/io/PrintStream",
		SuperName:   "java/lang/Object",
		AccessFlags: classfile.AccPublic,
		Methods: []MethodSpec{
			{Name: "println", Descriptor: "()V", Fn: psPrintlnVoid},
			{Name: "println", Descriptor: "(Ljava/lang/String;)V", Fn: psPrintlnString},
			{Name: "println", Descriptor: "(I)V", Fn: psPrintlnValue},
			{Name: "println", Descriptor: "(J)V", Fn: psPrintlnValue},
			{Name: "println", Descriptor: "(D)V", Fn: psPrintlnValue},
			{Name: "println", Descriptor: "(F)V", Fn: psPrintlnValue},
			{Name: "println", Descriptor: "(C)V", Fn: psPrintlnValue},
			{Name: "println", Descriptor: "(Z)V", Fn: psPrintlnValue},
			{Name: "println", Descriptor: "(Ljava/lang/Object;)V", Fn: psPrintlnValue},
			{Name: "print", Descriptor: "(Ljava/lang/String;)V", Fn: psPrintString},
			{Name: "print", Descriptor: "(I)V", Fn: psPrintValue},
			{Name: "print", Descriptor: "(J)V", Fn: psPrintValue},
			{Name: "print", Descriptor: "(D)V", Fn: psPrintValue},
			{Name: "print", Descriptor: "(F)V", Fn: psPrintValue},
			{Name: "print", Descriptor: "(C)V", Fn: psPrintValue},
			{Name: "print", Descriptor: "(Z)V", Fn: psPrintValue},
			{Name: "print", Descriptor: "(Ljava/lang/Object;)V", Fn: psPrintValue},
		},
	})
}

func psPrintlnVoid(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	rt.Println("")
	return object.Void, nil
}

func psPrintlnString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	rt.Println(goStringOfValue(rt, args[0]))
	return object.Void, nil
}

func psPrintlnValue(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	rt.Println(valueToString(rt, args[0]))
	return object.Void, nil
}

func psPrintString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	rt.Print(goStringOfValue(rt, args[0]))
	return object.Void, nil
}

func psPrintValue(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	rt.Print(valueToString(rt, args[0]))
	return object.Void, nil
}
