package gfunction

import (
	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// java/lang/StringBuilder keeps its accumulated text boxed in a private
// "buffer" java/lang/String field rather than the teacher's raw Go
// string stashed under a synthetic "_buffer" JObject field (vm.go's
// handleStringBuilder) — this module's Object has no free-form field
// map, only typed declared slots, so the buffer itself is just another
// String instance, rebuilt on every append.
func init() {
	register(ClassSpec{
		Name:        "java/lang/StringBuilder",
		SuperName:   "java/lang/Object",
		AccessFlags: classfile.AccPublic,
		Fields: []FieldSpec{
			{Name: "buffer", Descriptor: "Ljava/lang/String;", AccessFlags: classfile.AccPrivate},
		},
		Methods: []MethodSpec{
			{Name: "<init>", Descriptor: "()V", Fn: sbInitEmpty},
			{Name: "<init>", Descriptor: "(Ljava/lang/String;)V", Fn: sbInitString},
			{Name: "<init>", Descriptor: "(I)V", Fn: sbInitCapacity},
			{Name: "append", Descriptor: "(Ljava/lang/String;)Ljava/lang/StringBuilder;", Fn: sbAppend},
			{Name: "append", Descriptor: "(I)Ljava/lang/StringBuilder;", Fn: sbAppend},
			{Name: "append", Descriptor: "(J)Ljava/lang/StringBuilder;", Fn: sbAppend},
			{Name: "append", Descriptor: "(D)Ljava/lang/StringBuilder;", Fn: sbAppend},
			{Name: "append", Descriptor: "(F)Ljava/lang/StringBuilder;", Fn: sbAppend},
			{Name: "append", Descriptor: "(C)Ljava/lang/StringBuilder;", Fn: sbAppend},
			{Name: "append", Descriptor: "(Z)Ljava/lang/StringBuilder;", Fn: sbAppend},
			{Name: "append", Descriptor: "(Ljava/lang/Object;)Ljava/lang/StringBuilder;", Fn: sbAppend},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Fn: sbToString},
			{Name: "length", Descriptor: "()I", Fn: sbLength},
		},
	})
}

func sbInitEmpty(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return setBuffer(rt, this, "")
}

func sbInitString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return setBuffer(rt, this, goStringOfValue(rt, args[0]))
}

func sbInitCapacity(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return setBuffer(rt, this, "") // capacity hint, ignored: no allocation-sizing semantics modeled
}

func sbAppend(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	appended := valueToString(rt, args[0])
	return setBuffer(rt, this, bufferOf(rt, this)+appended)
}

func sbToString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.RefValue(rt.NewString(bufferOf(rt, this))), nil
}

func sbLength(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.IntValue(int32(len([]rune(bufferOf(rt, this))))), nil
}

func bufferOf(rt object.Runtime, this object.Value) string {
	v := fieldValue(this, "buffer")
	if v.IsNull() {
		return ""
	}
	s, _ := rt.GoString(v.Ref)
	return s
}

func setBuffer(rt object.Runtime, this object.Value, s string) (object.Value, error) {
	if _, fd := this.Ref.Class.FindFieldInChain("buffer"); fd != nil {
		this.Ref.SetField(fd.LayoutIndex, object.RefValue(rt.NewString(s)))
	}
	return this, nil
}
