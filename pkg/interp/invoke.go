package interp

import (
	"github.com/pkg/errors"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/classloader"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

func (it *Interpreter) execGetstatic(frame *Frame) error {
	idx := frame.readU16()
	fref, err := classfile.ResolveFieldref(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "getstatic")
	}
	class, err := it.Registry.ResolveClass(fref.ClassName)
	if err != nil {
		return errors.Wrap(err, "getstatic")
	}
	owner, fd := class.FindFieldInChain(fref.FieldName)
	if fd == nil {
		return errors.Errorf("getstatic: no such field %s.%s", fref.ClassName, fref.FieldName)
	}
	frame.push(owner.StaticValues[fd.LayoutIndex])
	return nil
}

func (it *Interpreter) execPutstatic(frame *Frame) error {
	idx := frame.readU16()
	fref, err := classfile.ResolveFieldref(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "putstatic")
	}
	class, err := it.Registry.ResolveClass(fref.ClassName)
	if err != nil {
		return errors.Wrap(err, "putstatic")
	}
	owner, fd := class.FindFieldInChain(fref.FieldName)
	if fd == nil {
		return errors.Errorf("putstatic: no such field %s.%s", fref.ClassName, fref.FieldName)
	}
	owner.StaticValues[fd.LayoutIndex] = frame.pop()
	return nil
}

func (it *Interpreter) execGetfield(frame *Frame) error {
	idx := frame.readU16()
	fref, err := classfile.ResolveFieldref(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "getfield")
	}
	ref := frame.pop()
	if ref.IsNull() {
		return it.Throw("java/lang/NullPointerException", "")
	}
	_, fd := ref.Ref.Class.FindFieldInChain(fref.FieldName)
	if fd == nil {
		return errors.Errorf("getfield: no such field %s.%s", fref.ClassName, fref.FieldName)
	}
	frame.push(ref.Ref.GetField(fd.LayoutIndex))
	return nil
}

func (it *Interpreter) execPutfield(frame *Frame) error {
	idx := frame.readU16()
	fref, err := classfile.ResolveFieldref(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "putfield")
	}
	val := frame.pop()
	ref := frame.pop()
	if ref.IsNull() {
		return it.Throw("java/lang/NullPointerException", "")
	}
	_, fd := ref.Ref.Class.FindFieldInChain(fref.FieldName)
	if fd == nil {
		return errors.Errorf("putfield: no such field %s.%s", fref.ClassName, fref.FieldName)
	}
	ref.Ref.SetField(fd.LayoutIndex, val)
	return nil
}

// execInvoke implements invokevirtual/invokespecial/invokestatic/
// invokeinterface: resolve the callee, pop receiver+args off frame's
// stack, call through Invoke, push any non-void result.
func (it *Interpreter) execInvoke(frame *Frame, op uint8) error {
	idx := frame.readU16()
	if op == opInvokeinterface {
		frame.readU8() // count, redundant with the descriptor's own arity
		frame.readU8() // zero byte
	}

	var mref *classfile.MethodRefInfo
	var err error
	if op == opInvokeinterface {
		mref, err = classfile.ResolveInterfaceMethodref(frame.Method.Class.RawConstantPool, idx)
	} else {
		mref, err = classfile.ResolveMethodref(frame.Method.Class.RawConstantPool, idx)
	}
	if err != nil {
		return errors.Wrap(err, "invoke")
	}

	desc, err := jtype.ParseMethod(mref.Descriptor)
	if err != nil {
		return errors.Wrap(err, "invoke")
	}

	args := make([]object.Value, len(desc.Params))
	for i := len(desc.Params) - 1; i >= 0; i-- {
		args[i] = frame.pop()
	}

	if op == opInvokestatic {
		class, err := it.Registry.ResolveClass(mref.ClassName)
		if err != nil {
			return errors.Wrap(err, "invokestatic")
		}
		method, err := classloader.ResolveStaticMethod(class, mref.MethodName, mref.Descriptor)
		if err != nil {
			return errors.Wrap(err, "invokestatic")
		}
		return it.callAndPush(frame, method, object.Value{}, args, desc)
	}

	this := frame.pop()
	if this.IsNull() {
		return it.Throw("java/lang/NullPointerException", "")
	}

	var method *object.Method
	switch op {
	case opInvokespecial:
		class, rerr := it.Registry.ResolveClass(mref.ClassName)
		if rerr != nil {
			return errors.Wrap(rerr, "invokespecial")
		}
		method, err = classloader.ResolveStaticMethod(class, mref.MethodName, mref.Descriptor)
	case opInvokeinterface:
		method, err = classloader.ResolveInterfaceMethod(this.Ref.Class, mref.MethodName, mref.Descriptor)
	default: // invokevirtual
		method, err = classloader.ResolveVirtualMethod(this.Ref.Class, mref.MethodName, mref.Descriptor)
	}
	if err != nil {
		return errors.Wrap(err, "invoke")
	}
	return it.callAndPush(frame, method, this, args, desc)
}

func (it *Interpreter) callAndPush(frame *Frame, method *object.Method, this object.Value, args []object.Value, desc *jtype.MethodDescriptor) error {
	result, err := it.Invoke(method, this, args)
	if err != nil {
		return err
	}
	if desc.Return.Kind != jtype.Void {
		frame.push(result)
	}
	return nil
}

func (it *Interpreter) execNew(frame *Frame) error {
	idx := frame.readU16()
	name, err := classfile.GetClassName(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "new")
	}
	class, err := it.Registry.ResolveClass(name)
	if err != nil {
		return errors.Wrap(err, "new")
	}
	frame.push(object.RefValue(object.NewInstance(class)))
	return nil
}

var newarrayTypeDesc = map[uint8]string{
	atBoolean: "Z", atChar: "C", atFloat: "F", atDouble: "D",
	atByte: "B", atShort: "S", atInt: "I", atLong: "J",
}

func (it *Interpreter) execNewarray(frame *Frame) error {
	atype := frame.readU8()
	n := frame.pop().Int32()
	if n < 0 {
		return it.Throw("java/lang/NegativeArraySizeException", "")
	}
	desc, ok := newarrayTypeDesc[atype]
	if !ok {
		return errors.Errorf("newarray: unknown type code %d", atype)
	}
	arr, err := it.NewArray(desc, int(n))
	if err != nil {
		return err
	}
	frame.push(object.RefValue(arr))
	return nil
}

func (it *Interpreter) execAnewarray(frame *Frame) error {
	idx := frame.readU16()
	name, err := classfile.GetClassName(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "anewarray")
	}
	n := frame.pop().Int32()
	if n < 0 {
		return it.Throw("java/lang/NegativeArraySizeException", "")
	}
	arr, err := it.NewArray("L"+name+";", int(n))
	if err != nil {
		return err
	}
	frame.push(object.RefValue(arr))
	return nil
}

func (it *Interpreter) execMultianewarray(frame *Frame) error {
	idx := frame.readU16()
	name, err := classfile.GetClassName(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "multianewarray")
	}
	dims := int(frame.readU8())
	counts := make([]int32, dims)
	for i := dims - 1; i >= 0; i-- {
		counts[i] = frame.pop().Int32()
	}
	arr, err := it.buildMultiArray(name, counts)
	if err != nil {
		return err
	}
	frame.push(object.RefValue(arr))
	return nil
}

func (it *Interpreter) buildMultiArray(desc string, counts []int32) (*object.Object, error) {
	n := counts[0]
	if n < 0 {
		return nil, it.Throw("java/lang/NegativeArraySizeException", "")
	}
	elemDesc := desc[1:]
	arrClass, err := it.Registry.ResolveClass(desc)
	if err != nil {
		return nil, err
	}
	elemType, _, err := jtype.Parse(elemDesc)
	if err != nil {
		return nil, err
	}
	arr := object.NewArray(arrClass, elemType, int(n))
	if len(counts) > 1 {
		for i := range arr.Elems {
			sub, err := it.buildMultiArray(elemDesc, counts[1:])
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = object.RefValue(sub)
		}
	}
	return arr, nil
}

func (it *Interpreter) execCheckcast(frame *Frame) error {
	idx := frame.readU16()
	name, err := classfile.GetClassName(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "checkcast")
	}
	v := frame.peek()
	if v.IsNull() {
		return nil
	}
	target, err := it.Registry.ResolveClass(name)
	if err != nil {
		return errors.Wrap(err, "checkcast")
	}
	if !v.Ref.Class.IsAssignableTo(target, it.Registry.ResolveClass) {
		return it.Throw("java/lang/ClassCastException", v.Ref.Class.Name+" cannot be cast to "+name)
	}
	return nil
}

func (it *Interpreter) execInstanceof(frame *Frame) error {
	idx := frame.readU16()
	name, err := classfile.GetClassName(frame.Method.Class.RawConstantPool, idx)
	if err != nil {
		return errors.Wrap(err, "instanceof")
	}
	v := frame.pop()
	if v.IsNull() {
		frame.push(object.IntValue(0))
		return nil
	}
	target, err := it.Registry.ResolveClass(name)
	if err != nil {
		return errors.Wrap(err, "instanceof")
	}
	frame.push(object.IntValue(boolToInt(v.Ref.Class.IsAssignableTo(target, it.Registry.ResolveClass))))
	return nil
}

func (it *Interpreter) execArrayLoad(frame *Frame, op uint8) error {
	idx := frame.pop().Int32()
	arr := frame.pop()
	if arr.IsNull() {
		return it.Throw("java/lang/NullPointerException", "")
	}
	if idx < 0 || int(idx) >= arr.Ref.Length() {
		return it.Throw("java/lang/ArrayIndexOutOfBoundsException", "")
	}
	frame.push(arr.Ref.Elems[idx])
	_ = op
	return nil
}

func (it *Interpreter) execArrayStore(frame *Frame, op uint8) error {
	val := frame.pop()
	idx := frame.pop().Int32()
	arr := frame.pop()
	if arr.IsNull() {
		return it.Throw("java/lang/NullPointerException", "")
	}
	if idx < 0 || int(idx) >= arr.Ref.Length() {
		return it.Throw("java/lang/ArrayIndexOutOfBoundsException", "")
	}
	if op == opAastore && !val.IsNull() {
		elemClass, err := it.Registry.ResolveClass(arr.Ref.ElemType.ClassName)
		if err != nil {
			return errors.Wrap(err, "aastore")
		}
		if !val.Ref.Class.IsAssignableTo(elemClass, it.Registry.ResolveClass) {
			return it.Throw("java/lang/ArrayStoreException", val.Ref.Class.Name)
		}
	}
	arr.Ref.Elems[idx] = val
	return nil
}
