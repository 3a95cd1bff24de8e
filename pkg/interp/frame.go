package interp

import (
	"encoding/binary"

	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// Frame is one activation record: the operand stack and local variable
// array of a single method invocation. Its lifetime is exactly one call
// to Interpreter.execute.
type Frame struct {
	Method *object.Method
	Locals []object.Value
	Stack  []object.Value
	PC     int
}

// NewFrame allocates a frame sized to its method's Code attribute.
// Category-2 locals (long/double) occupy two conventional slots, the
// upper one left unused, so raw bytecode local indices stay correct;
// the operand stack tracks one object.Value per logical push regardless
// of category, a simplification over exact slot-width accounting that
// this core's Value already makes irrelevant.
func NewFrame(method *object.Method) *Frame {
	code := method.Code
	return &Frame{
		Method: method,
		Locals: make([]object.Value, code.MaxLocals),
		Stack:  make([]object.Value, 0, code.MaxStack+4),
	}
}

func (f *Frame) push(v object.Value) { f.Stack = append(f.Stack, v) }

func (f *Frame) pop() object.Value {
	n := len(f.Stack)
	v := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return v
}

func (f *Frame) peek() object.Value { return f.Stack[len(f.Stack)-1] }

func (f *Frame) getLocal(idx int) object.Value { return f.Locals[idx] }

func (f *Frame) setLocal(idx int, v object.Value) {
	f.Locals[idx] = v
	if v.IsCategory2() && idx+1 < len(f.Locals) {
		f.Locals[idx+1] = object.Value{} // reserve the upper slot
	}
}

func (f *Frame) code() []byte { return f.Method.Code.Code }

func (f *Frame) readU8() uint8 {
	v := f.code()[f.PC]
	f.PC++
	return v
}

func (f *Frame) readI8() int8 { return int8(f.readU8()) }

func (f *Frame) readU16() uint16 {
	v := binary.BigEndian.Uint16(f.code()[f.PC : f.PC+2])
	f.PC += 2
	return v
}

func (f *Frame) readI16() int16 { return int16(f.readU16()) }

func (f *Frame) readU32() uint32 {
	v := binary.BigEndian.Uint32(f.code()[f.PC : f.PC+4])
	f.PC += 4
	return v
}

func (f *Frame) readI32() int32 { return int32(f.readU32()) }
