package interp

import (
	"math"

	"github.com/pkg/errors"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// execute runs frame from PC 0 to a return or an uncaught exception.
func (it *Interpreter) execute(frame *Frame) (object.Value, error) {
	for {
		opPC := frame.PC
		op := frame.readU8()

		var stepErr error
		switch op {
		case opNop:

		case opAconstNull:
			frame.push(object.Value{Kind: jtype.ClassRef})
		case opIconstM1, opIconst0, opIconst1, opIconst2, opIconst3, opIconst4, opIconst5:
			frame.push(object.IntValue(int32(op) - int32(opIconst0)))
		case opLconst0, opLconst1:
			frame.push(object.LongValue(int64(op) - int64(opLconst0)))
		case opFconst0, opFconst1, opFconst2:
			frame.push(object.FloatValue(float32(op) - float32(opFconst0)))
		case opDconst0, opDconst1:
			frame.push(object.DoubleValue(float64(op) - float64(opDconst0)))
		case opBipush:
			frame.push(object.IntValue(int32(frame.readI8())))
		case opSipush:
			frame.push(object.IntValue(int32(frame.readI16())))
		case opLdc:
			stepErr = it.execLdc(frame, uint16(frame.readU8()))
		case opLdcW, opLdc2W:
			stepErr = it.execLdc(frame, frame.readU16())

		case opIload, opFload, opAload:
			frame.push(frame.getLocal(int(frame.readU8())))
		case opLload, opDload:
			frame.push(frame.getLocal(int(frame.readU8())))
		case opIload0, opIload1, opIload2, opIload3:
			frame.push(frame.getLocal(int(op - opIload0)))
		case opLload0, opLload1, opLload2, opLload3:
			frame.push(frame.getLocal(int(op - opLload0)))
		case opFload0, opFload1, opFload2, opFload3:
			frame.push(frame.getLocal(int(op - opFload0)))
		case opDload0, opDload1, opDload2, opDload3:
			frame.push(frame.getLocal(int(op - opDload0)))
		case opAload0, opAload1, opAload2, opAload3:
			frame.push(frame.getLocal(int(op - opAload0)))

		case opIstore, opFstore, opAstore, opLstore, opDstore:
			frame.setLocal(int(frame.readU8()), frame.pop())
		case opIstore0, opIstore1, opIstore2, opIstore3:
			frame.setLocal(int(op-opIstore0), frame.pop())
		case opLstore0, opLstore1, opLstore2, opLstore3:
			frame.setLocal(int(op-opLstore0), frame.pop())
		case opFstore0, opFstore1, opFstore2, opFstore3:
			frame.setLocal(int(op-opFstore0), frame.pop())
		case opDstore0, opDstore1, opDstore2, opDstore3:
			frame.setLocal(int(op-opDstore0), frame.pop())
		case opAstore0, opAstore1, opAstore2, opAstore3:
			frame.setLocal(int(op-opAstore0), frame.pop())

		case opIaload, opLaload, opFaload, opDaload, opAaload, opBaload, opCaload, opSaload:
			stepErr = it.execArrayLoad(frame, op)
		case opIastore, opLastore, opFastore, opDastore, opAastore, opBastore, opCastore, opSastore:
			stepErr = it.execArrayStore(frame, op)

		case opPop:
			frame.pop()
		case opPop2:
			if !frame.pop().IsCategory2() {
				frame.pop()
			}
		case opDup:
			frame.push(frame.peek())
		case opDupX1:
			v1, v2 := frame.pop(), frame.pop()
			frame.push(v1)
			frame.push(v2)
			frame.push(v1)
		case opDupX2:
			v1, v2, v3 := frame.pop(), frame.pop(), frame.pop()
			frame.push(v1)
			frame.push(v3)
			frame.push(v2)
			frame.push(v1)
		case opDup2:
			if frame.peek().IsCategory2() {
				frame.push(frame.peek())
				break
			}
			v1, v2 := frame.pop(), frame.pop()
			frame.push(v2)
			frame.push(v1)
			frame.push(v2)
			frame.push(v1)
		case opDup2X1:
			v1, v2, v3 := frame.pop(), frame.pop(), frame.pop()
			frame.push(v2)
			frame.push(v1)
			frame.push(v3)
			frame.push(v2)
			frame.push(v1)
		case opDup2X2:
			v1, v2, v3, v4 := frame.pop(), frame.pop(), frame.pop(), frame.pop()
			frame.push(v2)
			frame.push(v1)
			frame.push(v4)
			frame.push(v3)
			frame.push(v2)
			frame.push(v1)
		case opSwap:
			v1, v2 := frame.pop(), frame.pop()
			frame.push(v1)
			frame.push(v2)

		case opIadd:
			b, a := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(a + b))
		case opLadd:
			b, a := frame.pop().I, frame.pop().I
			frame.push(object.LongValue(a + b))
		case opFadd:
			b, a := frame.pop().F32, frame.pop().F32
			frame.push(object.FloatValue(a + b))
		case opDadd:
			b, a := frame.pop().F64, frame.pop().F64
			frame.push(object.DoubleValue(a + b))
		case opIsub:
			b, a := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(a - b))
		case opLsub:
			b, a := frame.pop().I, frame.pop().I
			frame.push(object.LongValue(a - b))
		case opFsub:
			b, a := frame.pop().F32, frame.pop().F32
			frame.push(object.FloatValue(a - b))
		case opDsub:
			b, a := frame.pop().F64, frame.pop().F64
			frame.push(object.DoubleValue(a - b))
		case opImul:
			b, a := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(a * b))
		case opLmul:
			b, a := frame.pop().I, frame.pop().I
			frame.push(object.LongValue(a * b))
		case opFmul:
			b, a := frame.pop().F32, frame.pop().F32
			frame.push(object.FloatValue(a * b))
		case opDmul:
			b, a := frame.pop().F64, frame.pop().F64
			frame.push(object.DoubleValue(a * b))
		case opIdiv:
			b, a := frame.pop().Int32(), frame.pop().Int32()
			if b == 0 {
				stepErr = it.Throw("java/lang/ArithmeticException", "/ by zero")
			} else if a == math.MinInt32 && b == -1 {
				frame.push(object.IntValue(math.MinInt32)) // JVM wraps rather than overflowing
			} else {
				frame.push(object.IntValue(a / b))
			}
		case opLdiv:
			b, a := frame.pop().I, frame.pop().I
			if b == 0 {
				stepErr = it.Throw("java/lang/ArithmeticException", "/ by zero")
			} else {
				frame.push(object.LongValue(a / b))
			}
		case opFdiv:
			b, a := frame.pop().F32, frame.pop().F32
			frame.push(object.FloatValue(a / b))
		case opDdiv:
			b, a := frame.pop().F64, frame.pop().F64
			frame.push(object.DoubleValue(a / b))
		case opIrem:
			b, a := frame.pop().Int32(), frame.pop().Int32()
			if b == 0 {
				stepErr = it.Throw("java/lang/ArithmeticException", "/ by zero")
			} else {
				frame.push(object.IntValue(a % b))
			}
		case opLrem:
			b, a := frame.pop().I, frame.pop().I
			if b == 0 {
				stepErr = it.Throw("java/lang/ArithmeticException", "/ by zero")
			} else {
				frame.push(object.LongValue(a % b))
			}
		case opFrem:
			b, a := frame.pop().F32, frame.pop().F32
			frame.push(object.FloatValue(float32(math.Mod(float64(a), float64(b)))))
		case opDrem:
			b, a := frame.pop().F64, frame.pop().F64
			frame.push(object.DoubleValue(math.Mod(a, b)))
		case opIneg:
			frame.push(object.IntValue(-frame.pop().Int32()))
		case opLneg:
			frame.push(object.LongValue(-frame.pop().I))
		case opFneg:
			frame.push(object.FloatValue(-frame.pop().F32))
		case opDneg:
			frame.push(object.DoubleValue(-frame.pop().F64))

		case opIshl:
			s, v := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(v << (uint32(s) & 31)))
		case opLshl:
			s, v := frame.pop().Int32(), frame.pop().I
			frame.push(object.LongValue(v << (uint32(s) & 63)))
		case opIshr:
			s, v := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(v >> (uint32(s) & 31)))
		case opLshr:
			s, v := frame.pop().Int32(), frame.pop().I
			frame.push(object.LongValue(v >> (uint32(s) & 63)))
		case opIushr:
			s, v := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(int32(uint32(v) >> (uint32(s) & 31))))
		case opLushr:
			s, v := frame.pop().Int32(), frame.pop().I
			frame.push(object.LongValue(int64(uint64(v) >> (uint32(s) & 63))))
		case opIand:
			b, a := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(a & b))
		case opLand:
			b, a := frame.pop().I, frame.pop().I
			frame.push(object.LongValue(a & b))
		case opIor:
			b, a := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(a | b))
		case opLor:
			b, a := frame.pop().I, frame.pop().I
			frame.push(object.LongValue(a | b))
		case opIxor:
			b, a := frame.pop().Int32(), frame.pop().Int32()
			frame.push(object.IntValue(a ^ b))
		case opLxor:
			b, a := frame.pop().I, frame.pop().I
			frame.push(object.LongValue(a ^ b))

		case opIinc:
			idx := int(frame.readU8())
			delta := int32(frame.readI8())
			frame.setLocal(idx, object.IntValue(frame.getLocal(idx).Int32()+delta))

		case opI2l:
			frame.push(object.LongValue(int64(frame.pop().Int32())))
		case opI2f:
			frame.push(object.FloatValue(float32(frame.pop().Int32())))
		case opI2d:
			frame.push(object.DoubleValue(float64(frame.pop().Int32())))
		case opL2i:
			frame.push(object.IntValue(int32(frame.pop().I)))
		case opL2f:
			frame.push(object.FloatValue(float32(frame.pop().I)))
		case opL2d:
			frame.push(object.DoubleValue(float64(frame.pop().I)))
		case opF2i:
			frame.push(object.IntValue(floatToInt32(frame.pop().F32)))
		case opF2l:
			frame.push(object.LongValue(floatToInt64(frame.pop().F32)))
		case opF2d:
			frame.push(object.DoubleValue(float64(frame.pop().F32)))
		case opD2i:
			frame.push(object.IntValue(doubleToInt32(frame.pop().F64)))
		case opD2l:
			frame.push(object.LongValue(doubleToInt64(frame.pop().F64)))
		case opD2f:
			frame.push(object.FloatValue(float32(frame.pop().F64)))
		case opI2b:
			frame.push(object.IntValue(int32(int8(frame.pop().Int32()))))
		case opI2c:
			frame.push(object.IntValue(int32(uint16(frame.pop().Int32()))))
		case opI2s:
			frame.push(object.IntValue(int32(int16(frame.pop().Int32()))))

		case opLcmp:
			b, a := frame.pop().I, frame.pop().I
			switch {
			case a > b:
				frame.push(object.IntValue(1))
			case a < b:
				frame.push(object.IntValue(-1))
			default:
				frame.push(object.IntValue(0))
			}
		case opFcmpl, opFcmpg:
			b, a := frame.pop().F32, frame.pop().F32
			frame.push(object.IntValue(fcmp(a, b, op == opFcmpg)))
		case opDcmpl, opDcmpg:
			b, a := frame.pop().F64, frame.pop().F64
			frame.push(object.IntValue(dcmp(a, b, op == opDcmpg)))

		case opIfeq, opIfne, opIflt, opIfge, opIfgt, opIfle:
			off := frame.readI16()
			if compareToZero(frame.pop().Int32(), op) {
				frame.PC = opPC + int(off)
			}
		case opIfIcmpeq, opIfIcmpne, opIfIcmplt, opIfIcmpge, opIfIcmpgt, opIfIcmple:
			off := frame.readI16()
			b, a := frame.pop().Int32(), frame.pop().Int32()
			if compareInts(a, b, op) {
				frame.PC = opPC + int(off)
			}
		case opIfAcmpeq, opIfAcmpne:
			off := frame.readI16()
			b, a := frame.pop(), frame.pop()
			eq := a.Ref == b.Ref
			if (op == opIfAcmpeq) == eq {
				frame.PC = opPC + int(off)
			}
		case opIfnull, opIfnonnull:
			off := frame.readI16()
			isNull := frame.pop().IsNull()
			if (op == opIfnull) == isNull {
				frame.PC = opPC + int(off)
			}
		case opGoto:
			off := frame.readI16()
			frame.PC = opPC + int(off)
		case opGotoW:
			off := frame.readI32()
			frame.PC = opPC + int(off)

		case opTableswitch:
			stepErr = it.execTableswitch(frame, opPC)
		case opLookupswitch:
			stepErr = it.execLookupswitch(frame, opPC)

		case opIreturn, opLreturn, opFreturn, opDreturn, opAreturn:
			return frame.pop(), nil
		case opReturn:
			return object.Void, nil

		case opGetstatic:
			stepErr = it.execGetstatic(frame)
		case opPutstatic:
			stepErr = it.execPutstatic(frame)
		case opGetfield:
			stepErr = it.execGetfield(frame)
		case opPutfield:
			stepErr = it.execPutfield(frame)

		case opInvokevirtual, opInvokespecial, opInvokestatic, opInvokeinterface:
			stepErr = it.execInvoke(frame, op)

		case opNew:
			stepErr = it.execNew(frame)
		case opNewarray:
			stepErr = it.execNewarray(frame)
		case opAnewarray:
			stepErr = it.execAnewarray(frame)
		case opMultianewarray:
			stepErr = it.execMultianewarray(frame)
		case opArraylength:
			arr := frame.pop()
			if arr.IsNull() {
				stepErr = it.Throw("java/lang/NullPointerException", "")
			} else {
				frame.push(object.IntValue(int32(arr.Ref.Length())))
			}
		case opAthrow:
			v := frame.pop()
			if v.IsNull() {
				stepErr = it.Throw("java/lang/NullPointerException", "")
			} else {
				stepErr = &JavaException{Instance: v.Ref}
			}
		case opCheckcast:
			stepErr = it.execCheckcast(frame)
		case opInstanceof:
			stepErr = it.execInstanceof(frame)
		case opMonitorenter:
			frame.pop() // single-threaded core: locking is a no-op
		case opMonitorexit:
			frame.pop()

		default:
			return object.Value{}, errors.Errorf("unimplemented opcode 0x%x at pc %d in %s.%s", op, opPC, frame.Method.Class.Name, frame.Method.Key())
		}

		if stepErr != nil {
			handled, rerr := it.dispatchExceptional(frame, opPC, stepErr)
			if !handled {
				return object.Value{}, rerr
			}
		}
	}
}

func compareToZero(v int32, op uint8) bool {
	switch op {
	case opIfeq:
		return v == 0
	case opIfne:
		return v != 0
	case opIflt:
		return v < 0
	case opIfge:
		return v >= 0
	case opIfgt:
		return v > 0
	case opIfle:
		return v <= 0
	}
	return false
}

func compareInts(a, b int32, op uint8) bool {
	switch op {
	case opIfIcmpeq:
		return a == b
	case opIfIcmpne:
		return a != b
	case opIfIcmplt:
		return a < b
	case opIfIcmpge:
		return a >= b
	case opIfIcmpgt:
		return a > b
	case opIfIcmple:
		return a <= b
	}
	return false
}

func (it *Interpreter) execLdc(frame *Frame, idx uint16) error {
	pool := frame.Method.Class.RawConstantPool
	raw, err := classfile.ResolveLoadableConstant(pool, idx)
	if err != nil {
		return errors.Wrap(err, "ldc")
	}
	switch v := raw.(type) {
	case int32:
		frame.push(object.IntValue(v))
	case float32:
		frame.push(object.FloatValue(v))
	case int64:
		frame.push(object.LongValue(v))
	case float64:
		frame.push(object.DoubleValue(v))
	case string:
		frame.push(object.RefValue(it.NewString(v)))
	default:
		return errors.Errorf("ldc: unsupported constant %T", raw)
	}
	return nil
}

func (it *Interpreter) execTableswitch(frame *Frame, opPC int) error {
	frame.PC = align4(opPC + 1)
	def := frame.readI32()
	low := frame.readI32()
	high := frame.readI32()
	key := frame.pop().Int32()
	if key < low || key > high {
		frame.PC = opPC + int(def)
		return nil
	}
	frame.PC += int(key-low) * 4
	off := frame.readI32()
	frame.PC = opPC + int(off)
	return nil
}

func (it *Interpreter) execLookupswitch(frame *Frame, opPC int) error {
	frame.PC = align4(opPC + 1)
	def := frame.readI32()
	n := frame.readI32()
	key := frame.pop().Int32()
	for i := int32(0); i < n; i++ {
		match := frame.readI32()
		off := frame.readI32()
		if match == key {
			frame.PC = opPC + int(off)
			return nil
		}
	}
	frame.PC = opPC + int(def)
	return nil
}

func align4(pc int) int {
	for pc%4 != 0 {
		pc++
	}
	return pc
}

func floatToInt32(f float32) int32 {
	if f != f {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

func floatToInt64(f float32) int64 {
	if f != f {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func doubleToInt32(f float64) int32 {
	if f != f {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

func doubleToInt64(f float64) int64 {
	if f != f {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}
