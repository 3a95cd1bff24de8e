// Package interp is the bytecode interpreter: frame management, opcode
// dispatch, exception unwinding, and the invoke/field/array machinery.
// It also implements object.Runtime, so native (host) methods re-enter
// the very same Invoke path bytecode uses.
package interp

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/tinyjvm/tinyjvm/pkg/classloader"
	"github.com/tinyjvm/tinyjvm/pkg/host"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// Interpreter is the single-threaded execution engine for one JVM
// instance: one Registry, one Host, one string-intern table.
type Interpreter struct {
	Registry *classloader.Registry
	Host     host.Host

	interned map[string]*object.Object
}

func New(reg *classloader.Registry, h host.Host) *Interpreter {
	it := &Interpreter{Registry: reg, Host: h, interned: make(map[string]*object.Object)}
	reg.Initializer = it.runClinit
	return it
}

func (it *Interpreter) ResolveClass(name string) (*object.Class, error) {
	return it.Registry.ResolveClass(name)
}

func (it *Interpreter) runClinit(class *object.Class) error {
	m := class.FindMethod("<clinit>", "()V")
	if m == nil {
		return nil
	}
	_, err := it.Invoke(m, object.Value{}, nil)
	return err
}

// Invoke runs method to completion, static or instance, native or
// bytecode-backed, non-void result Void otherwise.
func (it *Interpreter) Invoke(method *object.Method, this object.Value, args []object.Value) (object.Value, error) {
	if method.Native != nil {
		return method.Native(it, this, args)
	}
	if method.Code == nil {
		return object.Value{}, errors.Errorf("method %s.%s has no implementation", method.Class.Name, method.Key())
	}

	frame := NewFrame(method)
	slot := 0
	if !method.IsStatic() {
		frame.setLocal(0, this)
		slot = 1
	}
	for _, a := range args {
		frame.setLocal(slot, a)
		if a.IsCategory2() {
			slot += 2
		} else {
			slot++
		}
	}
	return it.execute(frame)
}

// Throw builds a fresh Throwable instance and returns it as a
// *JavaException, matching what `new`+`athrow` of the same exception
// class would produce.
func (it *Interpreter) Throw(className, message string) error {
	class, err := it.Registry.ResolveClass(className)
	if err != nil {
		return errors.Wrapf(err, "resolving exception class %s", className)
	}
	obj := object.NewInstance(class)
	if fd := findField(class, "message"); fd != nil {
		obj.SetField(fd.LayoutIndex, object.RefValue(it.NewString(message)))
	}
	return &JavaException{Instance: obj}
}

func findField(class *object.Class, name string) *object.FieldDef {
	for cur := class; cur != nil; cur = cur.Super {
		if fd := cur.FindField(name); fd != nil && !fd.IsStatic {
			return fd
		}
	}
	return nil
}

// NewString boxes s into an interned java/lang/String instance backed by
// a char[]; repeated calls with an equal s return the same instance, the
// way ldc of equal UTF-8 constants does.
func (it *Interpreter) NewString(s string) *object.Object {
	if obj, ok := it.interned[s]; ok {
		return obj
	}
	class, err := it.Registry.ResolveClass("java/lang/String")
	if err != nil {
		panic(errors.Wrap(err, "java/lang/String must be registered before first use"))
	}
	charArrClass, err := it.Registry.ResolveClass("[C")
	if err != nil {
		panic(err)
	}
	runes := []rune(s)
	chars := object.NewArray(charArrClass, jtype.Type{Kind: jtype.Char}, len(runes))
	for i, r := range runes {
		chars.Elems[i] = object.CharValue(uint16(r))
	}
	obj := object.NewInstance(class)
	if fd := findField(class, "value"); fd != nil {
		obj.SetField(fd.LayoutIndex, object.RefValue(chars))
	}
	it.interned[s] = obj
	return obj
}

func (it *Interpreter) GoString(obj *object.Object) (string, bool) {
	if obj == nil || obj.Class == nil || obj.Class.Name != "java/lang/String" {
		return "", false
	}
	return goStringOf(obj)
}

func (it *Interpreter) Println(s string) { it.Host.Println(s) }

func (it *Interpreter) Print(s string) { it.Host.Print(s) }

func (it *Interpreter) NowMillis() int64 { return it.Host.Now().UnixMilli() }

func (it *Interpreter) SleepMillis(ms int64) { it.Host.Sleep(time.Duration(ms) * time.Millisecond) }

// Spawn hands task to the host's cooperative scheduler, for
// Thread.start.
func (it *Interpreter) Spawn(task func() error) error { return it.Host.Spawn(task) }

// EncodeStr converts s to its platform byte encoding, for
// String.getBytes().
func (it *Interpreter) EncodeStr(s string) []byte { return it.Host.EncodeStr(s) }

// DecodeStr converts platform-encoded bytes back to a string, for the
// String(byte[]) constructor.
func (it *Interpreter) DecodeStr(b []byte) string { return it.Host.DecodeStr(b) }

// LoadResource reads a classpath or jar-relative resource, for
// Class.getResourceAsBytes.
func (it *Interpreter) LoadResource(name string) ([]byte, error) { return it.Host.LoadResource(name) }

func (it *Interpreter) NewArray(elemDesc string, n int) (*object.Object, error) {
	arrClass, err := it.Registry.ResolveClass("[" + elemDesc)
	if err != nil {
		return nil, err
	}
	elemType, _, err := jtype.Parse(elemDesc)
	if err != nil {
		return nil, err
	}
	return object.NewArray(arrClass, elemType, n), nil
}

// dispatchExceptional checks whether frame's own exception table catches
// err at the instruction that started at pc. It mutates frame (clearing
// the stack and pushing the exception, then jumping PC) when it does.
func (it *Interpreter) dispatchExceptional(frame *Frame, pc int, err error) (handled bool, rerr error) {
	je, ok := err.(*JavaException)
	if !ok {
		return false, err // fatal host error: never caught by Java catch blocks
	}
	if h, found := findHandler(frame.Method, pc, je.Instance.Class); found {
		frame.Stack = frame.Stack[:0]
		frame.push(object.RefValue(je.Instance))
		frame.PC = h.HandlerPC
		return true, nil
	}
	return false, err
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// fcmp implements fcmpl/fcmpg: NaN makes the comparison "less" for the
// l-variant and "greater" for the g-variant, which is how Java's
// source-level < / > on NaN always evaluates false.
func fcmp(a, b float32, nanIsGreater bool) int32 {
	switch {
	case math.IsNaN(float64(a)) || math.IsNaN(float64(b)):
		if nanIsGreater {
			return 1
		}
		return -1
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func dcmp(a, b float64, nanIsGreater bool) int32 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		if nanIsGreater {
			return 1
		}
		return -1
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
