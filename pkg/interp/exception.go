package interp

import "github.com/tinyjvm/tinyjvm/pkg/object"

// JavaException carries a live Throwable instance up through Go's error
// return path while it unwinds interpreted frames. Java exceptions are
// ordinary control flow here, distinct from fatal host errors like a
// corrupt class file or an impossible bytecode offset.
type JavaException struct {
	Instance *object.Object
}

func (e *JavaException) Error() string {
	if e.Instance == nil || e.Instance.Class == nil {
		return "JavaException"
	}
	msg, _ := e.messageField()
	if msg != "" {
		return e.Instance.Class.Name + ": " + msg
	}
	return e.Instance.Class.Name
}

func (e *JavaException) messageField() (string, bool) {
	idx := -1
	for _, f := range e.Instance.Class.Fields {
		if f.Name == "message" && !f.IsStatic {
			idx = f.LayoutIndex
		}
	}
	if idx < 0 || idx >= len(e.Instance.Fields) {
		return "", false
	}
	ref := e.Instance.Fields[idx].Ref
	if ref == nil {
		return "", false
	}
	return goStringOf(ref)
}

// goStringOf extracts the backing Go string from a boxed java/lang/String
// instance built by (*Interpreter).NewString.
func goStringOf(obj *object.Object) (string, bool) {
	for _, f := range obj.Class.Fields {
		if f.Name == "value" && !f.IsStatic {
			v := obj.Fields[f.LayoutIndex]
			if v.Ref != nil && v.Ref.Class != nil && v.Ref.Class.Name == "[C" {
				runes := make([]rune, len(v.Ref.Elems))
				for i, c := range v.Ref.Elems {
					runes[i] = rune(c.I)
				}
				return string(runes), true
			}
		}
	}
	return "", false
}

// findHandler searches a method's exception table for the innermost
// handler covering pc that catches an instance of thrown: the first
// matching row wins, catch_type=="" matches anything.
func findHandler(method *object.Method, pc int, thrown *object.Class) (*object.ExceptionEntry, bool) {
	for i := range method.Code.ExceptionTable {
		h := &method.Code.ExceptionTable[i]
		if pc < h.StartPC || pc >= h.EndPC {
			continue
		}
		if h.CatchType == "" {
			return h, true
		}
		for cur := thrown; cur != nil; cur = cur.Super {
			if cur.Name == h.CatchType {
				return h, true
			}
		}
	}
	return nil, false
}
