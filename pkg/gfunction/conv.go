package gfunction

import (
	"math"
	"strconv"

	"github.com/tinyjvm/tinyjvm/pkg/classloader"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// valueToString converts a Value to the string Java's string-conversion
// context (println(Object), StringBuilder.append(Object),
// String.valueOf(Object)) would produce, grounded directly on the
// teacher's valueToString (vm.go) and formatDouble helpers, adapted to
// this module's tagged object.Value instead of vm.go's own Value type
// and boxed primitive wrapper classes instead of raw Go scalars.
func valueToString(rt object.Runtime, v object.Value) string {
	switch v.Kind {
	case jtype.Int, jtype.Short, jtype.Byte:
		return formatInt(v.Int32())
	case jtype.Long:
		return strconv.FormatInt(v.I, 10)
	case jtype.Float:
		if f := float64(v.F32); f == math.Trunc(f) && !math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'f', 1, 32)
		}
		return strconv.FormatFloat(float64(v.F32), 'g', -1, 32)
	case jtype.Double:
		return formatDouble(v.F64)
	case jtype.Boolean:
		return strconv.FormatBool(v.Bool())
	case jtype.Char:
		return string(rune(v.I))
	case jtype.ClassRef, jtype.ArrayOf:
		if v.IsNull() {
			return "null"
		}
		if v.Ref.Class.Name == "java/lang/String" {
			s, _ := rt.GoString(v.Ref)
			return s
		}
		if m, err := classloader.ResolveVirtualMethod(v.Ref.Class, "toString", "()Ljava/lang/String;"); err == nil {
			if result, err := rt.Invoke(m, v, nil); err == nil && !result.IsNull() {
				s, _ := rt.GoString(result.Ref)
				return s
			}
		}
		return v.Ref.Class.Name
	default:
		return ""
	}
}

func formatInt(i int32) string { return strconv.FormatInt(int64(i), 10) }

// formatDouble matches Java's Double.toString edge cases enough for
// println/StringBuilder purposes: whole-valued finite doubles print
// with one decimal digit ("3.0"), everything else uses Go's shortest
// round-tripping form, mirroring the teacher's own formatDouble.
func formatDouble(d float64) string {
	if d == float64(int64(d)) && !math.IsInf(d, 0) {
		return strconv.FormatFloat(d, 'f', 1, 64)
	}
	return strconv.FormatFloat(d, 'f', -1, 64)
}
