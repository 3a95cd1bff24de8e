package gfunction

import (
	"strings"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// java/lang/String boxes a char[] in its "value" field, the layout
// pkg/interp's NewString/goStringOf already assume. Its natives are
// grounded on the teacher's handleStringMethod switch in vm.go,
// generalized from vm.go's bare Go string Ref representation to the
// boxed char[]-backed instance this module's object model requires.
func init() {
	register(ClassSpec{
		Name:        "java/lang/String",
		SuperName:   "java/lang/Object",
		AccessFlags: classfile.AccPublic | classfile.AccFinal,
		Fields: []FieldSpec{
			{Name: "value", Descriptor: "[C", AccessFlags: classfile.AccPrivate | classfile.AccFinal},
		},
		Methods: []MethodSpec{
			{Name: "<init>", Descriptor: "()V", Fn: stringInitEmpty},
			{Name: "<init>", Descriptor: "(Ljava/lang/String;)V", Fn: stringInitCopy},
			{Name: "<init>", Descriptor: "([C)V", Fn: stringInitChars},
			{Name: "<init>", Descriptor: "([B)V", Fn: stringInitBytes},
			{Name: "getBytes", Descriptor: "()[B", Fn: stringGetBytes},
			{Name: "length", Descriptor: "()I", Fn: stringLength},
			{Name: "charAt", Descriptor: "(I)C", Fn: stringCharAt},
			{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", Fn: stringEquals},
			{Name: "hashCode", Descriptor: "()I", Fn: stringHashCode},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Fn: stringToString},
			{Name: "concat", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;", Fn: stringConcat},
			{Name: "substring", Descriptor: "(I)Ljava/lang/String;", Fn: stringSubstring1},
			{Name: "substring", Descriptor: "(II)Ljava/lang/String;", Fn: stringSubstring2},
			{Name: "indexOf", Descriptor: "(Ljava/lang/String;)I", Fn: stringIndexOf},
			{Name: "isEmpty", Descriptor: "()Z", Fn: stringIsEmpty},
			{Name: "trim", Descriptor: "()Ljava/lang/String;", Fn: stringTrim},
			{Name: "toUpperCase", Descriptor: "()Ljava/lang/String;", Fn: stringToUpper},
			{Name: "toLowerCase", Descriptor: "()Ljava/lang/String;", Fn: stringToLower},
			{Name: "valueOf", Descriptor: "(I)Ljava/lang/String;", AccessFlags: classfile.AccStatic, Fn: stringValueOfInt},
			{Name: "valueOf", Descriptor: "(Ljava/lang/Object;)Ljava/lang/String;", AccessFlags: classfile.AccStatic, Fn: stringValueOfObject},
		},
	})
}

func goStringOfValue(rt object.Runtime, v object.Value) string {
	if v.IsNull() {
		return "null"
	}
	s, _ := rt.GoString(v.Ref)
	return s
}

func stringInitEmpty(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return setStringValue(rt, this, "")
}

func stringInitCopy(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return setStringValue(rt, this, goStringOfValue(rt, args[0]))
}

func stringInitChars(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	arr := args[0]
	if arr.IsNull() {
		return object.Value{}, rt.Throw("java/lang/NullPointerException", "")
	}
	var b strings.Builder
	for _, c := range arr.Ref.Elems {
		b.WriteRune(rune(c.Int32()))
	}
	return setStringValue(rt, this, b.String())
}

// stringInitBytes decodes a byte[] through the host's platform encoding
// (not assumed to be UTF-8), matching String(byte[])'s reliance on the
// platform default charset.
func stringInitBytes(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	arr := args[0]
	if arr.IsNull() {
		return object.Value{}, rt.Throw("java/lang/NullPointerException", "")
	}
	raw := make([]byte, len(arr.Ref.Elems))
	for i, b := range arr.Ref.Elems {
		raw[i] = byte(b.Int32())
	}
	return setStringValue(rt, this, rt.DecodeStr(raw))
}

// stringGetBytes encodes this string through the host's platform
// encoding, the inverse of stringInitBytes.
func stringGetBytes(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s, _ := rt.GoString(this.Ref)
	raw := rt.EncodeStr(s)
	arr, err := rt.NewArray("B", len(raw))
	if err != nil {
		return object.Value{}, err
	}
	for i, b := range raw {
		arr.Elems[i] = object.ByteValue(int8(b))
	}
	return object.RefValue(arr), nil
}

// setStringValue installs a freshly boxed char[] into this's "value"
// field, used by every constructor form.
func setStringValue(rt object.Runtime, this object.Value, s string) (object.Value, error) {
	charArrClass, err := rt.ResolveClass("[C")
	if err != nil {
		return object.Value{}, err
	}
	runes := []rune(s)
	chars := object.NewArray(charArrClass, jtype.Type{Kind: jtype.Char}, len(runes))
	for i, r := range runes {
		chars.Elems[i] = object.CharValue(uint16(r))
	}
	if _, fd := this.Ref.Class.FindFieldInChain("value"); fd != nil {
		this.Ref.SetField(fd.LayoutIndex, object.RefValue(chars))
	}
	return object.Void, nil
}

func stringLength(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s, _ := rt.GoString(this.Ref)
	return object.IntValue(int32(len([]rune(s)))), nil
}

func stringCharAt(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s := []rune(goStringOfValue(rt, this))
	idx := args[0].Int32()
	if idx < 0 || int(idx) >= len(s) {
		return object.Value{}, rt.Throw("java/lang/IndexOutOfBoundsException", "")
	}
	return object.CharValue(uint16(s[idx])), nil
}

func stringEquals(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	other := args[0]
	if other.IsNull() || other.Ref.Class.Name != "java/lang/String" {
		return object.BoolValue(false), nil
	}
	a, _ := rt.GoString(this.Ref)
	b, _ := rt.GoString(other.Ref)
	return object.BoolValue(a == b), nil
}

func stringHashCode(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s, _ := rt.GoString(this.Ref)
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	return object.IntValue(h), nil
}

func stringToString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return this, nil
}

func stringConcat(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	a, _ := rt.GoString(this.Ref)
	b, _ := rt.GoString(args[0].Ref)
	return object.RefValue(rt.NewString(a + b)), nil
}

func stringSubstring1(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s := []rune(goStringOfValue(rt, this))
	begin := int(args[0].Int32())
	if begin < 0 || begin > len(s) {
		return object.Value{}, rt.Throw("java/lang/IndexOutOfBoundsException", "")
	}
	return object.RefValue(rt.NewString(string(s[begin:]))), nil
}

func stringSubstring2(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s := []rune(goStringOfValue(rt, this))
	begin, end := int(args[0].Int32()), int(args[1].Int32())
	if begin < 0 || end > len(s) || begin > end {
		return object.Value{}, rt.Throw("java/lang/IndexOutOfBoundsException", "")
	}
	return object.RefValue(rt.NewString(string(s[begin:end]))), nil
}

func stringIndexOf(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	a, _ := rt.GoString(this.Ref)
	b, _ := rt.GoString(args[0].Ref)
	return object.IntValue(int32(strings.Index(a, b))), nil
}

func stringIsEmpty(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s, _ := rt.GoString(this.Ref)
	return object.BoolValue(len(s) == 0), nil
}

func stringTrim(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s, _ := rt.GoString(this.Ref)
	return object.RefValue(rt.NewString(strings.TrimSpace(s))), nil
}

func stringToUpper(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s, _ := rt.GoString(this.Ref)
	return object.RefValue(rt.NewString(strings.ToUpper(s))), nil
}

func stringToLower(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	s, _ := rt.GoString(this.Ref)
	return object.RefValue(rt.NewString(strings.ToLower(s))), nil
}

func stringValueOfInt(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.RefValue(rt.NewString(formatInt(args[0].Int32()))), nil
}

func stringValueOfObject(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.RefValue(rt.NewString(valueToString(rt, args[0]))), nil
}
