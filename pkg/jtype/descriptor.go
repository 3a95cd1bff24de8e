// Package jtype parses JVM type and method descriptors into the tagged
// type model used throughout the interpreter and object model.
package jtype

import (
	"strings"

	"github.com/pkg/errors"
)

// Kind discriminates the variants of a Java type.
type Kind int

const (
	Boolean Kind = iota
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	Void
	ClassRef
	ArrayOf
)

// Type is the tagged type model: a primitive, a class reference by
// internal name, or a recursive array-of-T.
type Type struct {
	Kind      Kind
	ClassName string // valid when Kind == ClassRef
	Elem      *Type  // valid when Kind == ArrayOf
}

func (t Type) String() string {
	switch t.Kind {
	case ClassRef:
		return "L" + t.ClassName + ";"
	case ArrayOf:
		return "[" + t.Elem.String()
	default:
		c, ok := kindToChar[t.Kind]
		if !ok {
			return "?"
		}
		return string(c)
	}
}

// IsCategory2 reports whether a value of this type occupies two local
// slots / a single category-2 operand-stack entry (long, double).
func (t Type) IsCategory2() bool {
	return t.Kind == Long || t.Kind == Double
}

// IsPrimitive reports whether the type is one of the eight JVM primitives.
func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case Boolean, Byte, Char, Short, Int, Long, Float, Double:
		return true
	default:
		return false
	}
}

var kindToChar = map[Kind]byte{
	Boolean: 'Z', Byte: 'B', Char: 'C', Short: 'S',
	Int: 'I', Long: 'J', Float: 'F', Double: 'D', Void: 'V',
}

var charToKind = map[byte]Kind{
	'Z': Boolean, 'B': Byte, 'C': Char, 'S': Short,
	'I': Int, 'J': Long, 'F': Float, 'D': Double, 'V': Void,
}

// Parse parses a single field/type descriptor ("I", "[B",
// "Ljava/lang/String;", "[[Ljava/lang/String;") and returns the type plus
// the number of bytes consumed.
func Parse(desc string) (Type, int, error) {
	if len(desc) == 0 {
		return Type{}, 0, errors.New("jtype: empty descriptor")
	}
	switch c := desc[0]; c {
	case '[':
		elem, n, err := Parse(desc[1:])
		if err != nil {
			return Type{}, 0, errors.Wrap(err, "jtype: parsing array element type")
		}
		return Type{Kind: ArrayOf, Elem: &elem}, n + 1, nil
	case 'L':
		end := strings.IndexByte(desc, ';')
		if end < 0 {
			return Type{}, 0, errors.Errorf("jtype: unterminated class descriptor %q", desc)
		}
		return Type{Kind: ClassRef, ClassName: desc[1:end]}, end + 1, nil
	default:
		kind, ok := charToKind[c]
		if !ok {
			return Type{}, 0, errors.Errorf("jtype: unknown descriptor character %q", c)
		}
		return Type{Kind: kind}, 1, nil
	}
}

// MethodDescriptor is the parsed form of a method signature, e.g.
// "(IJ)V" -> Params=[Int, Long], Return=Void.
type MethodDescriptor struct {
	Params []Type
	Return Type
	Raw    string
}

// ParseMethod parses a full method descriptor "(args)ret".
func ParseMethod(desc string) (*MethodDescriptor, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, errors.Errorf("jtype: malformed method descriptor %q", desc)
	}
	end := strings.IndexByte(desc, ')')
	if end < 0 {
		return nil, errors.Errorf("jtype: unterminated parameter list in %q", desc)
	}
	paramsRaw := desc[1:end]
	var params []Type
	for i := 0; i < len(paramsRaw); {
		t, n, err := Parse(paramsRaw[i:])
		if err != nil {
			return nil, errors.Wrapf(err, "jtype: parsing parameter in %q", desc)
		}
		params = append(params, t)
		i += n
	}
	ret, _, err := Parse(desc[end+1:])
	if err != nil {
		return nil, errors.Wrapf(err, "jtype: parsing return type in %q", desc)
	}
	return &MethodDescriptor{Params: params, Return: ret, Raw: desc}, nil
}

// IsVoidReturn reports whether the descriptor's return type is void.
func IsVoidReturn(desc string) bool {
	return strings.HasSuffix(desc, ")V")
}

// ParamSlots returns the number of JVM local-variable slots the parsed
// parameters occupy (category-2 types count twice).
func (m *MethodDescriptor) ParamSlots() int {
	n := 0
	for _, p := range m.Params {
		if p.IsCategory2() {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// NormalizeClassName converts a dotted class name (as found in JAR
// manifests) to the slash-separated internal form used everywhere else
// in the core.
func NormalizeClassName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
