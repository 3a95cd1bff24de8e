package classfile

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"
)

// buildMinimalClass encodes a tiny class file by hand: a public class
// "Hello" extending java/lang/Object with a single method
// "main([Ljava/lang/String;)V" whose Code attribute is just "return".
// This stands in for a fixture .class file since no JDK is available to
// compile one.
func buildMinimalClass(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatalf("encoding: %v", err)
		}
	}
	utf8 := func(s string) {
		w(uint8(TagUtf8))
		w(uint16(len(s)))
		buf.WriteString(s)
	}

	w(uint32(classMagic))
	w(uint16(0))  // minor
	w(uint16(61)) // major (Java 17)

	// Constant pool:
	//  1 Utf8 "Hello"
	//  2 Class #1
	//  3 Utf8 "java/lang/Object"
	//  4 Class #3
	//  5 Utf8 "main"
	//  6 Utf8 "([Ljava/lang/String;)V"
	//  7 Utf8 "Code"
	w(uint16(8)) // constant_pool_count = count+1
	utf8("Hello")
	w(uint8(TagClass))
	w(uint16(1))
	utf8("java/lang/Object")
	w(uint8(TagClass))
	w(uint16(3))
	utf8("main")
	utf8("([Ljava/lang/String;)V")
	utf8("Code")

	w(uint16(AccPublic | AccSuper)) // access_flags
	w(uint16(2))                    // this_class
	w(uint16(4))                    // super_class
	w(uint16(0))                    // interfaces_count
	w(uint16(0))                    // fields_count

	w(uint16(1))                     // methods_count
	w(uint16(AccPublic | AccStatic)) // access_flags
	w(uint16(5))                     // name_index -> "main"
	w(uint16(6))                     // descriptor_index
	w(uint16(1))                     // attributes_count
	w(uint16(7))                     // attribute_name_index -> "Code"

	var code bytes.Buffer
	cw := func(v interface{}) { binary.Write(&code, binary.BigEndian, v) }
	cw(uint16(1))        // max_stack
	cw(uint16(1))        // max_locals
	cw(uint32(1))        // code_length
	code.WriteByte(0xb1) // return
	cw(uint16(0))        // exception_table_length
	cw(uint16(0))        // attributes_count

	w(uint32(code.Len()))
	buf.Write(code.Bytes())

	w(uint16(0)) // class attributes_count

	return buf.Bytes()
}

func TestParseMinimalClass(t *testing.T) {
	raw := buildMinimalClass(t)
	cf, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cf.MajorVersion != 61 {
		t.Errorf("major version = %d, want 61", cf.MajorVersion)
	}

	name, err := cf.ClassName()
	if err != nil {
		t.Fatalf("ClassName: %v", err)
	}
	if name != "Hello" {
		t.Errorf("ClassName = %q, want Hello", name)
	}

	super, err := cf.SuperClassName()
	if err != nil {
		t.Fatalf("SuperClassName: %v", err)
	}
	if super != "java/lang/Object" {
		t.Errorf("SuperClassName = %q, want java/lang/Object", super)
	}

	m := cf.FindMethod("main", "([Ljava/lang/String;)V")
	if m == nil {
		t.Fatal("main method not found")
	}
	if m.Code == nil {
		t.Fatal("main has no Code attribute")
	}
	if len(m.Code.Code) != 1 || m.Code.Code[0] != 0xb1 {
		t.Errorf("Code bytes = %v, want [0xb1]", m.Code.Code)
	}
	if m.Code.MaxStack != 1 || m.Code.MaxLocals != 1 {
		t.Errorf("MaxStack/MaxLocals = %d/%d, want 1/1", m.Code.MaxStack, m.Code.MaxLocals)
	}
}

// TestRoundTrip checks decode(encode(decode(x))) == decode(x): re-encoding
// a parsed class and re-parsing the result must reproduce the same
// logical structure, not necessarily the same bytes (placeholder
// constant pool entries like MethodHandle carry no retained payload).
func TestRoundTrip(t *testing.T) {
	raw := buildMinimalClass(t)
	cf, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	encoded, err := Encode(cf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cf2, err := Parse(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("re-Parse of encoded bytes: %v", err)
	}

	if !reflect.DeepEqual(cf, cf2) {
		t.Fatalf("round trip mismatch:\n  original: %+v\n  roundtrip: %+v", cf, cf2)
	}
}

func TestParseInvalidMagic(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	if err == nil {
		t.Fatal("expected error for invalid magic number, got nil")
	}
}

func TestParseTruncated(t *testing.T) {
	raw := buildMinimalClass(t)
	_, err := Parse(bytes.NewReader(raw[:len(raw)-10]))
	if err == nil {
		t.Fatal("expected error for truncated class file, got nil")
	}
}
