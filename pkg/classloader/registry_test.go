package classloader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

func registerObjectClass(r *Registry) *object.Class {
	objClass := object.NewClass("java/lang/Object")
	r.RegisterHostClass(objClass)
	objClass.State = object.Initialized
	return objClass
}

// writeBareClass encodes a minimal class file with no fields or methods,
// extending superName, at dir/<name>.class.
func writeBareClass(t *testing.T, dir, name, superName string) {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatalf("encoding: %v", err)
		}
	}
	utf8 := func(s string) {
		w(uint8(classfile.TagUtf8))
		w(uint16(len(s)))
		buf.WriteString(s)
	}

	w(uint32(0xCAFEBABE))
	w(uint16(0))
	w(uint16(61))

	w(uint16(5)) // constant_pool_count
	utf8(name)
	w(uint8(classfile.TagClass))
	w(uint16(1))
	utf8(superName)
	w(uint8(classfile.TagClass))
	w(uint16(3))

	w(uint16(classfile.AccPublic | classfile.AccSuper))
	w(uint16(2)) // this_class
	w(uint16(4)) // super_class
	w(uint16(0)) // interfaces
	w(uint16(0)) // fields
	w(uint16(0)) // methods
	w(uint16(0)) // class attributes

	if err := os.WriteFile(filepath.Join(dir, name+".class"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing class file: %v", err)
	}
}

func TestLinkClassFromFSLoader(t *testing.T) {
	dir := t.TempDir()
	writeBareClass(t, dir, "Foo", "java/lang/Object")

	r := NewRegistry(NewFSLoader(dir))
	registerObjectClass(r)

	class, err := r.LinkClass("Foo")
	if err != nil {
		t.Fatalf("LinkClass: %v", err)
	}
	if class.SuperName != "java/lang/Object" || class.Super == nil {
		t.Fatalf("expected linked superclass, got %+v", class)
	}
	if class.State != object.Linked {
		t.Fatalf("expected Linked state, got %v", class.State)
	}
}

func TestResolveClassRunsInitializerOnce(t *testing.T) {
	dir := t.TempDir()
	writeBareClass(t, dir, "Foo", "java/lang/Object")

	r := NewRegistry(NewFSLoader(dir))
	registerObjectClass(r)

	var inits []string
	r.Initializer = func(c *object.Class) error {
		inits = append(inits, c.Name)
		return nil
	}

	if _, err := r.ResolveClass("Foo"); err != nil {
		t.Fatalf("ResolveClass: %v", err)
	}
	if _, err := r.ResolveClass("Foo"); err != nil {
		t.Fatalf("ResolveClass (second): %v", err)
	}
	if len(inits) != 1 || inits[0] != "Foo" {
		t.Fatalf("expected exactly one initialization of Foo, got %v", inits)
	}
}

func TestArrayClassSynthesis(t *testing.T) {
	r := NewRegistry()
	registerObjectClass(r)

	arr, err := r.ResolveClass("[I")
	if err != nil {
		t.Fatalf("ResolveClass([I): %v", err)
	}
	if arr.ArrayElemType == nil || arr.ArrayElemType.Kind != jtype.Int {
		t.Fatalf("expected int element type, got %+v", arr.ArrayElemType)
	}
	if arr.SuperName != "java/lang/Object" {
		t.Fatalf("expected array superclass java/lang/Object, got %s", arr.SuperName)
	}
	if arr.State != object.Initialized {
		t.Fatalf("expected array class to be pre-initialized, got %v", arr.State)
	}

	arr2, err := r.ResolveClass("[I")
	if err != nil {
		t.Fatalf("second ResolveClass([I): %v", err)
	}
	if arr != arr2 {
		t.Fatal("expected array class synthesis to be memoized")
	}
}

func TestClassNotFoundAcrossLoaders(t *testing.T) {
	r := NewRegistry(NewFSLoader(t.TempDir()))
	registerObjectClass(r)

	if _, err := r.LinkClass("DoesNotExist"); err == nil {
		t.Fatal("expected error for missing class")
	}
}

func TestResolveVirtualMethodWalksSuperclasses(t *testing.T) {
	base := object.NewClass("pkg/Base")
	base.Methods["greet:()V"] = &object.Method{Name: "greet", Descriptor: "()V", Class: base}
	sub := object.NewClass("pkg/Sub")
	sub.Super = base

	m, err := ResolveVirtualMethod(sub, "greet", "()V")
	if err != nil {
		t.Fatalf("ResolveVirtualMethod: %v", err)
	}
	if m.Class != base {
		t.Fatalf("expected method resolved from base class, got %v", m.Class)
	}
}
