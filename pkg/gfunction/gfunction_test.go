package gfunction

import (
	"testing"

	"github.com/tinyjvm/tinyjvm/pkg/classloader"
	"github.com/tinyjvm/tinyjvm/pkg/host"
	"github.com/tinyjvm/tinyjvm/pkg/interp"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

func newTestRuntime(t *testing.T) (*interp.Interpreter, *host.FakeHost) {
	t.Helper()
	reg := classloader.NewRegistry()
	if err := Install(reg); err != nil {
		t.Fatalf("Install: %v", err)
	}
	fh := host.NewFakeHost()
	return interp.New(reg, fh), fh
}

func TestStringConcatAndEquals(t *testing.T) {
	it, _ := newTestRuntime(t)
	a := it.NewString("hello ")
	b := it.NewString("world")

	strClass, err := it.ResolveClass("java/lang/String")
	if err != nil {
		t.Fatalf("ResolveClass: %v", err)
	}
	concat := strClass.FindMethod("concat", "(Ljava/lang/String;)Ljava/lang/String;")
	result, err := it.Invoke(concat, object.RefValue(a), []object.Value{object.RefValue(b)})
	if err != nil {
		t.Fatalf("Invoke concat: %v", err)
	}
	got, _ := it.GoString(result.Ref)
	if got != "hello world" {
		t.Fatalf("concat = %q, want %q", got, "hello world")
	}

	equals := strClass.FindMethod("equals", "(Ljava/lang/Object;)Z")
	eq, err := it.Invoke(equals, result, []object.Value{object.RefValue(it.NewString("hello world"))})
	if err != nil {
		t.Fatalf("Invoke equals: %v", err)
	}
	if !eq.Bool() {
		t.Fatalf("equals(%q) = false, want true", "hello world")
	}
}

func TestStringBuilderAppendChain(t *testing.T) {
	it, _ := newTestRuntime(t)
	sbClass, err := it.ResolveClass("java/lang/StringBuilder")
	if err != nil {
		t.Fatalf("ResolveClass: %v", err)
	}
	sb := object.NewInstance(sbClass)
	this := object.RefValue(sb)

	init := sbClass.FindMethod("<init>", "()V")
	if _, err := it.Invoke(init, this, nil); err != nil {
		t.Fatalf("<init>: %v", err)
	}

	appendInt := sbClass.FindMethod("append", "(I)Ljava/lang/StringBuilder;")
	if _, err := it.Invoke(appendInt, this, []object.Value{object.IntValue(7)}); err != nil {
		t.Fatalf("append(I): %v", err)
	}
	appendStr := sbClass.FindMethod("append", "(Ljava/lang/String;)Ljava/lang/StringBuilder;")
	if _, err := it.Invoke(appendStr, this, []object.Value{object.RefValue(it.NewString(" bottles"))}); err != nil {
		t.Fatalf("append(String): %v", err)
	}

	toString := sbClass.FindMethod("toString", "()Ljava/lang/String;")
	result, err := it.Invoke(toString, this, nil)
	if err != nil {
		t.Fatalf("toString: %v", err)
	}
	got, _ := it.GoString(result.Ref)
	if got != "7 bottles" {
		t.Fatalf("toString = %q, want %q", got, "7 bottles")
	}
}

func TestPrintStreamPrintlnWritesToHost(t *testing.T) {
	it, fh := newTestRuntime(t)
	sysClass, err := it.ResolveClass("java/lang/System")
	if err != nil {
		t.Fatalf("ResolveClass System: %v", err)
	}
	_, fd := sysClass.FindFieldInChain("out")
	out := sysClass.StaticValues[fd.LayoutIndex]
	if out.IsNull() {
		t.Fatal("System.out was not initialized by <clinit>")
	}

	psClass, _ := it.ResolveClass("java/io/PrintStream")
	println := psClass.FindMethod("println", "(Ljava/lang/String;)V")
	if _, err := it.Invoke(println, out, []object.Value{object.RefValue(it.NewString("hi"))}); err != nil {
		t.Fatalf("println: %v", err)
	}
	if fh.Output.String() != "hi\n" {
		t.Fatalf("host output = %q, want %q", fh.Output.String(), "hi\n")
	}
}

func TestArithmeticExceptionCarriesMessage(t *testing.T) {
	it, _ := newTestRuntime(t)
	err := it.Throw("java/lang/ArithmeticException", "/ by zero")
	je, ok := err.(*interp.JavaException)
	if !ok {
		t.Fatalf("expected *interp.JavaException, got %T", err)
	}
	excClass, _ := it.ResolveClass("java/lang/ArithmeticException")
	getMessage := excClass.FindMethod("getMessage", "()Ljava/lang/String;")
	result, ierr := it.Invoke(getMessage, object.RefValue(je.Instance), nil)
	if ierr != nil {
		t.Fatalf("getMessage: %v", ierr)
	}
	got, _ := it.GoString(result.Ref)
	if got != "/ by zero" {
		t.Fatalf("getMessage = %q, want %q", got, "/ by zero")
	}
}

func TestIntegerBoxingUnboxing(t *testing.T) {
	it, _ := newTestRuntime(t)
	intClass, err := it.ResolveClass("java/lang/Integer")
	if err != nil {
		t.Fatalf("ResolveClass: %v", err)
	}
	valueOf := intClass.FindMethod("valueOf", "(I)Ljava/lang/Integer;")
	boxed, err := it.Invoke(valueOf, object.Value{}, []object.Value{object.IntValue(42)})
	if err != nil {
		t.Fatalf("valueOf: %v", err)
	}
	intValue := intClass.FindMethod("intValue", "()I")
	unboxed, err := it.Invoke(intValue, boxed, nil)
	if err != nil {
		t.Fatalf("intValue: %v", err)
	}
	if unboxed.Int32() != 42 {
		t.Fatalf("unboxed = %d, want 42", unboxed.Int32())
	}
}

func TestMathStaticMethods(t *testing.T) {
	it, _ := newTestRuntime(t)
	mathClass, err := it.ResolveClass("java/lang/Math")
	if err != nil {
		t.Fatalf("ResolveClass: %v", err)
	}
	maxMethod := mathClass.FindMethod("max", "(II)I")
	result, err := it.Invoke(maxMethod, object.Value{}, []object.Value{object.IntValue(3), object.IntValue(9)})
	if err != nil {
		t.Fatalf("max: %v", err)
	}
	if result.Int32() != 9 {
		t.Fatalf("max(3,9) = %d, want 9", result.Int32())
	}
}
