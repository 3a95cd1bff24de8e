package object

import (
	"testing"

	"github.com/tinyjvm/tinyjvm/pkg/jtype"
)

func TestNewInstanceZeroesFields(t *testing.T) {
	super := NewClass("java/lang/Object")
	super.State = Initialized

	base := NewClass("pkg/Base")
	base.Super = super
	base.Fields = []*FieldDef{{Name: "x", Type: jtype.Type{Kind: jtype.Int}, LayoutIndex: 0}}
	base.InstanceFieldCount = 1

	sub := NewClass("pkg/Sub")
	sub.Super = base
	sub.Fields = []*FieldDef{{Name: "y", Type: jtype.Type{Kind: jtype.Long}, LayoutIndex: 1}}
	sub.InstanceFieldCount = 2

	obj := NewInstance(sub)
	if len(obj.Fields) != 2 {
		t.Fatalf("expected 2 field slots, got %d", len(obj.Fields))
	}
	if obj.GetField(0).Kind != jtype.Int || obj.GetField(0).I != 0 {
		t.Fatalf("inherited field not defaulted: %+v", obj.GetField(0))
	}
	if obj.GetField(1).Kind != jtype.Long {
		t.Fatalf("own field not defaulted: %+v", obj.GetField(1))
	}
}

func TestIsSubclassOfAndInterfaces(t *testing.T) {
	object := NewClass("java/lang/Object")
	runnable := NewClass("java/lang/Runnable")
	runnable.AccessFlags = 0x0200

	base := NewClass("pkg/Base")
	base.Super = object
	base.Interfaces = []*Class{runnable}

	sub := NewClass("pkg/Sub")
	sub.Super = base

	if !sub.IsSubclassOf(object) {
		t.Fatal("expected transitive subclass relation")
	}
	if !sub.ImplementsInterface(runnable) {
		t.Fatal("expected transitive interface implementation")
	}
	if !sub.IsAssignableTo(runnable, nil) {
		t.Fatal("expected assignable via interface")
	}
}

func TestArrayCovariance(t *testing.T) {
	intArr := NewClass("[I")
	intArr.ArrayElemType = &jtype.Type{Kind: jtype.Int}
	otherIntArr := NewClass("[I")
	otherIntArr.ArrayElemType = &jtype.Type{Kind: jtype.Int}
	longArr := NewClass("[J")
	longArr.ArrayElemType = &jtype.Type{Kind: jtype.Long}

	if !intArr.IsAssignableTo(otherIntArr, nil) {
		t.Fatal("expected equivalent primitive array types to be assignable")
	}
	if intArr.IsAssignableTo(longArr, nil) {
		t.Fatal("primitive arrays must be invariant")
	}
}

func TestReferenceArrayCovariance(t *testing.T) {
	object := NewClass("java/lang/Object")
	object.State = Initialized

	str := NewClass("java/lang/String")
	str.Super = object

	integer := NewClass("java/lang/Integer")
	integer.Super = object

	classes := map[string]*Class{
		"java/lang/Object":  object,
		"java/lang/String":  str,
		"java/lang/Integer": integer,
	}
	resolve := func(name string) (*Class, error) {
		c, ok := classes[name]
		if !ok {
			t.Fatalf("unexpected resolve of %q", name)
		}
		return c, nil
	}

	strArr := NewClass("[Ljava/lang/String;")
	strArr.ArrayElemType = &jtype.Type{Kind: jtype.ClassRef, ClassName: "java/lang/String"}

	objArr := NewClass("[Ljava/lang/Object;")
	objArr.ArrayElemType = &jtype.Type{Kind: jtype.ClassRef, ClassName: "java/lang/Object"}

	intArr := NewClass("[Ljava/lang/Integer;")
	intArr.ArrayElemType = &jtype.Type{Kind: jtype.ClassRef, ClassName: "java/lang/Integer"}

	if !strArr.IsAssignableTo(objArr, resolve) {
		t.Fatal("String[] should be assignable to Object[]")
	}
	if intArr.IsAssignableTo(strArr, resolve) {
		t.Fatal("Integer[] should not be assignable to String[]")
	}
}

func TestValueCategory2(t *testing.T) {
	if !LongValue(5).IsCategory2() || !DoubleValue(1.5).IsCategory2() {
		t.Fatal("long/double must be category 2")
	}
	if IntValue(5).IsCategory2() || BoolValue(true).IsCategory2() {
		t.Fatal("int/boolean must be category 1")
	}
}

func TestNullValue(t *testing.T) {
	v := Value{Kind: jtype.ClassRef}
	if !v.IsNull() {
		t.Fatal("zero-value reference should be null")
	}
	obj := &Object{}
	if RefValue(obj).IsNull() {
		t.Fatal("non-nil ref should not be null")
	}
}
