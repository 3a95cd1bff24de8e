package gfunction

import (
	"strings"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// classMirrors caches one java/lang/Class instance per *object.Class, so
// getClass() returns the identity-equal mirror every
// time, matching the teacher's JObject{ClassName: "java/lang/Class",
// Fields: {"name": ...}} idiom (vm.go), generalized to hold the actual
// resolved class pointer (mirroredClasses) instead of just its name.
var classMirrors = map[*object.Class]*object.Object{}
var mirroredClasses = map[*object.Object]*object.Class{}

func init() {
	register(ClassSpec{
		Name:        "java/lang/Class",
		SuperName:   "java/lang/Object",
		AccessFlags: classfile.AccPublic | classfile.AccFinal,
		Fields: []FieldSpec{
			{Name: "name", Descriptor: "Ljava/lang/String;", AccessFlags: classfile.AccPrivate},
		},
		Methods: []MethodSpec{
			{Name: "getName", Descriptor: "()Ljava/lang/String;", Fn: classGetName},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", Fn: classToString},
			{Name: "isInterface", Descriptor: "()Z", Fn: classIsInterface},
			{Name: "isArray", Descriptor: "()Z", Fn: classIsArray},
			{Name: "getResourceAsBytes", Descriptor: "(Ljava/lang/String;)[B", Fn: classGetResourceAsBytes},
		},
	})
}

func newClassMirror(rt object.Runtime, raw *object.Class) (object.Value, error) {
	if obj, ok := classMirrors[raw]; ok {
		return object.RefValue(obj), nil
	}
	classClass, err := rt.ResolveClass("java/lang/Class")
	if err != nil {
		return object.Value{}, err
	}
	obj := object.NewInstance(classClass)
	if _, fd := classClass.FindFieldInChain("name"); fd != nil {
		obj.SetField(fd.LayoutIndex, object.RefValue(rt.NewString(binaryName(raw.Name))))
	}
	classMirrors[raw] = obj
	mirroredClasses[obj] = raw
	return object.RefValue(obj), nil
}

func binaryName(internalName string) string {
	return strings.ReplaceAll(internalName, "/", ".")
}

func classGetName(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return fieldValue(this, "name"), nil
}

func classToString(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	raw := mirroredClasses[this.Ref]
	prefix := "class "
	if raw != nil && raw.IsInterface() {
		prefix = "interface "
	}
	name := ""
	if raw != nil {
		name = binaryName(raw.Name)
	}
	return object.RefValue(rt.NewString(prefix + name)), nil
}

func classIsInterface(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	raw := mirroredClasses[this.Ref]
	return object.BoolValue(raw != nil && raw.IsInterface()), nil
}

func classIsArray(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	raw := mirroredClasses[this.Ref]
	return object.BoolValue(raw != nil && raw.IsArray()), nil
}

// classGetResourceAsBytes reads a classpath or jar-bundled resource,
// returning it as a byte[] (null if not found) — a readAllBytes-style
// surface standing in for getResourceAsStream since this core models no
// java/io/InputStream hierarchy.
func classGetResourceAsBytes(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	name := goStringOfValue(rt, args[0])
	data, err := rt.LoadResource(name)
	if err != nil {
		return object.Null, nil
	}
	arr, err := rt.NewArray("B", len(data))
	if err != nil {
		return object.Value{}, err
	}
	for i, b := range data {
		arr.Elems[i] = object.ByteValue(int8(b))
	}
	return object.RefValue(arr), nil
}

func fieldValue(this object.Value, name string) object.Value {
	if this.IsNull() {
		return object.Void
	}
	_, fd := this.Ref.Class.FindFieldInChain(name)
	if fd == nil {
		return object.Void
	}
	return this.Ref.GetField(fd.LayoutIndex)
}
