package gfunction

import (
	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// java/util/HashMap, adapted from the teacher's standalone
// NativeHashMap{Data map[interface{}]interface{}} (pkg/native/hashmap.go)
// into a host class wired through the runtime class protocol. Each
// instance keeps its backing Go map in hashMapData, keyed by this
// module's own valueToString (standing in for Java hashCode/equals
// dispatch, which this seed set doesn't carry for arbitrary
// user-defined key types) — good enough for the string/boxed-primitive
// keys a small command-line program actually uses.
func init() {
	register(ClassSpec{
		Name:        "java/util/HashMap",
		SuperName:   "java/lang/Object",
		Interfaces:  []string{"java/util/Map"},
		AccessFlags: classfile.AccPublic,
		Methods: []MethodSpec{
			{Name: "<init>", Descriptor: "()V", Fn: hashMapInit},
			{Name: "put", Descriptor: "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", Fn: hashMapPut},
			{Name: "get", Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;", Fn: hashMapGet},
			{Name: "containsKey", Descriptor: "(Ljava/lang/Object;)Z", Fn: hashMapContainsKey},
			{Name: "remove", Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;", Fn: hashMapRemove},
			{Name: "size", Descriptor: "()I", Fn: hashMapSize},
			{Name: "isEmpty", Descriptor: "()Z", Fn: hashMapIsEmpty},
		},
	})
	register(ClassSpec{
		Name:        "java/util/Map",
		SuperName:   "",
		AccessFlags: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
	})
}

type hashMapEntry struct {
	key, value object.Value
}

var hashMapData = map[*object.Object]map[string]*hashMapEntry{}

func hashMapInit(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	hashMapData[this.Ref] = make(map[string]*hashMapEntry)
	return object.Void, nil
}

func hashMapPut(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	m := hashMapData[this.Ref]
	key := mapKeyOf(rt, args[0])
	old := object.Value{}
	if e, ok := m[key]; ok {
		old = e.value
	}
	m[key] = &hashMapEntry{key: args[0], value: args[1]}
	return old, nil
}

func hashMapGet(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	m := hashMapData[this.Ref]
	if e, ok := m[mapKeyOf(rt, args[0])]; ok {
		return e.value, nil
	}
	return object.Value{Kind: args[0].Kind}, nil
}

func hashMapContainsKey(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	m := hashMapData[this.Ref]
	_, ok := m[mapKeyOf(rt, args[0])]
	return object.BoolValue(ok), nil
}

func hashMapRemove(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	m := hashMapData[this.Ref]
	key := mapKeyOf(rt, args[0])
	old := object.Value{}
	if e, ok := m[key]; ok {
		old = e.value
	}
	delete(m, key)
	return old, nil
}

func hashMapSize(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.IntValue(int32(len(hashMapData[this.Ref]))), nil
}

func hashMapIsEmpty(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.BoolValue(len(hashMapData[this.Ref]) == 0), nil
}

func mapKeyOf(rt object.Runtime, v object.Value) string {
	return valueToString(rt, v)
}
