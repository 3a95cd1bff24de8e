// Package gfunction is the runtime class protocol: the well-known JDK
// classes a small command-line program touches are not
// decoded from .class bytes at all, they are assembled from declarative
// Go tables and installed straight into a classloader.Registry as host
// classes. Each well-known class gets its own file (javalangobject.go,
// javalangstring.go, ...), mirroring jacobin's gfunction/javaLangX.go
// naming and its per-file Load_X() registration convention, generalized
// here into a single Install(reg) that links the whole seed set at once.
package gfunction

import (
	"github.com/pkg/errors"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/classloader"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// FieldSpec declares one field slot a host class contributes.
type FieldSpec struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
}

// MethodSpec declares one natively-implemented method, keyed at install
// time by name+descriptor exactly like a bytecode-backed method would
// be (object.MethodKey) — grounded on jacobin's
// "ClassName.method(descriptor)" MethodSignatures map
// (javaLangThread.go's Load_Lang_Thread).
type MethodSpec struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
	Fn          object.NativeMethod
}

// ClassSpec is one entry in the runtime class protocol: a host-defined
// class assembled from Go data instead of a parsed classfile.ClassFile.
type ClassSpec struct {
	Name        string
	SuperName   string
	Interfaces  []string
	AccessFlags uint16
	Fields      []FieldSpec
	Methods     []MethodSpec
}

var seedClasses []ClassSpec

// register appends one class's prototype to the seed table. Called from
// each well-known class's init() in its own file, the way each of
// jacobin's gfunction files contributes its own Load_X() registration.
func register(spec ClassSpec) {
	seedClasses = append(seedClasses, spec)
}

// Install builds every registered ClassSpec into an *object.Class and
// registers it on reg as a host class (classloader.Registry.
// RegisterHostClass), resolving SuperName/Interfaces against the seed
// set itself rather than relying on Go init() file ordering — a class
// may name a super that a later file in this package happens to
// register, so building is done by recursive memoized lookup, the same
// shape as Registry.LinkClass's own superclass recursion.
func Install(reg *classloader.Registry) error {
	specs := make(map[string]*ClassSpec, len(seedClasses))
	for i := range seedClasses {
		specs[seedClasses[i].Name] = &seedClasses[i]
	}

	built := make(map[string]*object.Class)
	var build func(name string) (*object.Class, error)
	build = func(name string) (*object.Class, error) {
		if c, ok := built[name]; ok {
			return c, nil
		}
		spec, ok := specs[name]
		if !ok {
			return nil, errors.Errorf("gfunction: no seed class registered for %s", name)
		}

		class := object.NewClass(name)
		class.AccessFlags = spec.AccessFlags
		class.SuperName = spec.SuperName
		if spec.SuperName != "" {
			super, err := build(spec.SuperName)
			if err != nil {
				return nil, errors.Wrapf(err, "building %s", name)
			}
			class.Super = super
			class.InstanceFieldCount = super.InstanceFieldCount
		}
		for _, ifaceName := range spec.Interfaces {
			iface, err := build(ifaceName)
			if err != nil {
				return nil, errors.Wrapf(err, "building interface %s of %s", ifaceName, name)
			}
			class.InterfaceNames = append(class.InterfaceNames, ifaceName)
			class.Interfaces = append(class.Interfaces, iface)
		}
		for _, f := range spec.Fields {
			ty, _, err := jtype.Parse(f.Descriptor)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing descriptor of field %s.%s", name, f.Name)
			}
			fd := &object.FieldDef{Name: f.Name, Descriptor: f.Descriptor, Type: ty, AccessFlags: f.AccessFlags}
			if fd.AccessFlags&classfile.AccStatic != 0 {
				fd.IsStatic = true
				fd.LayoutIndex = len(class.StaticValues)
				class.StaticValues = append(class.StaticValues, object.DefaultValue(ty))
			} else {
				fd.LayoutIndex = class.InstanceFieldCount
				class.InstanceFieldCount++
			}
			class.Fields = append(class.Fields, fd)
		}
		for _, ms := range spec.Methods {
			desc, err := jtype.ParseMethod(ms.Descriptor)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing descriptor of method %s.%s", name, ms.Name)
			}
			m := &object.Method{
				Name: ms.Name, Descriptor: ms.Descriptor, Desc: desc,
				AccessFlags: ms.AccessFlags, Class: class, Native: ms.Fn,
			}
			class.Methods[m.Key()] = m
		}

		built[name] = class
		class.State = object.Linked
		reg.RegisterHostClass(class)
		return class, nil
	}

	for name := range specs {
		if _, err := build(name); err != nil {
			return err
		}
	}
	return nil
}
