package classloader

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// Registry is the ordered loader chain plus the memoized class table:
// each class name resolves at most once to a linked object.Class, and
// that Class only ever moves forward through its lifecycle (Loading ->
// Linked -> Initializing -> Initialized).
type Registry struct {
	Loaders []Loader
	classes map[string]*object.Class

	// Initializer runs a class's <clinit> the first time the class is
	// resolved (static fields already hold their defaults by then). It
	// is supplied by the interpreter, since running bytecode is its job,
	// not the loader's.
	Initializer func(*object.Class) error
}

func NewRegistry(loaders ...Loader) *Registry {
	return &Registry{Loaders: loaders, classes: make(map[string]*object.Class)}
}

// RegisterHostClass installs an already-built class (declared through
// the gfunction registration protocol) directly into the table,
// bypassing the .class decoder entirely.
func (r *Registry) RegisterHostClass(class *object.Class) {
	class.State = object.Linked
	r.classes[class.Name] = class
}

// Lookup returns an already-resolved class without triggering loading.
func (r *Registry) Lookup(name string) (*object.Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// LinkClass loads and links name (superclass, interfaces, field layout,
// method table) but does not run static initialization.
func (r *Registry) LinkClass(name string) (*object.Class, error) {
	if c, ok := r.classes[name]; ok {
		if c.State == object.Loading {
			return nil, errors.Errorf("class circularity error: %s", name)
		}
		return c, nil
	}
	if strings.HasPrefix(name, "[") {
		return r.linkArrayClass(name)
	}

	cf, err := r.findRaw(name)
	if err != nil {
		return nil, err
	}

	class := object.NewClass(name)
	class.State = object.Loading
	r.classes[name] = class
	class.SourceFile = cf.SourceFile
	class.AccessFlags = cf.AccessFlags
	class.RawConstantPool = cf.ConstantPool

	superName, err := cf.SuperClassName()
	if err != nil {
		return nil, errors.Wrapf(err, "resolving superclass of %s", name)
	}
	class.SuperName = superName
	if superName != "" {
		super, err := r.LinkClass(superName)
		if err != nil {
			return nil, errors.Wrapf(err, "linking superclass %s of %s", superName, name)
		}
		class.Super = super
	}

	ifaceNames, err := cf.InterfaceNames()
	if err != nil {
		return nil, errors.Wrapf(err, "resolving interfaces of %s", name)
	}
	class.InterfaceNames = ifaceNames
	for _, ifaceName := range ifaceNames {
		iface, err := r.LinkClass(ifaceName)
		if err != nil {
			return nil, errors.Wrapf(err, "linking interface %s of %s", ifaceName, name)
		}
		class.Interfaces = append(class.Interfaces, iface)
	}

	if err := layoutFields(class, cf); err != nil {
		return nil, errors.Wrapf(err, "laying out fields of %s", name)
	}
	if err := buildMethods(class, cf); err != nil {
		return nil, errors.Wrapf(err, "building methods of %s", name)
	}

	class.State = object.Linked
	return class, nil
}

// ResolveClass links name (if needed) and ensures it, and every
// superclass above it, has completed static initialization.
func (r *Registry) ResolveClass(name string) (*object.Class, error) {
	class, err := r.LinkClass(name)
	if err != nil {
		return nil, err
	}
	return r.ensureInitialized(class)
}

func (r *Registry) ensureInitialized(class *object.Class) (*object.Class, error) {
	if class.State == object.Initialized || class.State == object.Initializing {
		return class, nil // reentrant: a class's own <clinit> may trigger its own resolution
	}
	if class.Super != nil {
		if _, err := r.ensureInitialized(class.Super); err != nil {
			return nil, err
		}
	}
	class.State = object.Initializing
	if r.Initializer != nil {
		if err := r.Initializer(class); err != nil {
			return nil, err
		}
	}
	class.State = object.Initialized
	return class, nil
}

func (r *Registry) findRaw(name string) (*classfile.ClassFile, error) {
	var lastErr error
	for _, loader := range r.Loaders {
		cf, err := loader.LoadClass(name)
		if err == nil {
			return cf, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, errors.Errorf("no loader configured, cannot load %s", name)
	}
	return nil, errors.Wrapf(lastErr, "class %s not found in any loader", name)
}

// linkArrayClass synthesizes the class object for an array type on
// first use. Arrays need no initialization, so they're marked
// Initialized immediately.
func (r *Registry) linkArrayClass(name string) (*object.Class, error) {
	elemType, _, err := jtype.Parse(name[1:])
	if err != nil {
		return nil, errors.Wrapf(err, "parsing array class name %s", name)
	}
	objectClass, err := r.ResolveClass("java/lang/Object")
	if err != nil {
		return nil, errors.Wrap(err, "resolving java/lang/Object for array class")
	}
	class := object.NewClass(name)
	class.ArrayElemType = &elemType
	class.Super = objectClass
	class.SuperName = "java/lang/Object"
	class.State = object.Initialized
	r.classes[name] = class
	return class, nil
}

func layoutFields(class *object.Class, cf *classfile.ClassFile) error {
	class.InstanceFieldCount = 0
	if class.Super != nil {
		class.InstanceFieldCount = class.Super.InstanceFieldCount
	}
	for _, f := range cf.Fields {
		ty, _, err := jtype.Parse(f.Descriptor)
		if err != nil {
			return errors.Wrapf(err, "parsing descriptor of field %s", f.Name)
		}
		fd := &object.FieldDef{
			Name:        f.Name,
			Descriptor:  f.Descriptor,
			Type:        ty,
			AccessFlags: f.AccessFlags,
			IsStatic:    f.AccessFlags&classfile.AccStatic != 0,
		}
		if fd.IsStatic {
			fd.LayoutIndex = len(class.StaticValues)
			val := object.DefaultValue(ty)
			if f.ConstantValue != nil {
				val = constantToValue(ty, f.ConstantValue)
			}
			class.StaticValues = append(class.StaticValues, val)
		} else {
			fd.LayoutIndex = class.InstanceFieldCount
			class.InstanceFieldCount++
		}
		class.Fields = append(class.Fields, fd)
	}
	return nil
}

func constantToValue(ty jtype.Type, raw interface{}) object.Value {
	switch v := raw.(type) {
	case int32:
		if ty.Kind == jtype.Boolean {
			return object.BoolValue(v != 0)
		}
		return object.IntValue(v)
	case int64:
		return object.LongValue(v)
	case float32:
		return object.FloatValue(v)
	case float64:
		return object.DoubleValue(v)
	default:
		return object.DefaultValue(ty) // string constants are boxed lazily by the interpreter on first read
	}
}

func buildMethods(class *object.Class, cf *classfile.ClassFile) error {
	for i := range cf.Methods {
		mi := &cf.Methods[i]
		desc, err := jtype.ParseMethod(mi.Descriptor)
		if err != nil {
			return errors.Wrapf(err, "parsing descriptor of method %s", mi.Name)
		}
		m := &object.Method{
			Name:        mi.Name,
			Descriptor:  mi.Descriptor,
			Desc:        desc,
			AccessFlags: mi.AccessFlags,
			Class:       class,
		}
		if mi.Code != nil {
			m.Code = &object.CodeBody{
				MaxStack:  int(mi.Code.MaxStack),
				MaxLocals: int(mi.Code.MaxLocals),
				Code:      mi.Code.Code,
			}
			for _, h := range mi.Code.ExceptionHandlers {
				catch := ""
				if h.CatchType != 0 {
					name, err := classfile.GetClassName(cf.ConstantPool, h.CatchType)
					if err != nil {
						return errors.Wrapf(err, "resolving catch type for %s", mi.Name)
					}
					catch = name
				}
				m.Code.ExceptionTable = append(m.Code.ExceptionTable, object.ExceptionEntry{
					StartPC: int(h.StartPC), EndPC: int(h.EndPC), HandlerPC: int(h.HandlerPC), CatchType: catch,
				})
			}
			for _, l := range mi.Code.LineNumbers {
				m.Code.LineNumbers = append(m.Code.LineNumbers, object.LineEntry{StartPC: int(l.StartPC), Line: int(l.Line)})
			}
		}
		class.Methods[m.Key()] = m
	}
	return nil
}
