package classloader

import (
	"github.com/pkg/errors"

	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// ResolveVirtualMethod walks from class up through its superclass chain
// looking for the most-derived override of name+descriptor, the
// dynamic dispatch invokevirtual needs.
func ResolveVirtualMethod(class *object.Class, name, descriptor string) (*object.Method, error) {
	for cur := class; cur != nil; cur = cur.Super {
		if m := cur.FindMethod(name, descriptor); m != nil && !m.IsAbstract() {
			return m, nil
		}
	}
	return nil, errors.Errorf("no such method %s%s on %s or its superclasses", name, descriptor, class.Name)
}

// ResolveInterfaceMethod additionally searches the interface hierarchy,
// for invokeinterface and default-method lookups.
func ResolveInterfaceMethod(class *object.Class, name, descriptor string) (*object.Method, error) {
	if m, err := ResolveVirtualMethod(class, name, descriptor); err == nil {
		return m, nil
	}
	var search func(c *object.Class) *object.Method
	search = func(c *object.Class) *object.Method {
		for _, iface := range c.Interfaces {
			if m := iface.FindMethod(name, descriptor); m != nil {
				return m
			}
			if m := search(iface); m != nil {
				return m
			}
		}
		if c.Super != nil {
			return search(c.Super)
		}
		return nil
	}
	if m := search(class); m != nil {
		return m, nil
	}
	return nil, errors.Errorf("no such interface method %s%s on %s", name, descriptor, class.Name)
}

// ResolveStaticMethod looks up a method declared directly on class or
// inherited from its superclass chain without the virtual-dispatch
// override semantics (used for invokestatic and invokespecial).
func ResolveStaticMethod(class *object.Class, name, descriptor string) (*object.Method, error) {
	for cur := class; cur != nil; cur = cur.Super {
		if m := cur.FindMethod(name, descriptor); m != nil {
			return m, nil
		}
	}
	return nil, errors.Errorf("no such method %s%s on %s", name, descriptor, class.Name)
}
