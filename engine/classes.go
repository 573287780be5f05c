package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/zval"
)

// Class is an internal class entry.
type Class struct {
	e       *Engine
	methods map[string]*Function
	Name    string
	Addr    uint32
}

type object struct {
	class *Class
	props map[string]uint32
	order []string
}

// DefineClass creates an internal class. Names are case-insensitive.
func (e *Engine) DefineClass(name string) (*Class, error) {
	key := strings.ToLower(name)
	if _, ok := e.classes[key]; ok {
		return nil, errors.Duplicate(errors.PhaseEngine, "class", name)
	}
	p := e.profile

	namePtr, err := e.NewInternedString(name)
	if err != nil {
		return nil, err
	}
	addr, err := e.heap.Alloc(p.Class.Size, p.Alignment)
	if err != nil {
		return nil, err
	}
	if err := e.mem.WriteU8(addr+p.Class.Type, abi.InternalClass); err != nil {
		return nil, err
	}
	if err := p.WritePtr(e.mem, addr+p.Class.Name, namePtr); err != nil {
		return nil, err
	}
	if err := e.mem.WriteU32(addr+p.Class.Refcount, 1); err != nil {
		return nil, err
	}

	c := &Class{e: e, methods: make(map[string]*Function), Name: name, Addr: addr}
	e.classes[key] = c
	e.classAddrs[addr] = c
	return c, nil
}

// LookupClass finds a class by name.
func (e *Engine) LookupClass(name string) (*Class, bool) {
	c, ok := e.classes[strings.ToLower(name)]
	return c, ok
}

// ClassAt returns the class whose entry lives at addr.
func (e *Engine) ClassAt(addr uint64) (*Class, bool) {
	c, ok := e.classAddrs[uint32(addr)]
	return c, ok && addr <= uint64(^uint32(0))
}

// DefineMethod adds a method. A method named __invoke makes instances
// callable.
func (c *Class) DefineMethod(name string, h Handler) (*Function, error) {
	key := strings.ToLower(name)
	if _, ok := c.methods[key]; ok {
		return nil, errors.Duplicate(errors.PhaseEngine, "method", c.Name+"::"+name)
	}
	fn, err := c.e.newFunction(name, c, h)
	if err != nil {
		return nil, err
	}
	c.methods[key] = fn
	return fn, nil
}

// Method finds a method by name.
func (c *Class) Method(name string) (*Function, bool) {
	fn, ok := c.methods[strings.ToLower(name)]
	return fn, ok
}

// NewObject instantiates c.
func (e *Engine) NewObject(c *Class) (zval.ObjectHandle, error) {
	if c == nil {
		return 0, errors.NilPointer(errors.PhaseEngine, "class")
	}
	p := e.profile

	addr, err := e.heap.Alloc(p.Object.Size, p.Alignment)
	if err != nil {
		return 0, err
	}
	if err := e.header(addr, p.Object.Refcount, p.Object.TypeInfo, abi.GCObject); err != nil {
		return 0, err
	}
	if err := e.mem.WriteU32(addr+p.Object.Handle, e.handle()); err != nil {
		return 0, err
	}
	if err := p.WritePtr(e.mem, addr+p.Object.Class, uint64(c.Addr)); err != nil {
		return 0, err
	}

	e.objects[addr] = &object{class: c, props: make(map[string]uint32)}
	return zval.ObjectHandle(addr), nil
}

func (e *Engine) object(o zval.ObjectHandle) (*object, error) {
	obj, ok := e.objects[uint32(o)]
	if !ok || uint64(o) > uint64(^uint32(0)) {
		return nil, errors.New(errors.PhaseEngine, errors.KindNotFound).
			Detail("no object at %#x", uint64(o)).
			Build()
	}
	return obj, nil
}

// ObjectClass returns the class of o.
func (e *Engine) ObjectClass(o zval.ObjectHandle) (*Class, bool) {
	obj, err := e.object(o)
	if err != nil {
		return nil, false
	}
	return obj.class, true
}

// SetProperty assigns v to property name of o. The object takes ownership
// of v's payload and releases the previous string value.
func (e *Engine) SetProperty(o zval.ObjectHandle, name string, v zval.Zval) error {
	obj, err := e.object(o)
	if err != nil {
		return err
	}
	p := e.profile

	slot, ok := obj.props[name]
	if ok {
		if old, err := zval.Load(e, slot); err == nil {
			e.release(old)
		}
	} else {
		if slot, err = e.heap.Alloc(p.Zval.Size, p.Alignment); err != nil {
			return err
		}
		obj.props[name] = slot
		obj.order = append(obj.order, name)
	}
	return zval.FromRaw(e, v.Raw()).Store(slot)
}

// Properties returns the property names of o in definition order.
func (e *Engine) Properties(o zval.ObjectHandle) []string {
	obj, err := e.object(o)
	if err != nil {
		return nil
	}
	return append([]string(nil), obj.order...)
}

// ReadProperty returns the address of property name of object, 0 if the
// object or property does not exist. Every property is public, so scope
// only has to name a known class.
func (e *Engine) ReadProperty(scope, object uint64, name string, rv uint32) uint32 {
	if _, ok := e.ClassAt(scope); !ok {
		Logger().Debug("property read from unknown scope",
			zap.Uint64("scope", scope), zap.String("property", name))
		return 0
	}
	obj, err := e.object(zval.ObjectHandle(object))
	if err != nil {
		return 0
	}
	slot, ok := obj.props[name]
	if !ok {
		return 0
	}
	return slot
}

// release drops the reference a value holds on a string payload.
func (e *Engine) release(v zval.Zval) {
	if v.IsString() {
		e.ReleaseString(e.profile.PtrFromBits(v.Raw().Value))
	}
}

// Copy returns v with its own reference to the payload, like ZVAL_COPY.
func (e *Engine) Copy(v zval.Zval) zval.Zval {
	e.addRef(v)
	return zval.FromRaw(e, v.Raw())
}

func (e *Engine) addRef(v zval.Zval) {
	if v.IsString() {
		e.AddRefString(e.profile.PtrFromBits(v.Raw().Value))
	}
}
