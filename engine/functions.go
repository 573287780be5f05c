package engine

import (
	"strings"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/zval"
)

// Handler implements an internal function. ret starts as Null and owns one
// reference to its payload: a handler returning an argument or another
// borrowed value must store Engine.Copy of it. A returned error is raised as
// an exception and whatever ret holds is released.
type Handler func(ex *frame.ExecuteData, ret *zval.Zval) error

// Function is a registered internal function or method.
type Function struct {
	handler Handler
	Class   *Class
	Name    string
	Addr    uint32
}

// QualifiedName returns Class::name for methods and name otherwise.
func (f *Function) QualifiedName() string {
	if f.Class != nil {
		return f.Class.Name + "::" + f.Name
	}
	return f.Name
}

// RegisterFunction adds a global function. Names are case-insensitive.
func (e *Engine) RegisterFunction(name string, h Handler) (*Function, error) {
	key := strings.ToLower(name)
	if _, ok := e.functions[key]; ok {
		return nil, errors.Duplicate(errors.PhaseEngine, "function", name)
	}
	fn, err := e.newFunction(name, nil, h)
	if err != nil {
		return nil, err
	}
	e.functions[key] = fn
	return fn, nil
}

func (e *Engine) newFunction(name string, class *Class, h Handler) (*Function, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseEngine, "empty function name")
	}
	if h == nil {
		return nil, errors.NilPointer(errors.PhaseEngine, "handler")
	}
	p := e.profile

	namePtr, err := e.NewInternedString(name)
	if err != nil {
		return nil, err
	}
	addr, err := e.heap.Alloc(p.Function.Size, p.Alignment)
	if err != nil {
		return nil, err
	}
	if err := e.mem.WriteU8(addr+p.Function.Type, abi.InternalFunction); err != nil {
		return nil, err
	}
	if err := p.WritePtr(e.mem, addr+p.Function.Name, namePtr); err != nil {
		return nil, err
	}
	if class != nil {
		if err := p.WritePtr(e.mem, addr+p.Function.Scope, uint64(class.Addr)); err != nil {
			return nil, err
		}
	}

	fn := &Function{handler: h, Class: class, Name: name, Addr: addr}
	e.funcAddrs[addr] = fn
	return fn, nil
}

// LookupFunction finds a global function or a Class::method.
func (e *Engine) LookupFunction(name string) (*Function, bool) {
	if cls, method, ok := strings.Cut(name, "::"); ok {
		c, ok := e.LookupClass(cls)
		if !ok {
			return nil, false
		}
		return c.Method(method)
	}
	fn, ok := e.functions[strings.ToLower(name)]
	return fn, ok
}

// FunctionAt returns the function whose zend_function lives at addr.
func (e *Engine) FunctionAt(addr uint32) (*Function, bool) {
	fn, ok := e.funcAddrs[addr]
	return fn, ok
}

// Functions returns the global function names.
func (e *Engine) Functions() []string {
	names := make([]string, 0, len(e.functions))
	for _, fn := range e.functions {
		names = append(names, fn.Name)
	}
	return names
}
