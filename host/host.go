package host

import (
	zendabi "github.com/wippyai/zend-abi"
	"github.com/wippyai/zend-abi/abi"
)

// PropertyReader reads a named property of an object. It returns the address
// of the property's zval, or 0 when the object has no such property. rv is a
// scratch zval slot the host may use for computed values.
type PropertyReader interface {
	ReadProperty(scope, object uint64, name string, rv uint32) uint32
}

// CallabilityChecker reports whether the zval at zv can be invoked.
type CallabilityChecker interface {
	IsCallable(zv uint32) bool
}

// Invoker calls the zval at callable with argc zvals starting at argv and
// stores the return value at retval. receiver is the object to bind, 0 for
// none. A negative status means the call did not happen. An exception raised
// by the callee is not reported here.
type Invoker interface {
	CallUserFunction(receiver uint64, callable, retval, argc, argv uint32) int32
}

// StringManager creates and releases zend_string payloads.
type StringManager interface {
	NewString(s string, persistent bool) (uint64, error)
	NewInternedString(s string) (uint64, error)
	ReleaseString(ptr uint64)
}

// Host is the full set of engine collaborators for one request.
type Host interface {
	PropertyReader
	CallabilityChecker
	Invoker
	StringManager

	Memory() zendabi.Memory
	Allocator() zendabi.Allocator
	Profile() *abi.Profile
}
