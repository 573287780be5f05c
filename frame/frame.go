package frame

import (
	"math"

	"github.com/wippyai/zend-abi/host"
	"github.com/wippyai/zend-abi/zval"
)

// ExecuteData is a read cursor over a call frame at a fixed address.
type ExecuteData struct {
	h     host.Host
	slots *SlotResolver
	base  uint32
}

// New wraps the frame at base.
func New(h host.Host, base uint32) *ExecuteData {
	return &ExecuteData{h: h, base: base, slots: ResolverFor(h.Profile())}
}

func (ex *ExecuteData) Base() uint32            { return ex.base }
func (ex *ExecuteData) Host() host.Host         { return ex.h }
func (ex *ExecuteData) Resolver() *SlotResolver { return ex.slots }

// Argument returns argument offset. offset must be below the frame's
// argument count; the result is absent only when the slot lies outside the
// host's region.
func (ex *ExecuteData) Argument(offset uint32) (zval.Zval, bool) {
	size := uint64(ex.h.Profile().Zval.Size)
	addr := uint64(ex.base) + (uint64(ex.slots.HeaderSlotCount())+uint64(offset))*size
	if addr+size > math.MaxUint32 {
		return zval.Zval{}, false
	}
	v, err := zval.Load(ex.h, uint32(addr))
	if err != nil {
		return zval.Zval{}, false
	}
	return v, true
}

// Arg reads argument offset and converts it to T.
func Arg[T zval.Extractable](ex *ExecuteData, offset uint32) (T, bool) {
	v, ok := ex.Argument(offset)
	if !ok {
		var zero T
		return zero, false
	}
	return zval.Extract[T](v)
}

// Function returns the address of the executing zend_function, 0 if none.
func (ex *ExecuteData) Function() uint32 {
	p := ex.h.Profile()
	fn, err := p.ReadPtr(ex.h.Memory(), ex.base+p.ExecuteData.Func)
	if err != nil || fn > math.MaxUint32 {
		return 0
	}
	return uint32(fn)
}

// This returns the frame's This slot.
func (ex *ExecuteData) This() (zval.Zval, bool) {
	v, err := zval.Load(ex.h, ex.base+ex.h.Profile().ExecuteData.This)
	if err != nil {
		return zval.Zval{}, false
	}
	return v, true
}

// Scope returns the class entry of the executing function, 0 if none.
func (ex *ExecuteData) Scope() uint64 {
	fn := ex.Function()
	if fn == 0 {
		return 0
	}
	p := ex.h.Profile()
	scope, err := p.ReadPtr(ex.h.Memory(), fn+p.Function.Scope)
	if err != nil {
		return 0
	}
	return scope
}

// GetByName reads property name of the bound object, resolved in the scope
// of the executing function. It is absent when the frame has no function,
// the function has no scope, This is not an object, or the property does
// not exist.
func (ex *ExecuteData) GetByName(name string) (zval.Zval, bool) {
	scope := ex.Scope()
	if scope == 0 {
		return zval.Zval{}, false
	}
	this, ok := ex.This()
	if !ok {
		return zval.Zval{}, false
	}
	obj, ok := this.Object()
	if !ok {
		return zval.Zval{}, false
	}

	p := ex.h.Profile()
	alloc := ex.h.Allocator()
	scratch := host.NewAllocationList()
	defer scratch.FreeAndRelease(alloc)

	rv, err := scratch.Alloc(alloc, p.Zval.Size, p.Alignment)
	if err != nil {
		return zval.Zval{}, false
	}
	addr := ex.h.ReadProperty(scope, uint64(obj), name, rv)
	if addr == 0 {
		return zval.Zval{}, false
	}
	v, err := zval.Load(ex.h, addr)
	if err != nil {
		return zval.Zval{}, false
	}
	return v, true
}
