package engine

import (
	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/resource"
	"github.com/wippyai/zend-abi/zval"
)

type array struct {
	slots []uint32
}

// NewResource registers a resource of type typ wrapping a Go value. A value
// implementing resource.Destructor is destroyed by CloseResource.
func (e *Engine) NewResource(typ int32, value any) (zval.ResourceHandle, error) {
	p := e.profile

	addr, err := e.heap.Alloc(p.Resource.Size, p.Alignment)
	if err != nil {
		return 0, err
	}
	if err := e.header(addr, p.Resource.Refcount, p.Resource.TypeInfo, abi.GCResource); err != nil {
		return 0, err
	}
	h := e.resources.Insert(typ, value, addr)
	if err := p.WriteLong(e.mem, addr+p.Resource.Handle, int64(h)); err != nil {
		e.resources.Close(h)
		return 0, err
	}
	if err := e.mem.WriteU32(addr+p.Resource.Type, uint32(typ)); err != nil {
		e.resources.Close(h)
		return 0, err
	}
	return zval.ResourceHandle(addr), nil
}

func (e *Engine) resourceHandle(r zval.ResourceHandle) (resource.Handle, bool) {
	addr, err := e.addr(uint64(r))
	if err != nil {
		return 0, false
	}
	p := e.profile
	n, err := p.ReadLong(e.mem, addr+p.Resource.Handle)
	if err != nil || n <= 0 {
		return 0, false
	}
	h := resource.Handle(n)
	if rep, ok := e.resources.Rep(h); !ok || rep != addr {
		return 0, false
	}
	return h, true
}

// ResourceValue returns the Go value and type of r.
func (e *Engine) ResourceValue(r zval.ResourceHandle) (any, int32, bool) {
	h, ok := e.resourceHandle(r)
	if !ok {
		return nil, 0, false
	}
	return e.resources.Get(h)
}

// CloseResource destroys the value of r and marks the zend_resource with
// type -1, as the engine does for closed resources.
func (e *Engine) CloseResource(r zval.ResourceHandle) error {
	h, ok := e.resourceHandle(r)
	if !ok {
		return errors.New(errors.PhaseEngine, errors.KindNotFound).
			Detail("no resource at %#x", uint64(r)).
			Build()
	}
	e.resources.Close(h)

	p := e.profile
	addr := uint32(r)
	if err := e.mem.WriteU32(addr+p.Resource.Type, ^uint32(0)); err != nil {
		return err
	}
	return p.WritePtr(e.mem, addr+p.Resource.Ptr, 0)
}

// Resources returns the number of open resources.
func (e *Engine) Resources() int { return e.resources.Len() }

// NewArray creates an empty packed array.
func (e *Engine) NewArray() (zval.ArrayHandle, error) {
	p := e.profile

	addr, err := e.heap.Alloc(p.Array.Size, p.Alignment)
	if err != nil {
		return 0, err
	}
	if err := e.header(addr, p.Array.Refcount, p.Array.TypeInfo, abi.GCArray); err != nil {
		return 0, err
	}

	e.arrays[addr] = &array{}
	return zval.ArrayHandle(addr), nil
}

func (e *Engine) array(a zval.ArrayHandle) (*array, error) {
	arr, ok := e.arrays[uint32(a)]
	if !ok || uint64(a) > uint64(^uint32(0)) {
		return nil, errors.New(errors.PhaseEngine, errors.KindNotFound).
			Detail("no array at %#x", uint64(a)).
			Build()
	}
	return arr, nil
}

// ArrayAppend appends v to a. The array takes ownership of v's payload.
func (e *Engine) ArrayAppend(a zval.ArrayHandle, v zval.Zval) error {
	arr, err := e.array(a)
	if err != nil {
		return err
	}
	p := e.profile

	slot, err := e.heap.Alloc(p.Zval.Size, p.Alignment)
	if err != nil {
		return err
	}
	if err := zval.FromRaw(e, v.Raw()).Store(slot); err != nil {
		e.heap.Free(slot, p.Zval.Size, p.Alignment)
		return err
	}
	arr.slots = append(arr.slots, slot)
	return e.mem.WriteU32(uint32(a)+p.Array.NumElements, uint32(len(arr.slots)))
}

// ArrayValues returns the elements of a in order.
func (e *Engine) ArrayValues(a zval.ArrayHandle) ([]zval.Zval, error) {
	arr, err := e.array(a)
	if err != nil {
		return nil, err
	}
	out := make([]zval.Zval, 0, len(arr.slots))
	for _, slot := range arr.slots {
		v, err := zval.Load(e, slot)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ArrayCount reads nNumOfElements of a.
func (e *Engine) ArrayCount(a zval.ArrayHandle) (uint32, error) {
	addr, err := e.addr(uint64(a))
	if err != nil {
		return 0, err
	}
	return e.mem.ReadU32(addr + e.profile.Array.NumElements)
}

// NewReference wraps v in a zend_reference. The reference takes ownership
// of v's payload.
func (e *Engine) NewReference(v zval.Zval) (zval.ReferenceHandle, error) {
	p := e.profile

	addr, err := e.heap.Alloc(p.Reference.Size, p.Alignment)
	if err != nil {
		return 0, err
	}
	if err := e.header(addr, p.Reference.Refcount, p.Reference.TypeInfo, abi.GCReference); err != nil {
		return 0, err
	}
	if err := zval.FromRaw(e, v.Raw()).Store(addr + p.Reference.Val); err != nil {
		return 0, err
	}
	return zval.ReferenceHandle(addr), nil
}
