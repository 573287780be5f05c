package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/errors"
)

// NewString allocates a zend_string with refcount 1.
func (e *Engine) NewString(s string, persistent bool) (uint64, error) {
	var flags uint32
	if persistent {
		flags = abi.StrPersistent
	}
	return e.allocString(s, flags)
}

// NewInternedString returns the interned zend_string for s, creating it on
// first use. Interned strings are never freed.
func (e *Engine) NewInternedString(s string) (uint64, error) {
	if ptr, ok := e.interned[s]; ok {
		return ptr, nil
	}
	ptr, err := e.allocString(s, abi.StrInterned|abi.StrPersistent)
	if err != nil {
		return 0, err
	}
	e.interned[s] = ptr
	return ptr, nil
}

func (e *Engine) allocString(s string, flags uint32) (uint64, error) {
	p := e.profile
	if uint64(len(s)) > math.MaxUint32-uint64(p.String.Val)-uint64(p.Alignment) {
		return 0, errors.InvalidInput(errors.PhaseEngine, "string too long")
	}
	n := uint32(len(s))

	addr, err := e.heap.Alloc(p.StringAllocSize(n), p.Alignment)
	if err != nil {
		return 0, err
	}
	if err := e.header(addr, p.String.Refcount, p.String.TypeInfo, abi.GCString|flags); err != nil {
		return 0, err
	}
	if err := p.WritePtr(e.mem, addr+p.String.Len, uint64(n)); err != nil {
		return 0, err
	}
	if err := e.mem.Write(addr+p.String.Val, []byte(s)); err != nil {
		return 0, err
	}
	return uint64(addr), nil
}

// StringAt reads the contents of the zend_string at ptr.
func (e *Engine) StringAt(ptr uint64) (string, error) {
	addr, err := e.addr(ptr)
	if err != nil {
		return "", err
	}
	p := e.profile
	n, err := p.ReadPtr(e.mem, addr+p.String.Len)
	if err != nil {
		return "", err
	}
	if n > math.MaxUint32 {
		return "", errors.OutOfBounds(errors.PhaseEngine, addr, math.MaxUint32, e.heap.sizer.Size())
	}
	data, err := e.mem.Read(addr+p.String.Val, uint32(n))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *Engine) immutable(addr uint32) (bool, error) {
	ti, err := e.mem.ReadU32(addr + e.profile.String.TypeInfo)
	if err != nil {
		return false, err
	}
	return ti&abi.GCImmutable != 0, nil
}

// AddRefString increments the refcount of a non-interned string.
func (e *Engine) AddRefString(ptr uint64) {
	addr, err := e.addr(ptr)
	if err != nil {
		return
	}
	if imm, err := e.immutable(addr); err != nil || imm {
		return
	}
	off := addr + e.profile.String.Refcount
	rc, err := e.mem.ReadU32(off)
	if err != nil {
		return
	}
	_ = e.mem.WriteU32(off, rc+1)
}

// ReleaseString decrements the refcount of a non-interned string and frees
// it when the count reaches zero.
func (e *Engine) ReleaseString(ptr uint64) {
	addr, err := e.addr(ptr)
	if err != nil {
		return
	}
	if imm, err := e.immutable(addr); err != nil || imm {
		return
	}

	p := e.profile
	off := addr + p.String.Refcount
	rc, err := e.mem.ReadU32(off)
	if err != nil {
		return
	}
	if rc == 0 {
		Logger().Warn("release of dead string", zap.Uint32("ptr", addr))
		return
	}
	rc--
	if err := e.mem.WriteU32(off, rc); err != nil || rc > 0 {
		return
	}

	n, err := p.ReadPtr(e.mem, addr+p.String.Len)
	if err != nil {
		return
	}
	e.heap.Free(addr, p.StringAllocSize(uint32(n)), p.Alignment)
}
