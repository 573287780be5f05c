package abi

import (
	zendabi "github.com/wippyai/zend-abi"
)

// ReadPtr reads a pointer-sized word (pointer, size_t, zend_ulong).
func (p *Profile) ReadPtr(mem zendabi.Memory, addr uint32) (uint64, error) {
	if p.PointerSize == 4 {
		v, err := mem.ReadU32(addr)
		return uint64(v), err
	}
	return mem.ReadU64(addr)
}

// WritePtr writes a pointer-sized word.
func (p *Profile) WritePtr(mem zendabi.Memory, addr uint32, v uint64) error {
	if p.PointerSize == 4 {
		return mem.WriteU32(addr, uint32(v))
	}
	return mem.WriteU64(addr, v)
}

// ReadLong reads a zend_long.
func (p *Profile) ReadLong(mem zendabi.Memory, addr uint32) (int64, error) {
	if p.Zval.LongSize == 4 {
		v, err := mem.ReadU32(addr)
		return int64(int32(v)), err
	}
	v, err := mem.ReadU64(addr)
	return int64(v), err
}

// WriteLong writes a zend_long, truncating to the build's width.
func (p *Profile) WriteLong(mem zendabi.Memory, addr uint32, v int64) error {
	if p.Zval.LongSize == 4 {
		return mem.WriteU32(addr, uint32(int32(v)))
	}
	return mem.WriteU64(addr, uint64(v))
}

// LongBits encodes v as the zval value word for this build.
func (p *Profile) LongBits(v int64) uint64 {
	if p.Zval.LongSize == 4 {
		return uint64(uint32(int32(v)))
	}
	return uint64(v)
}

// LongFromBits decodes the zval value word as a zend_long.
func (p *Profile) LongFromBits(bits uint64) int64 {
	if p.Zval.LongSize == 4 {
		return int64(int32(uint32(bits)))
	}
	return int64(bits)
}

// PtrFromBits decodes the zval value word as a pointer.
func (p *Profile) PtrFromBits(bits uint64) uint64 {
	if p.PointerSize == 4 {
		return bits & 0xffffffff
	}
	return bits
}
