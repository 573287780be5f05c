package memory

import (
	"encoding/binary"

	zendabi "github.com/wippyai/zend-abi"
	"github.com/wippyai/zend-abi/errors"
)

// MaxBufferSize caps Buffer growth.
const MaxBufferSize = 1 << 30

var (
	_ zendabi.Memory      = (*Buffer)(nil)
	_ zendabi.MemorySizer = (*Buffer)(nil)
	_ zendabi.Grower      = (*Buffer)(nil)
)

// Buffer is a growable region backed by a byte slice.
type Buffer struct {
	data []byte
}

// NewBuffer creates a zeroed region of size bytes.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Bytes exposes the backing slice. It is invalidated by Grow.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Size returns the region size in bytes.
func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

// Grow extends the region by at least delta bytes, doubling when possible.
func (b *Buffer) Grow(delta uint32) error {
	cur := uint64(len(b.data))
	want := cur + uint64(delta)
	if want > MaxBufferSize {
		return errors.AllocationFailed(errors.PhaseMemory, delta, 1)
	}
	next := cur * 2
	if next < want {
		next = want
	}
	if next > MaxBufferSize {
		next = MaxBufferSize
	}
	grown := make([]byte, next)
	copy(grown, b.data)
	b.data = grown
	return nil
}

func (b *Buffer) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(b.data)) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length, uint32(len(b.data)))
	}
	return b.data[offset:end], nil
}

// Read returns a view of length bytes at offset.
func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	return b.span(offset, length)
}

// Write copies data to offset.
func (b *Buffer) Write(offset uint32, data []byte) error {
	dst, err := b.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	s, err := b.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (b *Buffer) ReadU16(offset uint32) (uint16, error) {
	s, err := b.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	s, err := b.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	s, err := b.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	s, err := b.span(offset, 1)
	if err != nil {
		return err
	}
	s[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (b *Buffer) WriteU16(offset uint32, value uint16) error {
	s, err := b.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(s, value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	s, err := b.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(s, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	s, err := b.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(s, value)
	return nil
}
