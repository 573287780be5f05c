package zendabi

// Memory is the byte region the host runtime owns. Offsets are region
// addresses; address 0 is the null pointer and is never handed out.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of the region in bytes.
type MemorySizer interface {
	Size() uint32
}

// Grower extends the region by at least delta bytes.
type Grower interface {
	Grow(delta uint32) error
}

// Allocator allocates blocks inside the region.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
