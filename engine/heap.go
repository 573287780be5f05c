package engine

import (
	"go.uber.org/zap"

	zendabi "github.com/wippyai/zend-abi"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/layout"
)

// HeapStats reports allocator activity.
type HeapStats struct {
	LiveBlocks  int
	LiveBytes   uint64
	TotalAllocs int
	TotalFrees  int
	Top         uint32
}

// Heap is a bump allocator with exact-size free lists over a byte region.
// Address 0 is never handed out.
type Heap struct {
	mem   zendabi.Memory
	sizer zendabi.MemorySizer
	grow  zendabi.Grower
	free  map[uint32][]uint32
	live  map[uint32]uint32
	stats HeapStats
	top   uint32
	align uint32
}

var _ zendabi.Allocator = (*Heap)(nil)

// NewHeap creates a heap over mem. Blocks start at base, which must be
// non-zero. grow may be nil for a fixed region.
func NewHeap(mem zendabi.Memory, sizer zendabi.MemorySizer, grow zendabi.Grower, base, align uint32) *Heap {
	if base == 0 {
		base = align
	}
	return &Heap{
		mem:   mem,
		sizer: sizer,
		grow:  grow,
		free:  make(map[uint32][]uint32),
		live:  make(map[uint32]uint32),
		top:   layout.AlignTo(base, align),
		align: align,
	}
}

// Alloc returns a zeroed block of at least size bytes.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if align < h.align {
		align = h.align
	}
	if !layout.IsPowerOfTwo(align) {
		return 0, errors.New(errors.PhaseMemory, errors.KindAlignment).
			Detail("alignment %d is not a power of two", align).
			Build()
	}
	size = layout.AlignedSize(max(size, 1), align)

	ptr, ok := h.reuse(size, align)
	if !ok {
		var err error
		if ptr, err = h.bump(size, align); err != nil {
			return 0, err
		}
	}
	if err := h.mem.Write(ptr, make([]byte, size)); err != nil {
		return 0, err
	}

	h.live[ptr] = size
	h.stats.LiveBlocks++
	h.stats.LiveBytes += uint64(size)
	h.stats.TotalAllocs++
	Logger().Debug("alloc", zap.Uint32("ptr", ptr), zap.Uint32("size", size))
	return ptr, nil
}

func (h *Heap) reuse(size, align uint32) (uint32, bool) {
	list := h.free[size]
	for i := len(list) - 1; i >= 0; i-- {
		if ptr := list[i]; ptr%align == 0 {
			h.free[size] = append(list[:i], list[i+1:]...)
			return ptr, true
		}
	}
	return 0, false
}

func (h *Heap) bump(size, align uint32) (uint32, error) {
	ptr := layout.AlignTo(h.top, align)
	end := uint64(ptr) + uint64(size)
	if end > uint64(^uint32(0)) {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	if cur := h.sizer.Size(); end > uint64(cur) {
		if h.grow == nil {
			return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
		}
		if err := h.grow.Grow(uint32(end - uint64(cur))); err != nil {
			return 0, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "grow region")
		}
	}
	h.top = uint32(end)
	h.stats.Top = h.top
	return ptr, nil
}

// Free returns a block to its free list. Unknown pointers are ignored.
func (h *Heap) Free(ptr, size, align uint32) {
	got, ok := h.live[ptr]
	if !ok {
		Logger().Warn("free of unknown block", zap.Uint32("ptr", ptr), zap.Uint32("size", size))
		return
	}
	delete(h.live, ptr)
	h.free[got] = append(h.free[got], ptr)
	h.stats.LiveBlocks--
	h.stats.LiveBytes -= uint64(got)
	h.stats.TotalFrees++
	Logger().Debug("free", zap.Uint32("ptr", ptr), zap.Uint32("size", got))
}

// Live reports whether ptr is an allocated block.
func (h *Heap) Live(ptr uint32) bool {
	_, ok := h.live[ptr]
	return ok
}

// Stats returns a copy of the allocator counters.
func (h *Heap) Stats() HeapStats {
	return h.stats
}
