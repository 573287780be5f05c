package host

import (
	"sync"

	zendabi "github.com/wippyai/zend-abi"
)

// Allocation is one tracked block.
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// AllocationList tracks scratch blocks owned by a single operation so they
// can be freed together on every exit path.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

// NewAllocationList takes a list from the pool.
func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

// FreeAndRelease frees every block and returns the list to the pool.
func (al *AllocationList) FreeAndRelease(allocator zendabi.Allocator) {
	al.Free(allocator)
	al.Release()
}

// Alloc allocates a block and tracks it.
func (al *AllocationList) Alloc(allocator zendabi.Allocator, size, align uint32) (uint32, error) {
	ptr, err := allocator.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	al.Add(ptr, size, align)
	return ptr, nil
}

// Add tracks a block allocated elsewhere.
func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

// Free frees every tracked block in reverse allocation order.
func (al *AllocationList) Free(allocator zendabi.Allocator) {
	if allocator == nil {
		return
	}
	for i := len(al.allocations) - 1; i >= 0; i-- {
		if a := al.allocations[i]; a.Ptr != 0 {
			allocator.Free(a.Ptr, a.Size, a.Align)
		}
	}
	al.allocations = al.allocations[:0]
}

// Reset forgets every tracked block without freeing.
func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

// Count returns the number of tracked blocks.
func (al *AllocationList) Count() int {
	return len(al.allocations)
}
