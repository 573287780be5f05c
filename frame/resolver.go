package frame

import (
	"sync"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/layout"
)

// SlotResolver computes argument slot addresses for one profile.
// It is safe for concurrent use.
type SlotResolver struct {
	profile *abi.Profile
	once    sync.Once
	slots   uint32
}

// NewSlotResolver creates a resolver for p.
func NewSlotResolver(p *abi.Profile) *SlotResolver {
	return &SlotResolver{profile: p}
}

// resolverKey holds everything the slot computation reads, so profiles
// loaded repeatedly from the same description share one entry.
type resolverKey struct {
	name          string
	zvalSize      uint32
	executeSize   uint32
	alignment     uint32
	alignmentMask int64
}

var resolvers sync.Map // resolverKey -> *SlotResolver

// ResolverFor returns the shared resolver for p. Profiles with the same name
// and frame layout share a resolver whose Profile is the first one seen.
func ResolverFor(p *abi.Profile) *SlotResolver {
	key := resolverKey{
		name:          p.Name,
		zvalSize:      p.Zval.Size,
		executeSize:   p.ExecuteData.Size,
		alignment:     p.Alignment,
		alignmentMask: p.AlignmentMask,
	}
	if r, ok := resolvers.Load(key); ok {
		return r.(*SlotResolver)
	}
	r, _ := resolvers.LoadOrStore(key, NewSlotResolver(p))
	return r.(*SlotResolver)
}

// Profile returns the resolver's profile.
func (r *SlotResolver) Profile() *abi.Profile { return r.profile }

// HeaderSlotCount returns how many zval slots the frame header occupies.
func (r *SlotResolver) HeaderSlotCount() uint32 {
	r.once.Do(func() {
		p := r.profile
		zv := layout.AlignedSizeMask(p.Zval.Size, p.Alignment, p.AlignmentMask)
		ex := layout.AlignedSizeMask(p.ExecuteData.Size, p.Alignment, p.AlignmentMask)
		r.slots = (ex + zv - 1) / zv
	})
	return r.slots
}

// SlotAddress returns the address of argument n of the frame at base.
func (r *SlotResolver) SlotAddress(base, n uint32) uint32 {
	return base + (r.HeaderSlotCount()+n)*r.profile.Zval.Size
}

// FrameSize returns the bytes a frame with argc arguments occupies.
func (r *SlotResolver) FrameSize(argc uint32) uint32 {
	return (r.HeaderSlotCount() + argc) * r.profile.Zval.Size
}
