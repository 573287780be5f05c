package engine

import (
	"context"

	zendabi "github.com/wippyai/zend-abi"
	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/host"
	"github.com/wippyai/zend-abi/memory"
	"github.com/wippyai/zend-abi/resource"
)

// DefaultInitialSize is the size of the region created when none is given.
const DefaultInitialSize = 64 * 1024

// heapBase keeps the first block away from the null address.
const heapBase = 16

// Config holds configuration for engine creation
type Config struct {
	// Memory is the byte region. It must report its size through
	// zendabi.MemorySizer; if it also implements zendabi.Grower the heap
	// extends it on demand. Nil creates a growable buffer.
	Memory zendabi.Memory

	// Context is passed to wasm callables. Nil means context.Background().
	Context context.Context

	// InitialSize of the default buffer in bytes. 0 means DefaultInitialSize.
	InitialSize uint32
}

// Engine is a single-request engine emulation. It is not safe for
// concurrent use.
type Engine struct {
	ctx        context.Context
	exception  error
	profile    *abi.Profile
	mem        zendabi.Memory
	heap       *Heap
	slots      *frame.SlotResolver
	interned   map[string]uint64
	functions  map[string]*Function
	funcAddrs  map[uint32]*Function
	classes    map[string]*Class
	classAddrs map[uint32]*Class
	objects    map[uint32]*object
	resources  *resource.List
	arrays     map[uint32]*array
	frames     []uint32
	nextHandle uint32
}

var _ host.Host = (*Engine)(nil)

// New creates an engine over a fresh buffer.
func New(p *abi.Profile) (*Engine, error) {
	return NewWithConfig(p, nil)
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(p *abi.Profile, cfg *Config) (*Engine, error) {
	if p == nil {
		return nil, errors.NilPointer(errors.PhaseEngine, "profile")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	mem := cfg.Memory
	if mem == nil {
		size := cfg.InitialSize
		if size == 0 {
			size = DefaultInitialSize
		}
		mem = memory.NewBuffer(size)
	}
	sizer, ok := mem.(zendabi.MemorySizer)
	if !ok {
		return nil, errors.New(errors.PhaseEngine, errors.KindUnsupported).
			Detail("memory %T does not report its size", mem).
			Build()
	}
	grower, _ := mem.(zendabi.Grower)

	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	return &Engine{
		ctx:        ctx,
		profile:    p,
		mem:        mem,
		heap:       NewHeap(mem, sizer, grower, heapBase, p.Alignment),
		slots:      frame.ResolverFor(p),
		interned:   make(map[string]uint64),
		functions:  make(map[string]*Function),
		funcAddrs:  make(map[uint32]*Function),
		classes:    make(map[string]*Class),
		classAddrs: make(map[uint32]*Class),
		objects:    make(map[uint32]*object),
		resources:  resource.NewList(),
		arrays:     make(map[uint32]*array),
	}, nil
}

func (e *Engine) Memory() zendabi.Memory       { return e.mem }
func (e *Engine) Allocator() zendabi.Allocator { return e.heap }
func (e *Engine) Profile() *abi.Profile        { return e.profile }
func (e *Engine) Heap() *Heap                  { return e.heap }
func (e *Engine) Context() context.Context     { return e.ctx }

// Exception returns the pending exception, nil if none.
func (e *Engine) Exception() error { return e.exception }

// ClearException discards the pending exception.
func (e *Engine) ClearException() { e.exception = nil }

func (e *Engine) handle() uint32 {
	e.nextHandle++
	return e.nextHandle
}

// header writes a zend_refcounted_h with refcount 1.
func (e *Engine) header(addr, refcount, typeInfo, gcType uint32) error {
	if err := e.mem.WriteU32(addr+refcount, 1); err != nil {
		return err
	}
	return e.mem.WriteU32(addr+typeInfo, gcType)
}

// Refcount reads the reference count of any refcounted payload.
func (e *Engine) Refcount(ptr uint64) (uint32, error) {
	addr, err := e.addr(ptr)
	if err != nil {
		return 0, err
	}
	return e.mem.ReadU32(addr + e.profile.String.Refcount)
}

func (e *Engine) addr(ptr uint64) (uint32, error) {
	if ptr == 0 {
		return 0, errors.NilPointer(errors.PhaseEngine, "payload")
	}
	if ptr > uint64(^uint32(0)) {
		return 0, errors.OutOfBounds(errors.PhaseEngine, ^uint32(0), 0, ^uint32(0))
	}
	return uint32(ptr), nil
}
