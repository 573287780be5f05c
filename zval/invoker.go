package zval

import (
	"go.uber.org/zap"

	"github.com/wippyai/zend-abi/host"
)

// Invoker calls callable values through a host.
type Invoker struct {
	h host.Host
}

// NewInvoker creates an invoker for h.
func NewInvoker(h host.Host) *Invoker {
	return &Invoker{h: h}
}

// Call invokes callable with args and no bound receiver.
//
// The result is absent when the value is not callable, when scratch memory
// cannot be obtained, or when the host reports a failed call. String
// arguments are released and scratch memory is freed on every path, so the
// caller must not use string args after Call returns.
func (inv *Invoker) Call(callable Zval, args []Zval) (Zval, bool) {
	defer releaseStrings(args)

	if inv.h == nil {
		return Zval{}, false
	}
	p := inv.h.Profile()
	alloc := inv.h.Allocator()
	slot := p.Zval.Size

	scratch := host.NewAllocationList()
	defer scratch.FreeAndRelease(alloc)

	fn, err := scratch.Alloc(alloc, slot, p.Alignment)
	if err != nil {
		Logger().Debug("callable slot allocation failed", zap.Error(err))
		return Zval{}, false
	}
	if err := callable.Store(fn); err != nil {
		Logger().Debug("callable store failed", zap.Error(err))
		return Zval{}, false
	}
	if !inv.h.IsCallable(fn) {
		Logger().Debug("value is not callable", zap.Stringer("value", callable))
		return Zval{}, false
	}

	retval, err := scratch.Alloc(alloc, slot, p.Alignment)
	if err != nil {
		Logger().Debug("return slot allocation failed", zap.Error(err))
		return Zval{}, false
	}
	if err := New(inv.h).Store(retval); err != nil {
		return Zval{}, false
	}

	var argv uint32
	if len(args) > 0 {
		argv, err = scratch.Alloc(alloc, slot*uint32(len(args)), p.Alignment)
		if err != nil {
			Logger().Debug("argument block allocation failed",
				zap.Int("argc", len(args)), zap.Error(err))
			return Zval{}, false
		}
		for i := range args {
			arg := FromRaw(inv.h, args[i].raw)
			if err := arg.Store(argv + uint32(i)*slot); err != nil {
				return Zval{}, false
			}
		}
	}

	status := inv.h.CallUserFunction(0, fn, retval, uint32(len(args)), argv)
	if status < 0 {
		Logger().Debug("call failed",
			zap.Stringer("callable", callable), zap.Int32("status", status))
		return Zval{}, false
	}

	result, err := Load(inv.h, retval)
	if err != nil {
		return Zval{}, false
	}
	return result, true
}

// TryCall invokes z through its host. See Invoker.Call.
func (z Zval) TryCall(args []Zval) (Zval, bool) {
	return NewInvoker(z.h).Call(z, args)
}

func releaseStrings(args []Zval) {
	for _, arg := range args {
		if arg.IsString() && arg.h != nil {
			arg.h.ReleaseString(arg.ptr())
		}
	}
}
