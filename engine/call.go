package engine

import (
	"go.uber.org/zap"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/zval"
)

// IsCallable reports whether the zval at zv names a function, a
// Class::method, or an object with __invoke.
func (e *Engine) IsCallable(zv uint32) bool {
	v, err := zval.Load(e, zv)
	if err != nil {
		return false
	}
	_, _, ok := e.resolve(v)
	return ok
}

func (e *Engine) resolve(v zval.Zval) (*Function, zval.Zval, bool) {
	none := zval.FromRaw(e, zval.Raw{})
	if v.IsReference() {
		inner, ok := v.Reference()
		if !ok {
			return nil, none, false
		}
		v = inner
	}
	switch {
	case v.IsString():
		name, ok := v.Str()
		if !ok {
			return nil, none, false
		}
		fn, ok := e.LookupFunction(name)
		return fn, none, ok
	case v.IsObject():
		o, _ := v.Object()
		obj, err := e.object(o)
		if err != nil {
			return nil, none, false
		}
		fn, ok := obj.class.Method("__invoke")
		return fn, v, ok
	}
	return nil, none, false
}

// CallUserFunction calls the zval at callable with argc zvals at argv and
// stores the result at retval. A raised exception is kept pending and the
// status is still Success.
func (e *Engine) CallUserFunction(receiver uint64, callable, retval, argc, argv uint32) int32 {
	cv, err := zval.Load(e, callable)
	if err != nil {
		return abi.Failure
	}
	fn, this, ok := e.resolve(cv)
	if !ok {
		Logger().Debug("call to non-callable value", zap.Stringer("callable", cv))
		return abi.Failure
	}
	if receiver != 0 {
		if _, err := e.object(zval.ObjectHandle(receiver)); err == nil {
			this = zval.New(e)
			this.SetObject(zval.ObjectHandle(receiver))
		}
	}

	size := e.profile.Zval.Size
	args := make([]zval.Zval, argc)
	for i := range args {
		if args[i], err = zval.Load(e, argv+uint32(i)*size); err != nil {
			return abi.Failure
		}
	}

	ret, err := e.invoke(fn, this, args)
	if err != nil {
		Logger().Debug("call setup failed", zap.String("function", fn.QualifiedName()), zap.Error(err))
		return abi.Failure
	}
	if err := ret.Store(retval); err != nil {
		e.release(ret)
		return abi.Failure
	}
	return abi.Success
}

func (e *Engine) invoke(fn *Function, this zval.Zval, args []zval.Zval) (zval.Zval, error) {
	ex, err := e.pushFrame(fn, this, args)
	if err != nil {
		return zval.Zval{}, err
	}
	defer e.popFrame(ex)

	ret := zval.New(e)
	if err := fn.handler(ex, &ret); err != nil {
		e.release(ret)
		e.exception = err
		Logger().Debug("exception raised",
			zap.String("function", fn.QualifiedName()), zap.Error(err))
		return zval.FromRaw(e, zval.Raw{}), nil
	}
	return zval.FromRaw(e, ret.Raw()), nil
}

// Call invokes a function by name from Go. Unlike CallUserFunction, a raised
// exception is returned as the error and cleared.
func (e *Engine) Call(name string, args ...zval.Zval) (zval.Zval, error) {
	fn, ok := e.LookupFunction(name)
	if !ok {
		return zval.Zval{}, errors.NotFound(errors.PhaseCall, "function", name)
	}
	ret, err := e.invoke(fn, zval.FromRaw(e, zval.Raw{}), args)
	if err != nil {
		return zval.Zval{}, err
	}
	if exc := e.exception; exc != nil {
		e.exception = nil
		return ret, errors.Wrap(errors.PhaseCall, errors.KindInvalidData, exc, fn.QualifiedName())
	}
	return ret, nil
}

// EnterFunction builds the frame the engine would pass to name when called
// with args on this. args are copied and the caller keeps its references.
// The frame stays live until Leave.
func (e *Engine) EnterFunction(name string, this zval.Zval, args []zval.Zval) (*frame.ExecuteData, error) {
	fn, ok := e.LookupFunction(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseEngine, "function", name)
	}
	return e.pushFrame(fn, this, args)
}

// Leave tears down a frame created by EnterFunction.
func (e *Engine) Leave(ex *frame.ExecuteData) {
	e.popFrame(ex)
}

// Current returns the innermost live frame.
func (e *Engine) Current() (*frame.ExecuteData, bool) {
	if len(e.frames) == 0 {
		return nil, false
	}
	return frame.New(e, e.frames[len(e.frames)-1]), true
}

// Depth returns the number of live frames.
func (e *Engine) Depth() int { return len(e.frames) }

// NumArgs reads the argument count the engine stores in This.u2.
func (e *Engine) NumArgs(ex *frame.ExecuteData) uint32 {
	p := e.profile
	n, err := e.mem.ReadU32(ex.Base() + p.ExecuteData.This + p.Zval.U2)
	if err != nil {
		return 0
	}
	return n
}

func (e *Engine) pushFrame(fn *Function, this zval.Zval, args []zval.Zval) (*frame.ExecuteData, error) {
	p := e.profile
	argc := uint32(len(args))

	base, err := e.heap.Alloc(e.slots.FrameSize(argc), p.Alignment)
	if err != nil {
		return nil, err
	}
	ex, err := e.writeFrame(base, fn, this, args)
	if err != nil {
		e.heap.Free(base, e.slots.FrameSize(argc), p.Alignment)
		return nil, err
	}
	for _, arg := range args {
		e.addRef(arg)
	}
	e.frames = append(e.frames, base)
	return ex, nil
}

func (e *Engine) writeFrame(base uint32, fn *Function, this zval.Zval, args []zval.Zval) (*frame.ExecuteData, error) {
	p := e.profile
	if err := p.WritePtr(e.mem, base+p.ExecuteData.Func, uint64(fn.Addr)); err != nil {
		return nil, err
	}

	raw := this.Raw()
	raw.U2 = uint32(len(args))
	if err := zval.FromRaw(e, raw).Store(base + p.ExecuteData.This); err != nil {
		return nil, err
	}

	if prev, ok := p.Offset("zend_execute_data", "prev_execute_data"); ok && len(e.frames) > 0 {
		if err := p.WritePtr(e.mem, base+prev, uint64(e.frames[len(e.frames)-1])); err != nil {
			return nil, err
		}
	}

	for i, arg := range args {
		if err := zval.FromRaw(e, arg.Raw()).Store(e.slots.SlotAddress(base, uint32(i))); err != nil {
			return nil, err
		}
	}
	return frame.New(e, base), nil
}

func (e *Engine) popFrame(ex *frame.ExecuteData) {
	base := ex.Base()
	idx := -1
	for i := len(e.frames) - 1; i >= 0; i-- {
		if e.frames[i] == base {
			idx = i
			break
		}
	}
	if idx < 0 {
		Logger().Warn("leave of unknown frame", zap.Uint32("base", base))
		return
	}

	argc := e.NumArgs(ex)
	for i := uint32(0); i < argc; i++ {
		if v, ok := ex.Argument(i); ok {
			e.release(v)
		}
	}
	e.heap.Free(base, e.slots.FrameSize(argc), e.profile.Alignment)
	e.frames = append(e.frames[:idx], e.frames[idx+1:]...)
}
