package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/memory"
	"github.com/wippyai/zend-abi/zval"
)

// NewWasmMemory instantiates a module named name that exports a single
// linear memory of pages pages, and wraps it as a region.
func NewWasmMemory(ctx context.Context, rt wazero.Runtime, name string, pages uint32) (*memory.Wrapper, api.Module, error) {
	mod, err := rt.InstantiateWithConfig(ctx, memoryModule(pages), wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "instantiate memory module")
	}
	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = mod.Close(ctx)
		return nil, nil, errors.NotFound(errors.PhaseMemory, "export", "memory")
	}
	return memory.WrapMemory(mem), mod, nil
}

// memoryModule encodes (module (memory (export "memory") pages)).
func memoryModule(pages uint32) []byte {
	mem := append([]byte{0x01, 0x00}, uleb128(pages)...)
	exp := []byte{0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00}

	b := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	b = append(b, 0x05)
	b = append(b, uleb128(uint32(len(mem)))...)
	b = append(b, mem...)
	b = append(b, 0x07)
	b = append(b, uleb128(uint32(len(exp)))...)
	b = append(b, exp...)
	return b
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}

// RegisterWasmFunction exposes a wasm export as a global function. Integer
// parameters take Long arguments, float parameters take Long or Double
// arguments. The first result becomes the return value.
func (e *Engine) RegisterWasmFunction(name string, fn api.Function) (*Function, error) {
	if fn == nil {
		return nil, errors.NilPointer(errors.PhaseEngine, "wasm function")
	}
	def := fn.Definition()
	params := def.ParamTypes()
	results := def.ResultTypes()

	handler := func(ex *frame.ExecuteData, ret *zval.Zval) error {
		if argc := e.NumArgs(ex); argc < uint32(len(params)) {
			return errors.New(errors.PhaseCall, errors.KindInvalidInput).
				Detail("%s expects %d arguments, %d given", name, len(params), argc).
				Build()
		}

		stack := make([]uint64, len(params))
		for i, t := range params {
			v, _ := ex.Argument(uint32(i))
			word, ok := encodeParam(v, t)
			if !ok {
				return errors.New(errors.PhaseCall, errors.KindInvalidInput).
					Path(name).
					Value(v.String()).
					Detail("argument %d must be %s", i, api.ValueTypeName(t)).
					Build()
			}
			stack[i] = word
		}

		out, err := fn.Call(e.ctx, stack...)
		if err != nil {
			return errors.Wrap(errors.PhaseCall, errors.KindInvalidData, err, name)
		}
		if len(results) == 0 || len(out) == 0 {
			ret.SetNull()
			return nil
		}
		decodeResult(ret, out[0], results[0])
		return nil
	}
	return e.RegisterFunction(name, handler)
}

func encodeParam(v zval.Zval, t api.ValueType) (uint64, bool) {
	switch t {
	case api.ValueTypeI32:
		n, ok := v.Long()
		return api.EncodeI32(int32(n)), ok
	case api.ValueTypeI64:
		n, ok := v.Long()
		return api.EncodeI64(n), ok
	case api.ValueTypeF32:
		f, ok := v.Double()
		return api.EncodeF32(float32(f)), ok
	case api.ValueTypeF64:
		f, ok := v.Double()
		return api.EncodeF64(f), ok
	}
	return 0, false
}

func decodeResult(ret *zval.Zval, word uint64, t api.ValueType) {
	switch t {
	case api.ValueTypeI32:
		ret.SetLong(int64(api.DecodeI32(word)))
	case api.ValueTypeI64:
		ret.SetLong(int64(word))
	case api.ValueTypeF32:
		ret.SetDouble(float64(api.DecodeF32(word)))
	case api.ValueTypeF64:
		ret.SetDouble(api.DecodeF64(word))
	default:
		ret.SetNull()
	}
}
