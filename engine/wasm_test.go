package engine

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/zval"
)

// addModule is (func (export "add") (param i64 i64) (result i64) local.get 0 local.get 1 i64.add)
var addModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7c, 0x0b,
}

func TestUleb128(t *testing.T) {
	tests := []struct {
		in   uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, tt := range tests {
		got := uleb128(tt.in)
		if string(got) != string(tt.want) {
			t.Errorf("uleb128(%d) = % x, want % x", tt.in, got, tt.want)
		}
	}
}

func TestEngineOnWasmMemory(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mem, _, err := NewWasmMemory(ctx, rt, "heap", 1)
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewWithConfig(abi.MustBuiltin("php-8.0-x86_64"), &Config{Memory: mem, Context: ctx})
	if err != nil {
		t.Fatal(err)
	}

	big := make([]byte, 100_000)
	for i := range big {
		big[i] = 'a'
	}
	ptr, err := e.NewString(string(big), false)
	if err != nil {
		t.Fatalf("NewString beyond one page: %v", err)
	}
	if s, _ := e.StringAt(ptr); len(s) != len(big) {
		t.Errorf("string length = %d", len(s))
	}
	if mem.Size() < 2*65536 {
		t.Errorf("memory did not grow: %d", mem.Size())
	}
}

func TestRegisterWasmFunction(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, addModule)
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewWithConfig(abi.MustBuiltin("php-8.0-x86_64"), &Config{Context: ctx})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.RegisterWasmFunction("wasm_add", mod.ExportedFunction("add")); err != nil {
		t.Fatal(err)
	}

	got, err := e.Call("wasm_add", zval.FromLong(e, 40), zval.FromLong(e, 2))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := got.Long(); n != 42 {
		t.Errorf("wasm_add(40, 2) = %s", got)
	}

	if _, err := e.Call("wasm_add", zval.FromLong(e, 1)); err == nil {
		t.Error("expected arity error")
	}
	if _, err := e.Call("wasm_add", zval.FromDouble(e, 1), zval.FromLong(e, 1)); err == nil {
		t.Error("expected type error for double argument to i64")
	}
	if _, err := e.RegisterWasmFunction("nil", nil); err == nil {
		t.Error("expected error for nil function")
	}
}
