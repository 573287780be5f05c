package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/engine"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/zval"
)

type demoFunc struct {
	handler engine.Handler
	name    string
	params  string
}

// addModule exports add(i64, i64) -> i64.
var addModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7c, 0x0b,
}

func demoFunctions(e *engine.Engine) []demoFunc {
	return []demoFunc{
		{name: "strlen", params: "string", handler: func(ex *frame.ExecuteData, ret *zval.Zval) error {
			s, ok := frame.Arg[string](ex, 0)
			if !ok {
				return fmt.Errorf("strlen() expects a string")
			}
			ret.SetLong(int64(len(s)))
			return nil
		}},
		{name: "concat", params: "string...", handler: func(ex *frame.ExecuteData, ret *zval.Zval) error {
			var b strings.Builder
			for i := uint32(0); i < e.NumArgs(ex); i++ {
				s, _ := frame.Arg[string](ex, i)
				b.WriteString(s)
			}
			return ret.SetString(b.String())
		}},
		{name: "describe", params: "mixed...", handler: func(ex *frame.ExecuteData, ret *zval.Zval) error {
			parts := make([]string, 0, e.NumArgs(ex))
			for i := uint32(0); i < e.NumArgs(ex); i++ {
				v, _ := ex.Argument(i)
				parts = append(parts, v.String())
			}
			return ret.SetString(strings.Join(parts, ", "))
		}},
		{name: "identity", params: "mixed", handler: func(ex *frame.ExecuteData, ret *zval.Zval) error {
			v, ok := ex.Argument(0)
			if !ok {
				return fmt.Errorf("identity() expects one argument")
			}
			*ret = e.Copy(v)
			return nil
		}},
		{name: "sumsq", params: "float, float", handler: func(ex *frame.ExecuteData, ret *zval.Zval) error {
			a, ok1 := frame.Arg[float64](ex, 0)
			b, ok2 := frame.Arg[float64](ex, 1)
			if !ok1 || !ok2 {
				return fmt.Errorf("sumsq() expects two numbers")
			}
			ret.SetDouble(a*a + b*b)
			return nil
		}},
		{name: "fail", params: "", handler: func(*frame.ExecuteData, *zval.Zval) error {
			return fmt.Errorf("fail() always throws")
		}},
	}
}

// newDemoEngine creates an engine with the demo functions, a wasm-backed
// wasm_add and an invokable Counter class.
func newDemoEngine(p *abi.Profile) (*engine.Engine, func(), error) {
	ctx := context.Background()
	e, err := engine.NewWithConfig(p, &engine.Config{Context: ctx})
	if err != nil {
		return nil, nil, err
	}
	for _, f := range demoFunctions(e) {
		if _, err := e.RegisterFunction(f.name, f.handler); err != nil {
			return nil, nil, err
		}
	}

	c, err := e.DefineClass("Counter")
	if err != nil {
		return nil, nil, err
	}
	_, err = c.DefineMethod("__invoke", func(ex *frame.ExecuteData, ret *zval.Zval) error {
		start, _ := ex.GetByName("start")
		n, _ := start.Long()
		step, ok := frame.Arg[int64](ex, 0)
		if !ok {
			step = 1
		}
		ret.SetLong(n + step)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	rt := wazero.NewRuntime(ctx)
	cleanup := func() { _ = rt.Close(ctx) }
	mod, err := rt.Instantiate(ctx, addModule)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if _, err := e.RegisterWasmFunction("wasm_add", mod.ExportedFunction("add")); err != nil {
		cleanup()
		return nil, nil, err
	}
	return e, cleanup, nil
}

// newCounter returns an invokable Counter object starting at start.
func newCounter(e *engine.Engine, start int64) (zval.Zval, error) {
	c, ok := e.LookupClass("Counter")
	if !ok {
		return zval.Zval{}, fmt.Errorf("class Counter not defined")
	}
	o, err := e.NewObject(c)
	if err != nil {
		return zval.Zval{}, err
	}
	if err := e.SetProperty(o, "start", zval.FromLong(e, start)); err != nil {
		return zval.Zval{}, err
	}
	v := zval.New(e)
	v.SetObject(o)
	return v, nil
}
