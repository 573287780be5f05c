package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/zval"
)

func TestParseArgs(t *testing.T) {
	e, cleanup, err := newDemoEngine(abi.MustBuiltin("php-8.0-x86_64"))
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	args, err := parseArgs(e, `1, 2.5, true, null, hello, "42", FALSE`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"long(1)", "double(2.5)", "true", "null", `string("hello")`, `string("42")`, "false"}
	if len(args) != len(want) {
		t.Fatalf("got %d args", len(args))
	}
	for i, a := range args {
		if a.String() != want[i] {
			t.Errorf("arg %d = %s, want %s", i, a, want[i])
		}
	}

	if args, _ := parseArgs(e, "  "); args != nil {
		t.Errorf("blank input parsed to %v", args)
	}
}

func TestDemoFunctions(t *testing.T) {
	e, cleanup, err := newDemoEngine(abi.MustBuiltin("php-8.0-i386"))
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	tests := []struct {
		callee string
		args   string
		want   string
	}{
		{"strlen", "hello", "long(5)"},
		{"concat", "a,b,c", `string("abc")`},
		{"sumsq", "3,4", "double(25)"},
		{"identity", "x", `string("x")`},
		{"wasm_add", "40,2", "long(42)"},
		{"describe", "1,x", `string("long(1), string(\"x\")")`},
		{"Counter", "5", "long(15)"},
		{"fail", "", "undef"},
	}
	for _, tt := range tests {
		t.Run(tt.callee, func(t *testing.T) {
			args, err := parseArgs(e, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			callee, err := resolveCallee(e, tt.callee)
			if err != nil {
				t.Fatal(err)
			}
			got, ok := callee.TryCall(args)
			if !ok {
				t.Fatal("not callable")
			}
			if got.String() != tt.want {
				t.Errorf("%s(%s) = %s, want %s", tt.callee, tt.args, got, tt.want)
			}
			e.ClearException()
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	p := abi.MustBuiltin("php-8.0-x86_64")
	path := filepath.Join(t.TempDir(), "frame.cbor")

	if err := run(p, "describe", "1,two,3.5", path, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := run(p, "", "", "", path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := run(abi.MustBuiltin("php-8.0-i386"), "", "", "", path); err == nil {
		t.Error("loading into another profile succeeded")
	}
}

func TestDescribeFrame(t *testing.T) {
	e, cleanup, err := newDemoEngine(abi.MustBuiltin("php-8.0-x86_64"))
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	ex, err := e.EnterFunction("strlen", zval.Zval{}, []zval.Zval{zval.FromLong(e, 3)})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Leave(ex)

	out := describeFrame(e, ex)
	if !strings.Contains(out, "Frame of strlen") || !strings.Contains(out, "5 header slots") {
		t.Errorf("describeFrame = %q", out)
	}
	if !strings.Contains(out, "arg 0") || !strings.Contains(out, "long(3)") {
		t.Errorf("describeFrame = %q", out)
	}
}

func TestSortedFields(t *testing.T) {
	got := sortedFields(map[string]uint32{"b": 8, "a": 8, "c": 0})
	if strings.Join(got, ",") != "c,a,b" {
		t.Errorf("sortedFields = %v", got)
	}
}
