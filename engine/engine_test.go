package engine

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/zval"
)

var testProfiles = []string{"php-8.0-x86_64", "php-7.4-x86_64", "php-8.0-i386"}

func newTestEngine(t *testing.T, profile string) *Engine {
	t.Helper()
	e, err := New(abi.MustBuiltin(profile))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRejectsNilProfile(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil profile")
	}
}

func TestStrings(t *testing.T) {
	for _, name := range testProfiles {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, name)
			before := e.Heap().Stats().LiveBlocks

			ptr, err := e.NewString("hello", false)
			if err != nil {
				t.Fatal(err)
			}
			if s, err := e.StringAt(ptr); err != nil || s != "hello" {
				t.Fatalf("StringAt = %q, %v", s, err)
			}
			if rc, _ := e.Refcount(ptr); rc != 1 {
				t.Errorf("refcount = %d, want 1", rc)
			}

			e.AddRefString(ptr)
			e.ReleaseString(ptr)
			if !e.Heap().Live(uint32(ptr)) {
				t.Fatal("string freed while referenced")
			}
			e.ReleaseString(ptr)
			if e.Heap().Live(uint32(ptr)) {
				t.Error("string not freed at refcount zero")
			}
			if got := e.Heap().Stats().LiveBlocks; got != before {
				t.Errorf("live blocks = %d, want %d", got, before)
			}
		})
	}
}

func TestStringTypeInfo(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")
	p := e.Profile()

	tests := []struct {
		name string
		make func() (uint64, error)
		want uint32
	}{
		{"request", func() (uint64, error) { return e.NewString("a", false) }, abi.GCString},
		{"persistent", func() (uint64, error) { return e.NewString("b", true) }, abi.GCString | abi.StrPersistent},
		{"interned", func() (uint64, error) { return e.NewInternedString("c") }, abi.GCString | abi.StrInterned | abi.StrPersistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptr, err := tt.make()
			if err != nil {
				t.Fatal(err)
			}
			got, _ := e.Memory().ReadU32(uint32(ptr) + p.String.TypeInfo)
			if got != tt.want {
				t.Errorf("type info = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestInternedStringsShared(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")

	a, _ := e.NewInternedString("name")
	b, _ := e.NewInternedString("name")
	if a != b {
		t.Errorf("interned twice: %#x != %#x", a, b)
	}
	e.ReleaseString(a)
	e.ReleaseString(a)
	if !e.Heap().Live(uint32(a)) {
		t.Error("interned string was freed")
	}
}

func TestRegisterFunction(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")
	p := e.Profile()
	noop := func(*frame.ExecuteData, *zval.Zval) error { return nil }

	fn, err := e.RegisterFunction("StrLen", noop)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := e.LookupFunction("strlen"); !ok || got != fn {
		t.Error("lookup is not case-insensitive")
	}
	if _, err := e.RegisterFunction("STRLEN", noop); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEngine, Kind: errors.KindDuplicate}) {
		t.Errorf("duplicate registration error = %v", err)
	}
	if _, err := e.RegisterFunction("nil", nil); err == nil {
		t.Error("expected error for nil handler")
	}

	typ, _ := e.Memory().ReadU8(fn.Addr + p.Function.Type)
	if typ != abi.InternalFunction {
		t.Errorf("function type = %d", typ)
	}
	namePtr, _ := p.ReadPtr(e.Memory(), fn.Addr+p.Function.Name)
	if s, _ := e.StringAt(namePtr); s != "StrLen" {
		t.Errorf("function name = %q", s)
	}
}

func TestCallUserFunction(t *testing.T) {
	for _, name := range testProfiles {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, name)
			var seen []string

			_, err := e.RegisterFunction("join", func(ex *frame.ExecuteData, ret *zval.Zval) error {
				n := e.NumArgs(ex)
				for i := uint32(0); i < n; i++ {
					s, _ := frame.Arg[string](ex, i)
					seen = append(seen, s)
				}
				return ret.SetString(fmt.Sprint(seen))
			})
			if err != nil {
				t.Fatal(err)
			}

			callee, _ := zval.FromString(e, "join")
			a, _ := zval.FromString(e, "x")
			result, ok := callee.TryCall([]zval.Zval{a, zval.FromLong(e, 7)})
			if !ok {
				t.Fatal("TryCall returned no result")
			}
			if s, _ := result.Str(); s != "[x 7]" {
				t.Errorf("result = %q", s)
			}
			if e.Depth() != 0 {
				t.Errorf("frames left live: %d", e.Depth())
			}
		})
	}
}

func TestHandlerErrorBecomesException(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")
	boom := stderrors.New("boom")
	e.RegisterFunction("fail", func(*frame.ExecuteData, *zval.Zval) error { return boom })

	callee, _ := zval.FromString(e, "fail")
	result, ok := callee.TryCall(nil)
	if !ok {
		t.Fatal("call with exception must still be present")
	}
	if !result.IsUndef() {
		t.Errorf("result = %s, want undef", result)
	}
	if !stderrors.Is(e.Exception(), boom) {
		t.Errorf("Exception() = %v", e.Exception())
	}
	e.ClearException()
	if e.Exception() != nil {
		t.Error("exception not cleared")
	}
}

func TestHandlerErrorReleasesReturnValue(t *testing.T) {
	for _, name := range testProfiles {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, name)
			e.RegisterFunction("partial", func(_ *frame.ExecuteData, ret *zval.Zval) error {
				if err := ret.SetString("partial"); err != nil {
					return err
				}
				return stderrors.New("boom")
			})

			callee, _ := zval.FromString(e, "partial")
			before := e.Heap().Stats().LiveBlocks

			result, ok := callee.TryCall(nil)
			if !ok || !result.IsUndef() {
				t.Fatalf("TryCall = %s, %v; want undef, true", result, ok)
			}
			if got := e.Heap().Stats().LiveBlocks; got != before {
				t.Errorf("live blocks = %d, want %d", got, before)
			}
			e.ClearException()
		})
	}
}

func TestHandlerReturnsArgument(t *testing.T) {
	for _, name := range testProfiles {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, name)
			e.RegisterFunction("id", func(ex *frame.ExecuteData, ret *zval.Zval) error {
				v, ok := ex.Argument(0)
				if !ok {
					return stderrors.New("missing argument")
				}
				*ret = e.Copy(v)
				return nil
			})

			callee, _ := zval.FromString(e, "id")
			before := e.Heap().Stats().LiveBlocks
			arg, _ := zval.FromString(e, "hello")

			result, ok := callee.TryCall([]zval.Zval{arg})
			if !ok {
				t.Fatal("TryCall returned no result")
			}
			ptr := e.Profile().PtrFromBits(result.Raw().Value)
			if !e.Heap().Live(uint32(ptr)) {
				t.Fatal("returned string was freed")
			}
			if rc, _ := e.Refcount(ptr); rc != 1 {
				t.Errorf("refcount = %d, want 1", rc)
			}
			if s, _ := result.Str(); s != "hello" {
				t.Errorf("result = %q", s)
			}

			e.ReleaseString(ptr)
			if got := e.Heap().Stats().LiveBlocks; got != before {
				t.Errorf("live blocks = %d, want %d", got, before)
			}
		})
	}
}

func TestCopyLongIsPlainCopy(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")
	v := zval.FromLong(e, 9)
	if got := e.Copy(v); got.Raw() != v.Raw() {
		t.Errorf("Copy = %+v, want %+v", got.Raw(), v.Raw())
	}
}

func TestReferenceToFunctionNameIsCallable(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")
	e.RegisterFunction("seven", func(_ *frame.ExecuteData, ret *zval.Zval) error {
		ret.SetLong(7)
		return nil
	})

	name, _ := zval.FromString(e, "seven")
	h, err := e.NewReference(name)
	if err != nil {
		t.Fatal(err)
	}
	ref := zval.New(e)
	ref.SetReference(h)

	if !ref.IsCallable() {
		t.Fatal("reference to a function name is not callable")
	}
	result, ok := ref.TryCall(nil)
	if !ok {
		t.Fatal("TryCall returned no result")
	}
	if n, _ := result.Long(); n != 7 {
		t.Errorf("result = %s", result)
	}

	dangling := zval.New(e)
	dangling.SetReference(0)
	if dangling.IsCallable() {
		t.Error("null reference reported callable")
	}
}

func TestCallByName(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")
	e.RegisterFunction("twice", func(ex *frame.ExecuteData, ret *zval.Zval) error {
		n, ok := frame.Arg[int64](ex, 0)
		if !ok {
			return stderrors.New("int required")
		}
		ret.SetLong(2 * n)
		return nil
	})

	got, err := e.Call("twice", zval.FromLong(e, 21))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := got.Long(); n != 42 {
		t.Errorf("twice(21) = %d", n)
	}

	if _, err := e.Call("twice", zval.New(e)); err == nil {
		t.Error("expected exception for null argument")
	}
	if e.Exception() != nil {
		t.Error("Call must clear the exception it returns")
	}
	if _, err := e.Call("missing"); err == nil {
		t.Error("expected not found error")
	}
}

func TestNestedFramesLinkPrevious(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")
	p := e.Profile()
	prevOff, _ := p.Offset("zend_execute_data", "prev_execute_data")

	var outer, innerPrev uint64
	e.RegisterFunction("inner", func(ex *frame.ExecuteData, ret *zval.Zval) error {
		innerPrev, _ = p.ReadPtr(e.Memory(), ex.Base()+prevOff)
		return nil
	})
	e.RegisterFunction("outer", func(ex *frame.ExecuteData, ret *zval.Zval) error {
		outer = uint64(ex.Base())
		_, err := e.Call("inner")
		return err
	})

	if _, err := e.Call("outer"); err != nil {
		t.Fatal(err)
	}
	if innerPrev != outer {
		t.Errorf("prev_execute_data = %#x, want %#x", innerPrev, outer)
	}
}

func TestEnterFunction(t *testing.T) {
	e := newTestEngine(t, "php-8.0-x86_64")
	e.RegisterFunction("f", func(*frame.ExecuteData, *zval.Zval) error { return nil })

	s, _ := zval.FromString(e, "kept")
	ex, err := e.EnterFunction("f", zval.Zval{}, []zval.Zval{s, zval.FromBool(e, true)})
	if err != nil {
		t.Fatal(err)
	}
	if got := e.NumArgs(ex); got != 2 {
		t.Errorf("NumArgs = %d", got)
	}
	if cur, ok := e.Current(); !ok || cur.Base() != ex.Base() {
		t.Error("Current does not return the entered frame")
	}

	ptr := e.Profile().PtrFromBits(s.Raw().Value)
	if rc, _ := e.Refcount(ptr); rc != 2 {
		t.Errorf("refcount inside frame = %d, want 2", rc)
	}
	e.Leave(ex)
	if rc, _ := e.Refcount(ptr); rc != 1 {
		t.Errorf("refcount after leave = %d, want 1", rc)
	}
	if _, err := e.EnterFunction("nope", zval.Zval{}, nil); err == nil {
		t.Error("expected not found error")
	}
}
