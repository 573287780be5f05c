package snapshot

import (
	"bytes"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/engine"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/zval"
)

func newEngine(t *testing.T, profile string) *engine.Engine {
	t.Helper()
	e, err := engine.New(abi.MustBuiltin(profile))
	if err != nil {
		t.Fatal(err)
	}
	noop := func(*frame.ExecuteData, *zval.Zval) error { return nil }
	if _, err := e.RegisterFunction("target", noop); err != nil {
		t.Fatal(err)
	}
	return e
}

func captureSample(t *testing.T, e *engine.Engine) *Snapshot {
	t.Helper()
	s, _ := zval.FromString(e, "payload")
	arr, _ := e.NewArray()
	a := zval.New(e)
	a.SetArray(arr)

	args := []zval.Zval{zval.FromLong(e, -9), s, zval.FromDouble(e, 0.25), zval.FromBool(e, false), a}
	ex, err := e.EnterFunction("target", zval.Zval{}, args)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Leave(ex)

	snap, err := Capture(e, ex, e.NumArgs(ex))
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestCapture(t *testing.T) {
	e := newEngine(t, "php-8.0-x86_64")
	snap := captureSample(t, e)

	if snap.Profile != "php-8.0-x86_64" || snap.HeaderSlots != 5 || snap.Function != "target" {
		t.Errorf("snapshot header = %q %d %q", snap.Profile, snap.HeaderSlots, snap.Function)
	}
	if len(snap.Header) != 80 {
		t.Errorf("header bytes = %d, want 80", len(snap.Header))
	}
	if len(snap.Args) != 5 {
		t.Fatalf("args = %d", len(snap.Args))
	}
	if snap.Args[1].Text != "payload" || snap.Args[1].Bits != 0 {
		t.Errorf("string image = %+v", snap.Args[1])
	}
	if abi.Type(snap.Args[4].Type) != abi.TypeArray {
		t.Errorf("array image type = %d", snap.Args[4].Type)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	e := newEngine(t, "php-8.0-x86_64")
	snap := captureSample(t, e)

	a, err := Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding differs between runs")
	}

	got, err := Unmarshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if got.Function != snap.Function || len(got.Args) != len(snap.Args) || got.Args[0] != snap.Args[0] {
		t.Errorf("decoded = %+v", got)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("expected decode error")
	}

	data, _ := Marshal(&Snapshot{Version: 99, Profile: "x"})
	_, err := Unmarshal(data)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSnapshot, Kind: errors.KindUnsupported}) {
		t.Errorf("version error = %v", err)
	}
}

func TestRestore(t *testing.T) {
	src := newEngine(t, "php-8.0-x86_64")
	snap := captureSample(t, src)

	dst := newEngine(t, "php-8.0-x86_64")
	before := dst.Heap().Stats().LiveBlocks

	ex, err := Restore(dst, snap)
	if err != nil {
		t.Fatal(err)
	}
	if got := dst.NumArgs(ex); got != 5 {
		t.Errorf("NumArgs = %d", got)
	}
	if n, _ := frame.Arg[int64](ex, 0); n != -9 {
		t.Errorf("arg 0 = %d", n)
	}
	if s, _ := frame.Arg[string](ex, 1); s != "payload" {
		t.Errorf("arg 1 = %q", s)
	}
	if f, _ := frame.Arg[float64](ex, 2); f != 0.25 {
		t.Errorf("arg 2 = %v", f)
	}
	if b, ok := frame.Arg[bool](ex, 3); !ok || b {
		t.Errorf("arg 3 = %v, %v", b, ok)
	}
	if v, _ := ex.Argument(4); !v.IsNull() {
		t.Errorf("array argument restored as %s", v)
	}

	dst.Leave(ex)
	if got := dst.Heap().Stats().LiveBlocks; got != before {
		t.Errorf("live blocks after leave = %d, want %d", got, before)
	}
}

func TestRestoreProfileMismatch(t *testing.T) {
	snap := captureSample(t, newEngine(t, "php-8.0-x86_64"))
	dst := newEngine(t, "php-8.0-i386")

	_, err := Restore(dst, snap)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSnapshot, Kind: errors.KindProfileMismatch}) {
		t.Errorf("Restore error = %v", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	e := newEngine(t, "php-8.0-i386")
	snap := captureSample(t, e)
	path := filepath.Join(t.TempDir(), "frame.cbor")

	if err := WriteFile(path, snap); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.HeaderSlots != 3 || got.Profile != "php-8.0-i386" {
		t.Errorf("read back %q with %d slots", got.Profile, got.HeaderSlots)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
