package resource

import "testing"

type closer struct{ closed int }

func (c *closer) Destroy() { c.closed++ }

func TestInsertGet(t *testing.T) {
	l := NewList()

	h1 := l.Insert(1, "a", 0x100)
	h2 := l.Insert(2, "b", 0x200)
	if h1 != 1 || h2 != 2 {
		t.Fatalf("handles = %d, %d", h1, h2)
	}

	v, typ, ok := l.Get(h2)
	if !ok || v != "b" || typ != 2 {
		t.Errorf("Get(%d) = %v, %d, %v", h2, v, typ, ok)
	}
	if rep, _ := l.Rep(h1); rep != 0x100 {
		t.Errorf("Rep(%d) = %#x", h1, rep)
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d", l.Len())
	}
}

func TestInvalidHandles(t *testing.T) {
	l := NewList()
	l.Insert(1, "x", 0)

	for _, h := range []Handle{0, 2, 100} {
		if _, _, ok := l.Get(h); ok {
			t.Errorf("Get(%d) found a value", h)
		}
		if _, ok := l.Close(h); ok {
			t.Errorf("Close(%d) succeeded", h)
		}
	}
}

func TestTyped(t *testing.T) {
	l := NewList()
	h := l.Insert(7, 42, 0)

	if v, ok := l.Typed(h, 7); !ok || v != 42 {
		t.Errorf("Typed(7) = %v, %v", v, ok)
	}
	if _, ok := l.Typed(h, 8); ok {
		t.Error("Typed with the wrong type succeeded")
	}
}

func TestCloseReusesHandle(t *testing.T) {
	l := NewList()
	c := &closer{}

	h := l.Insert(1, c, 0)
	l.Insert(1, "keep", 0)

	if _, ok := l.Close(h); !ok {
		t.Fatal("Close failed")
	}
	if c.closed != 1 {
		t.Errorf("destructor ran %d times", c.closed)
	}
	if _, ok := l.Close(h); ok {
		t.Error("double Close succeeded")
	}
	if c.closed != 1 {
		t.Errorf("destructor ran %d times after double close", c.closed)
	}

	if got := l.Insert(2, "new", 0); got != h {
		t.Errorf("handle not reused: got %d, want %d", got, h)
	}
}

func TestClear(t *testing.T) {
	l := NewList()
	a, b := &closer{}, &closer{}
	l.Insert(1, a, 0)
	l.Insert(1, b, 0)

	l.Clear()
	if a.closed != 1 || b.closed != 1 {
		t.Errorf("destructors = %d, %d", a.closed, b.closed)
	}
	if l.Len() != 0 {
		t.Errorf("Len() after Clear = %d", l.Len())
	}
}
