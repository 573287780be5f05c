package resource

// Handle is an index into a List. Handle 0 is never valid.
type Handle uint32

// Destructor is implemented by values that release state when closed.
type Destructor interface {
	Destroy()
}

// List stores resources by handle. It is not safe for concurrent use.
type List struct {
	entries  []entry
	freeList []Handle
}

type entry struct {
	value any
	typ   int32
	rep   uint32
	valid bool
}

// NewList creates an empty list.
func NewList() *List {
	return &List{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

// Insert adds a value of resource type typ whose zend_resource lives at
// rep, and returns its handle.
func (l *List) Insert(typ int32, value any, rep uint32) Handle {
	e := entry{value: value, typ: typ, rep: rep, valid: true}

	if len(l.freeList) > 0 {
		h := l.freeList[len(l.freeList)-1]
		l.freeList = l.freeList[:len(l.freeList)-1]
		l.entries[h-1] = e
		return h
	}

	l.entries = append(l.entries, e)
	return Handle(len(l.entries))
}

func (l *List) lookup(h Handle) (*entry, bool) {
	if h == 0 || int(h) > len(l.entries) {
		return nil, false
	}
	e := &l.entries[h-1]
	return e, e.valid
}

// Get returns the value and type stored at h.
func (l *List) Get(h Handle) (any, int32, bool) {
	e, ok := l.lookup(h)
	if !ok {
		return nil, 0, false
	}
	return e.value, e.typ, true
}

// Typed returns the value at h only if it has resource type typ.
func (l *List) Typed(h Handle, typ int32) (any, bool) {
	e, ok := l.lookup(h)
	if !ok || e.typ != typ {
		return nil, false
	}
	return e.value, true
}

// Rep returns the zend_resource address recorded for h.
func (l *List) Rep(h Handle) (uint32, bool) {
	e, ok := l.lookup(h)
	if !ok {
		return 0, false
	}
	return e.rep, true
}

// Close destroys the value at h and frees the handle.
func (l *List) Close(h Handle) (any, bool) {
	e, ok := l.lookup(h)
	if !ok {
		return nil, false
	}
	value := e.value
	*e = entry{}
	l.freeList = append(l.freeList, h)

	if d, ok := value.(Destructor); ok {
		d.Destroy()
	}
	return value, true
}

// Len returns the number of live resources.
func (l *List) Len() int {
	return len(l.entries) - len(l.freeList)
}

// Clear closes every live resource.
func (l *List) Clear() {
	for i := range l.entries {
		if l.entries[i].valid {
			l.Close(Handle(i + 1))
		}
	}
}
