package zval

// Extractable lists the Go types a Zval converts to.
type Extractable interface {
	int64 | bool | float64 | string | ArrayHandle | ObjectHandle | ResourceHandle
}

// Extract converts z to T with the same rules as the typed accessors.
func Extract[T Extractable](z Zval) (T, bool) {
	var out T
	var ok bool
	switch p := any(&out).(type) {
	case *int64:
		*p, ok = z.Long()
	case *bool:
		*p, ok = z.Bool()
	case *float64:
		*p, ok = z.Double()
	case *string:
		*p, ok = z.Str()
	case *ArrayHandle:
		*p, ok = z.Array()
	case *ObjectHandle:
		*p, ok = z.Object()
	case *ResourceHandle:
		*p, ok = z.Resource()
	}
	return out, ok
}
