// Package resource implements the request's resource list.
//
// The engine keeps every live resource in a list indexed by a small integer
// handle; zend_resource.handle stores that index. Handles start at 1 and
// are reused after a resource is closed. A value implementing Destructor is
// destroyed when its entry is closed or the list is cleared.
//
//	list := resource.NewList()
//	h := list.Insert(typeFile, f, addr)
//	v, ok := list.Typed(h, typeFile)
//	list.Close(h) // calls f.Destroy() if implemented
package resource
