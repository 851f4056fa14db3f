// Package lstore implements the local, in-memory key-value store of a ring node
// based on the store.IStore interface. Data is not persisted between restarts.
//
// The map is an xsync.MapOf, so request handlers running on the inbound dispatch
// goroutine and callers on other goroutines can use the store concurrently without
// an extra lock. Put relies on LoadOrStore, which makes "insert unless present"
// a single atomic operation.
//
// Values are copied on Put and Get; callers may reuse their buffers.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//
//	if err := s.Put("file.txt", content); store.IsAlreadyExists(err) {
//	    // keep the existing value
//	}
//
//	value, ok := s.Get("file.txt")
//	previous, ok := s.Remove("file.txt")
package lstore
