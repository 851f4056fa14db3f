package lstore

import (
	"github.com/ValentinKolb/dRing/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

type storeImpl struct {
	data *xsync.MapOf[string, []byte]
}

// NewLocalStore creates a new in-memory local store.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, []byte](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) ([]byte, bool) {
	val, ok := s.data.Load(key)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), val...), true
}

func (s *storeImpl) Put(key string, value []byte) error {
	// LoadOrStore makes the existence check and the insert one atomic step
	if _, loaded := s.data.LoadOrStore(key, append([]byte(nil), value...)); loaded {
		return store.NewError(store.RetCAlreadyExists, "key "+key+" already exists")
	}
	return nil
}

func (s *storeImpl) Remove(key string) ([]byte, bool) {
	return s.data.LoadAndDelete(key)
}

func (s *storeImpl) Len() int {
	return s.data.Size()
}
