package lstore

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dRing/lib/store"
)

func TestPutGetRemove(t *testing.T) {
	s := NewLocalStore()

	data := []struct {
		k string
		v []byte
	}{
		{"a", []byte("alpha")},
		{"b", []byte("beta")},
		{"c", []byte("gamma")},
	}

	for _, r := range data {
		if err := s.Put(r.k, r.v); err != nil {
			t.Fatalf("Put(%q) = %v", r.k, err)
		}
	}

	if got := s.Len(); got != len(data) {
		t.Fatalf("Len = %d, want %d", got, len(data))
	}

	for _, r := range data {
		got, ok := s.Get(r.k)
		if !ok || !bytes.Equal(got, r.v) {
			t.Fatalf("Get(%q) = %q,%v want %q,true", r.k, got, ok, r.v)
		}
	}

	prev, ok := s.Remove("b")
	if !ok || string(prev) != "beta" {
		t.Fatalf("Remove(b) = %q,%v want beta,true", prev, ok)
	}
	if _, ok := s.Get("b"); ok {
		t.Fatalf("Get(b) ok after remove")
	}
	if _, ok := s.Remove("b"); ok {
		t.Fatalf("second Remove(b) reported a value")
	}
}

func TestPutDoesNotOverwrite(t *testing.T) {
	s := NewLocalStore()

	if err := s.Put("x", []byte("one")); err != nil {
		t.Fatalf("first Put: %v", err)
	}

	err := s.Put("x", []byte("two"))
	if !store.IsAlreadyExists(err) {
		t.Fatalf("second Put = %v, want already-exists error", err)
	}

	v, _ := s.Get("x")
	if string(v) != "one" {
		t.Fatalf("Get(x) = %q, want one", v)
	}
}

func TestValuesAreCopied(t *testing.T) {
	s := NewLocalStore()

	buf := []byte("abc")
	_ = s.Put("k", buf)
	buf[0] = 'z'

	v, _ := s.Get("k")
	if string(v) != "abc" {
		t.Fatalf("stored value changed with caller buffer: %q", v)
	}

	v[1] = 'z'
	again, _ := s.Get("k")
	if string(again) != "abc" {
		t.Fatalf("stored value changed through returned slice: %q", again)
	}
}

func TestConcurrentPutSameKey(t *testing.T) {
	s := NewLocalStore()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Put("contended", []byte(fmt.Sprint(i))); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("%d concurrent puts succeeded, want exactly 1", got)
	}
}
