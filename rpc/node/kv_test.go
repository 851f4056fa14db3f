package node

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/dRing/lib/store"
	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/ValentinKolb/dRing/rpc/transport/memory"
)

func TestRemoteStore(t *testing.T) {
	for _, ser := range []string{"binary", "json", "gob"} {
		t.Run(ser, func(t *testing.T) {
			net := memory.NewNetwork()
			useSerializer := func(cfg *common.NodeConfig) { cfg.Serializer = ser }
			a := newTestNode(t, net, "a", useSerializer)
			b := newTestNode(t, net, "b", useSerializer)
			ctx := context.Background()

			if err := a.RemotePut(ctx, "b", "key", []byte("value")); err != nil {
				t.Fatalf("RemotePut failed: %v", err)
			}
			if v, ok := b.Store().Get("key"); !ok || !bytes.Equal(v, []byte("value")) {
				t.Errorf("Expected value in b's store, got %q (ok=%v)", v, ok)
			}
			if _, ok := a.Store().Get("key"); ok {
				t.Error("The caller's store must stay untouched")
			}

			v, ok, err := a.RemoteGet(ctx, "b", "key")
			if err != nil || !ok || !bytes.Equal(v, []byte("value")) {
				t.Errorf("RemoteGet: got %q, %v, %v", v, ok, err)
			}

			err = a.RemotePut(ctx, "b", "key", []byte("other"))
			if !store.IsAlreadyExists(err) {
				t.Errorf("Expected already exists error, got %v", err)
			}

			v, ok, err = a.RemoteRemove(ctx, "b", "key")
			if err != nil || !ok || !bytes.Equal(v, []byte("value")) {
				t.Errorf("RemoteRemove: got %q, %v, %v", v, ok, err)
			}

			_, ok, err = a.RemoteGet(ctx, "b", "key")
			if err != nil || ok {
				t.Errorf("Expected missing key after remove, got ok=%v err=%v", ok, err)
			}
			_, ok, err = a.RemoteRemove(ctx, "b", "key")
			if err != nil || ok {
				t.Errorf("Expected nothing to remove, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestRemoteEmptyValue(t *testing.T) {
	net := memory.NewNetwork()
	a := newTestNode(t, net, "a", nil)
	newTestNode(t, net, "b", nil)
	ctx := context.Background()

	if err := a.RemotePut(ctx, "b", "empty", []byte{}); err != nil {
		t.Fatalf("RemotePut failed: %v", err)
	}
	v, ok, err := a.RemoteGet(ctx, "b", "empty")
	if err != nil || !ok || len(v) != 0 {
		t.Errorf("Expected empty value, got %q, %v, %v", v, ok, err)
	}
}

func TestRemoteStoreTimeout(t *testing.T) {
	net := memory.NewNetwork()
	a := newTestNode(t, net, "a", nil)
	newTestNode(t, net, "b", nil)
	net.Isolate("b")

	_, _, err := a.RemoteGet(context.Background(), "b", "key")
	if !errors.Is(err, ErrRequestTimeout) {
		t.Fatalf("Expected ErrRequestTimeout, got %v", err)
	}
	if a.Pending() != 0 {
		t.Errorf("Expected no pending requests, got %d", a.Pending())
	}
}

func TestRemoteStoreContext(t *testing.T) {
	net := memory.NewNetwork()
	a := newTestNode(t, net, "a", func(cfg *common.NodeConfig) { cfg.RequestTimeoutMs = 5000 })
	newTestNode(t, net, "b", nil)
	net.Isolate("b")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := a.RemotePut(ctx, "b", "key", []byte("value")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestRemoteStoreEmptyKey(t *testing.T) {
	net := memory.NewNetwork()
	a := newTestNode(t, net, "a", nil)

	if _, _, err := a.RemoteGet(context.Background(), "b", ""); err == nil {
		t.Error("Expected error for empty key")
	}
}
