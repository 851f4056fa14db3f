package udp

import (
	"bytes"
	"testing"
	"time"
)

type received struct {
	from    string
	payload []byte
}

func listen(t *testing.T) (*udpTransport, chan received) {
	t.Helper()
	tr := NewUDPTransport("127.0.0.1:0").(*udpTransport)
	ch := make(chan received, 16)
	if err := tr.Listen(func(from string, payload []byte) {
		ch <- received{from: from, payload: payload}
	}); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr, ch
}

// TestSendAndReceive sends a datagram over loopback and checks payload and source address
func TestSendAndReceive(t *testing.T) {
	a, _ := listen(t)
	b, inbox := listen(t)

	if err := a.SendTo(b.LocalAddr(), []byte("ping")); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}

	select {
	case r := <-inbox:
		if !bytes.Equal(r.payload, []byte("ping")) {
			t.Errorf("Expected payload 'ping', got %q", r.payload)
		}
		if r.from != a.LocalAddr() {
			t.Errorf("Expected sender %s, got %s", a.LocalAddr(), r.from)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Datagram not received")
	}
}

// TestReplyToObservedAddress answers to the observed source address
func TestReplyToObservedAddress(t *testing.T) {
	a, inboxA := listen(t)
	b, inboxB := listen(t)

	if err := a.SendTo(b.LocalAddr(), []byte("req")); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}

	var from string
	select {
	case r := <-inboxB:
		from = r.from
	case <-time.After(2 * time.Second):
		t.Fatal("Request not received")
	}

	if err := b.SendTo(from, []byte("resp")); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	select {
	case r := <-inboxA:
		if string(r.payload) != "resp" {
			t.Errorf("Expected 'resp', got %q", r.payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Reply not received")
	}
}

// TestSendErrors covers invalid addresses, oversized payloads and closed transports
func TestSendErrors(t *testing.T) {
	a, _ := listen(t)

	if err := a.SendTo("not an address", []byte("x")); err == nil {
		t.Error("Expected error for invalid address")
	}
	if err := a.SendTo("127.0.0.1:9", make([]byte, maxDatagramSize+1)); err == nil {
		t.Error("Expected error for oversized payload")
	}

	_ = a.Close()
	if err := a.SendTo("127.0.0.1:9", []byte("x")); err == nil {
		t.Error("Expected error after Close")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}
}
