package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/dRing/rpc/transport/memory"
)

// buildRing builds a ring of the given nodes by joining every node via the first one
func buildRing(t *testing.T, net *memory.Network, addrs ...string) []*Node {
	t.Helper()
	nodes := make([]*Node, len(addrs))
	for i, addr := range addrs {
		nodes[i] = newTestNode(t, net, addr, nil)
	}
	for _, n := range nodes[1:] {
		if err := join(t, n, addrs[0]); err != nil {
			t.Fatalf("%s failed to join: %v", n.Self(), err)
		}
	}
	for _, n := range nodes {
		eventually(t, func() bool { return n.Pending() == 0 })
	}
	return nodes
}

func TestCheckNeighborsHealthy(t *testing.T) {
	net := memory.NewNetwork()
	nodes := buildRing(t, net, "a", "b")

	for _, n := range nodes {
		report, err := n.CheckNeighbors(context.Background())
		if err != nil {
			t.Fatalf("Node %s: unexpected error: %v", n.Self(), err)
		}
		if report.Left != HealthHealthy || report.Right != HealthHealthy {
			t.Errorf("Node %s: expected both neighbors healthy, got %+v", n.Self(), report)
		}
	}
}

// TestCheckNeighborsFailure checks that a crashed neighbor is reported on the right side only
func TestCheckNeighborsFailure(t *testing.T) {
	net := memory.NewNetwork()
	nodes := buildRing(t, net, "a", "b", "c")
	a := nodes[0]

	// a -> c -> b -> a
	expectRight := a.View().Right
	if expectRight != "c" {
		t.Fatalf("Expected c as right neighbor of a, got %q", expectRight)
	}

	net.Isolate("c")
	start := time.Now()
	report, err := a.CheckNeighbors(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("CheckNeighbors took %s", elapsed)
	}

	var failure *NeighborFailureError
	if !errors.As(err, &failure) {
		t.Fatalf("Expected *NeighborFailureError, got %v", err)
	}
	if failure.Left || !failure.Right || failure.RightAddr != "c" {
		t.Errorf("Unexpected failure: %+v", failure)
	}
	if report.Left != HealthHealthy || report.Right != HealthFailed {
		t.Errorf("Unexpected report: %+v", report)
	}

	// detection only, the ring stays as it is
	expectView(t, a, "b", "c", a.View().Status)
	if got := a.neighborFailure.Get(); got != 1 {
		t.Errorf("Expected 1 neighbor failure, got %d", got)
	}
}

func TestCheckNeighborsStandalone(t *testing.T) {
	net := memory.NewNetwork()
	a := newTestNode(t, net, "a", nil)

	report, err := a.CheckNeighbors(context.Background())
	if !errors.Is(err, ErrNoNeighbors) {
		t.Fatalf("Expected ErrNoNeighbors, got %v", err)
	}
	if report.Left != HealthAbsent || report.Right != HealthAbsent {
		t.Errorf("Expected absent neighbors, got %+v", report)
	}
	if a.Pending() != 0 {
		t.Errorf("Expected no probes, got %d pending", a.Pending())
	}
}

func TestCheckNeighborsCancelled(t *testing.T) {
	net := memory.NewNetwork()
	nodes := buildRing(t, net, "a", "b")
	net.Isolate("b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := nodes[0].CheckNeighbors(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRunLivenessLoop(t *testing.T) {
	net := memory.NewNetwork()
	nodes := buildRing(t, net, "a", "b")
	a := nodes[0]

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RunLivenessLoop(ctx, 10*time.Millisecond)
		close(done)
	}()

	eventually(t, func() bool { return a.livenessChecks.Get() >= 3 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Liveness loop did not stop")
	}
}

func TestHealthJSON(t *testing.T) {
	b, err := HealthFailed.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"failed"` {
		t.Errorf("Expected \"failed\", got %s", b)
	}
}
