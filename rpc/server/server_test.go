package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dRing/lib/ring"
	"github.com/ValentinKolb/dRing/lib/store/lstore"
	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/ValentinKolb/dRing/rpc/node"
	"github.com/ValentinKolb/dRing/rpc/transport/memory"
)

func newTestNode(t *testing.T, net *memory.Network, addr string) *node.Node {
	t.Helper()
	ep, err := net.NewEndpoint(addr)
	if err != nil {
		t.Fatalf("Failed to create endpoint: %v", err)
	}
	cfg := common.DefaultNodeConfig()
	cfg.JoinTimeoutMs = 200
	cfg.LivenessTimeoutMs = 50
	cfg.LivenessGraceMs = 100
	n, err := node.New(cfg, ep, lstore.NewLocalStore())
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Failed to start node: %v", err)
	}
	t.Cleanup(func() { _ = n.Close() })
	return n
}

// newPair returns the admin server of a and the network of a two node ring a, b
func newPair(t *testing.T) (*httptest.Server, *memory.Network) {
	t.Helper()
	net := memory.NewNetwork()
	a := newTestNode(t, net, "a")
	b := newTestNode(t, net, "b")

	done, err := b.JoinCluster("a")
	if err != nil {
		t.Fatalf("JoinCluster failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Join did not finish")
	}

	ts := httptest.NewServer(NewAdminServer("", a, true).Handler())
	t.Cleanup(ts.Close)
	return ts, net
}

func TestHealth(t *testing.T) {
	ts, _ := newPair(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestRing(t *testing.T) {
	ts, _ := newPair(t)

	resp, err := http.Get(ts.URL + "/ring")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var view struct {
		Self   string `json:"self"`
		Left   string `json:"left"`
		Right  string `json:"right"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("Failed to decode view: %v", err)
	}
	if view.Self != "a" || view.Left != "b" || view.Right != "b" || view.Status != ring.StatusMember.String() {
		t.Errorf("Unexpected view: %+v", view)
	}
}

func TestCheck(t *testing.T) {
	ts, net := newPair(t)

	check := func() (int, map[string]any) {
		resp, err := http.Post(ts.URL+"/ring/check", "", nil)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		return resp.StatusCode, body
	}

	status, body := check()
	if status != http.StatusOK {
		t.Errorf("Expected 200 for healthy neighbors, got %d (%v)", status, body)
	}

	net.Isolate("b")
	status, body = check()
	if status != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for failed neighbors, got %d", status)
	}
	report, _ := body["report"].(map[string]any)
	if report["left"] != "failed" || report["right"] != "failed" {
		t.Errorf("Unexpected report: %v", body)
	}

	resp, err := http.Get(ts.URL + "/ring/check")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", resp.StatusCode)
	}
}

func TestMetricsAndStats(t *testing.T) {
	ts, _ := newPair(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	for _, name := range []string{"dring_ring_member 1", "dring_delivery_sent_total", "dring_delivery_pending"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Metrics do not contain %q", name)
		}
	}

	resp, err = http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	// a answered the join request of b, which is not acknowledged again
	if stats.Delivery.Sent == 0 {
		t.Errorf("Expected sent datagrams, got %+v", stats.Delivery)
	}
	if _, ok := stats.Timers["delivery.ack.rtt"]; !ok {
		t.Errorf("Expected round-trip timer in stats, got %v", stats.Timers)
	}
}
