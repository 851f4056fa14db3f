package serve

import "testing"

func TestWithDefaultPort(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"node-1", "node-1:4444"},
		{"node-1:5000", "node-1:5000"},
		{"10.0.0.1", "10.0.0.1:4444"},
		{"[::1]", "[::1]:4444"},
		{"[::1]:5000", "[::1]:5000"},
	}
	for _, tt := range tests {
		if got := withDefaultPort(tt.in); got != tt.want {
			t.Errorf("withDefaultPort(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestPeerChangeMessage(t *testing.T) {
	tests := []struct {
		addr string
		up   bool
		want string
	}{
		{"b:4444", true, "Node b:4444 registered in etcd"},
		{"b:4444", false, "Node b:4444 left etcd"},
		{"a:4444", true, ""},
		{"a:4444", false, ""},
	}
	for _, tt := range tests {
		if got := peerChangeMessage("a:4444", tt.addr, tt.up); got != tt.want {
			t.Errorf("peerChangeMessage(%q, %v) = %q, expected %q", tt.addr, tt.up, got, tt.want)
		}
	}
}
