package server

import (
	"context"
	"io"

	"github.com/ValentinKolb/dRing/lib/ring"
	"github.com/ValentinKolb/dRing/rpc/delivery"
	"github.com/ValentinKolb/dRing/rpc/node"
)

// IRingNode is the part of a ring node the admin server exposes.
// It is implemented by *node.Node.
type IRingNode interface {
	// View returns a snapshot of the ring state
	View() ring.View
	// CheckNeighbors probes both neighbors and waits for the outcome
	CheckNeighbors(ctx context.Context) (node.NeighborReport, error)
	// Pending returns the number of requests waiting for an acknowledgement
	Pending() int
	// Delivery returns the counters of the delivery layer
	Delivery() *delivery.Metrics
	// WritePrometheus writes the node metrics in Prometheus text format
	WritePrometheus(w io.Writer)
}

var _ IRingNode = (*node.Node)(nil)
