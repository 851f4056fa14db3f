package node

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/ValentinKolb/dRing/lib/ring"
	"github.com/ValentinKolb/dRing/lib/store"
	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/ValentinKolb/dRing/rpc/delivery"
	"github.com/ValentinKolb/dRing/rpc/serializer"
	"github.com/ValentinKolb/dRing/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger of the ring protocol
var Logger = logger.GetLogger("node")

// Node is the process context of a ring member. It owns the ring state, the
// local store and the delivery layer, and is passed to every message handler.
type Node struct {
	config common.NodeConfig
	state  *ring.State
	store  store.IStore
	layer  *delivery.Layer[*Node]

	// the running join attempt, nil if none
	joinMu sync.Mutex
	join   *joinAttempt

	metrics         *metrics.Set
	joins           *metrics.Counter
	joinTimeouts    *metrics.Counter
	livenessChecks  *metrics.Counter
	neighborFailure *metrics.Counter
}

// New creates a node on top of the given transport and store. The node does not
// receive anything until Start is called.
func New(config common.NodeConfig, t transport.IDatagramTransport, st store.IStore) (*Node, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node config: %w", err)
	}

	ser, err := serializer.New(config.Serializer)
	if err != nil {
		return nil, err
	}

	n := &Node{
		config:  config,
		state:   ring.NewState(config.AdvertiseAddr),
		store:   st,
		metrics: metrics.NewSet(),
	}
	n.layer = delivery.NewLayer[*Node](t, codec{serializer: ser})

	n.joins = n.metrics.NewCounter("dring_ring_joins_total")
	n.joinTimeouts = n.metrics.NewCounter("dring_ring_join_timeouts_total")
	n.livenessChecks = n.metrics.NewCounter("dring_ring_liveness_checks_total")
	n.neighborFailure = n.metrics.NewCounter("dring_ring_neighbor_failures_total")
	n.metrics.NewGauge("dring_ring_member", func() float64 {
		if n.state.Status() == ring.StatusMember {
			return 1
		}
		return 0
	})

	return n, nil
}

// Start binds the transport and starts the delivery layer. Without an advertised
// address the node announces the bound address.
func (n *Node) Start() error {
	if err := n.layer.Start(n); err != nil {
		return fmt.Errorf("failed to start delivery layer: %w", err)
	}
	if n.config.AdvertiseAddr == "" {
		n.state.SetSelf(advertiseAddr(n.layer.LocalAddr()))
	}
	Logger.Infof("Node %s started (standalone)", n.state.Self())
	return nil
}

// Close stops the node. Pending requests are dropped.
func (n *Node) Close() error {
	return n.layer.Close()
}

// View returns a consistent snapshot of the ring state
func (n *Node) View() ring.View {
	return n.state.View()
}

// Self returns the address the node announces to peers
func (n *Node) Self() string {
	return n.state.Self()
}

// Store returns the local store
func (n *Node) Store() store.IStore {
	return n.store
}

// Delivery returns the counters of the delivery layer
func (n *Node) Delivery() *delivery.Metrics {
	return n.layer.Metrics()
}

// Pending returns the number of requests waiting for an acknowledgement
func (n *Node) Pending() int {
	return n.layer.Pending()
}

// WritePrometheus writes the ring and delivery metrics in Prometheus text format
func (n *Node) WritePrometheus(w io.Writer) {
	n.metrics.WritePrometheus(w)
	n.layer.Metrics().WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// send hands m to the delivery layer, errors are logged since handlers have no caller to report to
func (n *Node) send(m msg, to string) {
	if err := n.layer.Send(m, to); err != nil {
		Logger.Errorf("Failed to send %T to %s: %v", m, to, err)
	}
}

// advertiseAddr replaces an unspecified bind host (":4444", "0.0.0.0:4444") with the host name
func advertiseAddr(bound string) string {
	host, port, err := net.SplitHostPort(bound)
	if err != nil {
		return bound
	}
	if ip := net.ParseIP(host); host != "" && (ip == nil || !ip.IsUnspecified()) {
		return bound
	}
	name, err := os.Hostname()
	if err != nil {
		Logger.Warningf("Bound to %s without an advertise address and the host name is unknown: %v", bound, err)
		return bound
	}
	return net.JoinHostPort(name, port)
}
