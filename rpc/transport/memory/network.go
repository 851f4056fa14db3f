package memory

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dRing/lib/util"
	"github.com/ValentinKolb/dRing/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// inboxSize is the number of datagrams an endpoint buffers before further ones are dropped
const inboxSize = 1024

// --------------------------------------------------------------------------
// Network
// --------------------------------------------------------------------------

// Network is an in-process datagram network. All endpoints created from the same
// Network can reach each other by address, subject to the configured faults.
type Network struct {
	endpoints *xsync.MapOf[string, *Endpoint]

	mu       sync.Mutex
	rng      *rand.Rand
	dropRate float64
	isolated map[string]bool
	cut      map[[2]string]bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewNetwork creates an empty network without faults
func NewNetwork() *Network {
	return &Network{
		endpoints: xsync.NewMapOf[string, *Endpoint](),
		rng:       rand.New(rand.NewSource(int64(util.GenerateSeed()))),
		isolated:  make(map[string]bool),
		cut:       make(map[[2]string]bool),
	}
}

// NewEndpoint registers a new endpoint under addr
func (n *Network) NewEndpoint(addr string) (*Endpoint, error) {
	e := &Endpoint{
		addr:    addr,
		network: n,
		inbox:   make(chan datagram, inboxSize),
		done:    make(chan struct{}),
	}
	if _, loaded := n.endpoints.LoadOrStore(addr, e); loaded {
		return nil, fmt.Errorf("address %s already in use", addr)
	}
	return e, nil
}

// SetDropRate makes the network drop each datagram with probability p
func (n *Network) SetDropRate(p float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropRate = p
}

// Isolate drops every datagram sent to or from addr, as if the node had crashed
func (n *Network) Isolate(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isolated[addr] = true
}

// Partition drops every datagram between a and b in both directions
func (n *Network) Partition(a, b string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cut[[2]string{a, b}] = true
	n.cut[[2]string{b, a}] = true
}

// Heal removes all isolations, partitions and the drop rate
func (n *Network) Heal() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropRate = 0
	n.isolated = make(map[string]bool)
	n.cut = make(map[[2]string]bool)
}

// Stats returns the number of delivered and dropped datagrams
func (n *Network) Stats() (delivered, dropped uint64) {
	return n.delivered.Load(), n.dropped.Load()
}

// shouldDrop decides the fate of a single datagram
func (n *Network) shouldDrop(from, to string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.isolated[from] || n.isolated[to] || n.cut[[2]string{from, to}] {
		return true
	}
	return n.dropRate > 0 && n.rng.Float64() < n.dropRate
}

// route hands a datagram to the destination's inbox, dropping it when that is not possible
func (n *Network) route(from, to string, payload []byte) {
	dst, ok := n.endpoints.Load(to)
	if !ok || n.shouldDrop(from, to) {
		n.dropped.Add(1)
		return
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)

	select {
	case dst.inbox <- datagram{from: from, payload: buf}:
		n.delivered.Add(1)
	case <-dst.done:
		n.dropped.Add(1)
	default:
		n.dropped.Add(1)
	}
}

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

type datagram struct {
	from    string
	payload []byte
}

// Endpoint implements transport.IDatagramTransport on top of a Network
type Endpoint struct {
	addr    string
	network *Network

	inbox     chan datagram
	done      chan struct{}
	closeOnce sync.Once
	listening atomic.Bool
	wg        sync.WaitGroup
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IDatagramTransport)
// --------------------------------------------------------------------------

func (e *Endpoint) Listen(handler transport.DatagramHandler) error {
	if !e.listening.CompareAndSwap(false, true) {
		return fmt.Errorf("endpoint %s already listening", e.addr)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case d := <-e.inbox:
				handler(d.from, d.payload)
			case <-e.done:
				return
			}
		}
	}()
	return nil
}

func (e *Endpoint) SendTo(addr string, payload []byte) error {
	select {
	case <-e.done:
		return transport.ErrClosed
	default:
	}
	e.network.route(e.addr, addr, payload)
	return nil
}

func (e *Endpoint) LocalAddr() string {
	return e.addr
}

func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		e.network.endpoints.Delete(e.addr)
	})
	e.wg.Wait()
	return nil
}
