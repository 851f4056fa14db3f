package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dRing/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Logger is the logger of all transport implementations
var Logger = logger.GetLogger("transport")

// maxDatagramSize is the largest payload that fits into a single UDP datagram
const maxDatagramSize = 64 * 1024

// udpTransport implements transport.IDatagramTransport on a single UDP socket
type udpTransport struct {
	bindAddr string
	conn     net.PacketConn
	closed   atomic.Bool
	wg       sync.WaitGroup

	// resolved caches peer addresses, peers are few and stable
	resolved *xsync.MapOf[string, *net.UDPAddr]
}

// NewUDPTransport creates a transport that will bind to bindAddr (e.g. ":4444") on Listen
func NewUDPTransport(bindAddr string) transport.IDatagramTransport {
	return &udpTransport{
		bindAddr: bindAddr,
		resolved: xsync.NewMapOf[string, *net.UDPAddr](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IDatagramTransport)
// --------------------------------------------------------------------------

func (t *udpTransport) Listen(handler transport.DatagramHandler) error {
	if t.conn != nil {
		return fmt.Errorf("udp transport already listening on %s", t.conn.LocalAddr())
	}

	conn, err := net.ListenPacket("udp", t.bindAddr)
	if err != nil {
		return fmt.Errorf("failed to bind udp socket on %s: %w", t.bindAddr, err)
	}
	t.conn = conn

	Logger.Infof("Listening for datagrams on %s", conn.LocalAddr())

	t.wg.Add(1)
	go t.readLoop(handler)
	return nil
}

func (t *udpTransport) SendTo(addr string, payload []byte) error {
	if t.closed.Load() {
		return transport.ErrClosed
	}
	if t.conn == nil {
		return fmt.Errorf("udp transport is not listening")
	}
	if len(payload) > maxDatagramSize {
		return fmt.Errorf("payload of %d bytes exceeds the datagram limit", len(payload))
	}

	udpAddr, err := t.resolve(addr)
	if err != nil {
		return err
	}

	if _, err := t.conn.WriteTo(payload, udpAddr); err != nil {
		return fmt.Errorf("send to %s: %w", addr, err)
	}
	return nil
}

func (t *udpTransport) LocalAddr() string {
	if t.conn == nil {
		return t.bindAddr
	}
	return t.conn.LocalAddr().String()
}

func (t *udpTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readLoop receives datagrams until the socket is closed
func (t *udpTransport) readLoop(handler transport.DatagramHandler) {
	defer t.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := t.conn.ReadFrom(buf)
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			Logger.Warningf("Read error: %v", err)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		handler(from.String(), payload)
	}
}

// resolve returns the cached UDP address of addr, resolving it on first use
func (t *udpTransport) resolve(addr string) (*net.UDPAddr, error) {
	if udpAddr, ok := t.resolved.Load(addr); ok {
		return udpAddr, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("invalid peer address %q: %w", addr, err)
	}
	t.resolved.Store(addr, udpAddr)
	return udpAddr, nil
}
