package transport

import "errors"

// ErrClosed is returned when a closed transport is used
var ErrClosed = errors.New("transport closed")

// DatagramHandler is called by a transport for every datagram it receives.
// from is the sender's address as observed by the transport (host:port),
// payload is owned by the handler.
type DatagramHandler func(from string, payload []byte)

// IDatagramTransport is the interface for unreliable, unordered, connectionless
// message transports. A datagram may be lost, delayed or reordered; the
// transport never retries and never reports delivery.
type IDatagramTransport interface {
	// Listen starts receiving datagrams and passes each of them to handler.
	// It returns once the transport is ready; receiving continues in the background.
	Listen(handler DatagramHandler) error
	// SendTo sends one datagram to addr. A nil error only means the datagram was handed
	// to the network, not that it arrived.
	SendTo(addr string, payload []byte) error
	// LocalAddr returns the address the transport is bound to
	LocalAddr() string
	// Close stops receiving and releases the underlying socket
	Close() error
}
