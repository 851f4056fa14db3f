// Package delivery implements acknowledged request delivery on top of an
// unreliable datagram transport.
//
// Messages describe themselves through the Message interface: whether they need
// an acknowledgement, how long to wait for it and what to do on receipt or on
// timeout. The Layer assigns correlation ids, tracks outstanding sends and runs
// a single scheduler goroutine that reports lost sends through their timeout
// handler. The layer never retransmits; a timeout handler decides whether a
// message is sent again.
//
// Goroutines:
//
//   - the transport read loop only pushes datagrams into a lock-free queue
//   - one dispatcher goroutine decodes datagrams and runs all request handlers
//   - one scheduler goroutine runs all timeout handlers
//
// Handlers must not block on the network. Blocking helpers built on top of the
// layer (waiting for a reply) belong in caller goroutines.
//
// The process context C (usually the node) is passed explicitly to every handler,
// so the layer has no knowledge of the concrete protocol.
package delivery
