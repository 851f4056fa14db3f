// Package transport defines the datagram abstraction the delivery layer is built on.
// Implementations only move opaque byte payloads between addresses; correlation,
// acknowledgements and timeouts are handled one layer up.
//
// Implementations:
//
//   - udp: the production transport. One UDP socket per node, used for sending
//     and receiving; replies are sent to the observed source address.
//
//   - memory: an in-process network for tests and demos. Every endpoint is
//     registered in a shared Network that can drop datagrams, isolate endpoints
//     and take endpoints down, which makes loss and failure scenarios reproducible.
package transport
