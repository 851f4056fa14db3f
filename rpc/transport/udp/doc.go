// Package udp implements transport.IDatagramTransport on a single UDP socket.
//
// The same socket is used for sending and receiving, so the source address a peer
// observes is the node's bound address. Received payloads are copied out of the
// read buffer before the handler is called.
package udp
