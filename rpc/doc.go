// Package rpc contains the networking side of a ring node.
//
// The package is organized into several subpackages:
//
//   - common: The wire message, node and client configuration, and logging.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and datagram payloads.
//
//   - transport: The datagram transport abstraction with a UDP implementation and
//     an in-memory network for tests.
//
//   - delivery: The reliable-delivery layer. It correlates requests with their
//     acknowledgements and fires timeout handlers for requests that are not
//     acknowledged in time.
//
//   - node: The ring protocol (join, neighbor updates, liveness checks) and
//     remote access to the local store of a peer.
//
//   - client: A store client for a single remote node.
//
//   - server: The admin HTTP server of a node.
package rpc
