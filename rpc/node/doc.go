// Package node implements the ring membership protocol and the process context
// of a ring member.
//
// A Node combines the ring state (lib/ring), the local store (lib/store) and a
// delivery layer (rpc/delivery). Each protocol action is its own message type
// carrying its own behavior: the delivery layer calls HandleRequest on the
// receiving node and HandleTimeout on the sending node, with the Node passed
// in explicitly.
//
// Protocol:
//
//   - join: a standalone node sends a join request to an entry node. The entry
//     inserts the joiner as its successor, answers with the joiner's neighbors and
//     tells its previous successor about its new predecessor. A standalone entry
//     and the joiner form a ring of two where both neighbors are the other node.
//     Unanswered join requests are retried JoinRetries times, then the node stays
//     standalone.
//
//   - liveness: CheckNeighbors probes both neighbors concurrently and reports each
//     side as healthy, failed or absent. Failures are detected, not repaired.
//
//   - remote store access: RemoteGet, RemotePut and RemoteRemove operate on the
//     local store of one named peer. There is no key placement or routing.
//
// Handlers run on the delivery layer's goroutines and never block; the blocking
// helpers (CheckNeighbors, Remote*, waiting on the join channel) are meant for
// caller goroutines.
package node
