// Package util provides the low-level building blocks of the delivery layer.
//
// The package contains:
//   - mapheap: a min-heap with key-based access, used as the deadline queue of
//     outstanding acknowledgement-requiring sends (request id -> deadline)
//   - lockfreempsc: a lock-free Multi-Producer Single-Consumer queue that hands
//     inbound datagrams to the single dispatch goroutine
//   - functions: seeding and time helpers
//
// None of the types are tied to the ring protocol; the delivery layer composes
// them with its own locking.
package util
