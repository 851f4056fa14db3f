// Package store defines the interface of a node's local key-value slice together
// with its error codes.
//
// The store is flat: a plain get/put/remove mapping with no notion of
// ring position, replication or expiry. Put never overwrites; inserting a key that
// already exists yields an *Error with code RetCAlreadyExists so callers (and remote
// peers, through the kvResult message) can tell the two outcomes apart.
//
// Implementations:
//
//   - Local Store (lstore): a concurrent in-memory map, safe to use from the inbound
//     dispatch goroutine and from caller goroutines at the same time.
//     Available in the "github.com/ValentinKolb/dRing/lib/store/lstore" package.
package store
