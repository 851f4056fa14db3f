// Package discovery finds entry nodes through etcd.
//
// Each node stores its advertised address under /dring/nodes/<addr>, bound to
// a lease that is kept alive while the node runs. A starting node without an
// explicit entry address lists the registered nodes and joins via a random one.
// Discovery is optional, the ring protocol itself never talks to etcd.
package discovery
