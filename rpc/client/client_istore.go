package client

import (
	"context"

	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/ValentinKolb/dRing/rpc/delivery"
	"github.com/ValentinKolb/dRing/rpc/node"
)

// NewRPCStore creates a client for the local store of the node config.Peer.
// The client runs its own short-lived node, Close releases its port.
func NewRPCStore(config common.ClientConfig) (*RPCStore, error) {
	n, err := newClientNode(config)
	if err != nil {
		return nil, err
	}
	return &RPCStore{node: n, peer: config.Peer}, nil
}

// RPCStore forwards store operations to a single peer
type RPCStore struct {
	node *node.Node
	peer string
}

// Get reads key from the peer's store
func (s *RPCStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.node.RemoteGet(ctx, s.peer, key)
}

// Put stores key on the peer. An existing key is not overwritten, the error
// then satisfies store.IsAlreadyExists.
func (s *RPCStore) Put(ctx context.Context, key string, value []byte) error {
	return s.node.RemotePut(ctx, s.peer, key, value)
}

// Remove deletes key on the peer and returns the removed value
func (s *RPCStore) Remove(ctx context.Context, key string) ([]byte, bool, error) {
	return s.node.RemoteRemove(ctx, s.peer, key)
}

// Delivery returns the delivery counters of the client node
func (s *RPCStore) Delivery() *delivery.Metrics {
	return s.node.Delivery()
}

// Close stops the client node
func (s *RPCStore) Close() error {
	return s.node.Close()
}
