package client

import (
	"fmt"

	"github.com/ValentinKolb/dRing/lib/store/lstore"
	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/ValentinKolb/dRing/rpc/node"
	"github.com/ValentinKolb/dRing/rpc/transport/udp"
)

// newClientNode starts a standalone node on an ephemeral port that is only used
// to send requests to other nodes. It never joins a ring and its own store stays empty.
func newClientNode(config common.ClientConfig) (*node.Node, error) {
	if config.Peer == "" {
		return nil, fmt.Errorf("no peer configured")
	}

	cfg := common.DefaultNodeConfig()
	cfg.ListenAddr = ":0"
	cfg.Serializer = config.Serializer
	cfg.RequestTimeoutMs = config.RequestTimeoutMs

	n, err := node.New(cfg, udp.NewUDPTransport(cfg.ListenAddr), lstore.NewLocalStore())
	if err != nil {
		return nil, err
	}
	if err := n.Start(); err != nil {
		return nil, err
	}
	return n, nil
}
