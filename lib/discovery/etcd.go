package discovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

var Logger = logger.GetLogger("discovery")

// nodesPrefix is the etcd key prefix under which every node registers its address
const nodesPrefix = "/dring/nodes/"

// ErrNotRegistered is returned by operations that need a registered node
var ErrNotRegistered = errors.New("node is not registered")

// Registry announces the local node in etcd and finds entry nodes for joins.
// The registration is bound to a lease, a crashed node disappears once the
// lease expires.
type Registry struct {
	cli *clientv3.Client
	ttl int64

	mu      sync.Mutex
	self    string
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRegistry connects to the etcd cluster. ttlSec is the lease TTL of the registration.
func NewRegistry(endpoints []string, ttlSec int64) (*Registry, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no etcd endpoints configured")
	}
	if ttlSec <= 0 {
		return nil, fmt.Errorf("invalid lease ttl %d", ttlSec)
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return &Registry{cli: cli, ttl: ttlSec}, nil
}

// Register stores self under a lease and keeps the lease alive until Close
func (r *Registry) Register(ctx context.Context, self string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return fmt.Errorf("already registered as %s", r.self)
	}

	lease, err := r.cli.Grant(ctx, r.ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	if _, err := r.cli.Put(ctx, nodeKey(self), self, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register node: %w", err)
	}

	keepCtx, cancel := context.WithCancel(context.Background())
	alive, err := r.cli.KeepAlive(keepCtx, lease.ID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to keep lease alive: %w", err)
	}

	r.self = self
	r.leaseID = lease.ID
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for range alive {
		}
		if keepCtx.Err() == nil {
			Logger.Warningf("Lease of %s expired, the node is no longer discoverable", self)
		}
	}()

	Logger.Infof("Registered %s in etcd (lease %x, ttl %ds)", self, lease.ID, r.ttl)
	return nil
}

// Peers returns the addresses of all registered nodes, sorted
func (r *Registry) Peers(ctx context.Context) ([]string, error) {
	resp, err := r.cli.Get(ctx, nodesPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	peers := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		peers = append(peers, string(kv.Value))
	}
	sort.Strings(peers)
	return peers, nil
}

// PickEntry returns a random registered node other than self, or "" if there is none
func (r *Registry) PickEntry(ctx context.Context, self string) (string, error) {
	peers, err := r.Peers(ctx)
	if err != nil {
		return "", err
	}
	return chooseEntry(peers, self), nil
}

// WatchPeers calls fn for every node that registers (up) or disappears until ctx is done
func (r *Registry) WatchPeers(ctx context.Context, fn func(addr string, up bool)) {
	for resp := range r.cli.Watch(ctx, nodesPrefix, clientv3.WithPrefix()) {
		if err := resp.Err(); err != nil {
			Logger.Errorf("Watching nodes failed: %v", err)
			return
		}
		for _, ev := range resp.Events {
			addr := strings.TrimPrefix(string(ev.Kv.Key), nodesPrefix)
			fn(addr, ev.Type == mvccpb.PUT)
		}
	}
}

// Close revokes the registration and disconnects from etcd
func (r *Registry) Close() error {
	r.mu.Lock()
	cancel, leaseID := r.cancel, r.leaseID
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		ctx, done := context.WithTimeout(context.Background(), 2*time.Second)
		if _, err := r.cli.Revoke(ctx, leaseID); err != nil {
			Logger.Warningf("Failed to revoke lease %x: %v", leaseID, err)
		}
		done()
	}
	err := r.cli.Close()
	r.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func nodeKey(addr string) string {
	return nodesPrefix + addr
}

// chooseEntry picks a random address from peers that is not self
func chooseEntry(peers []string, self string) string {
	candidates := make([]string, 0, len(peers))
	for _, p := range peers {
		if p != "" && p != self {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rand.N(len(candidates))]
}
