package node

import (
	"context"
	"errors"

	"github.com/ValentinKolb/dRing/lib/store"
	"github.com/ValentinKolb/dRing/rpc/common"
)

// --------------------------------------------------------------------------
// Caller side
// --------------------------------------------------------------------------

// RemoteGet reads key from the local store of peer
func (n *Node) RemoteGet(ctx context.Context, peer, key string) ([]byte, bool, error) {
	out, err := n.roundTrip(ctx, peer, common.MsgTKVGet, key, nil)
	if err != nil {
		return nil, false, err
	}
	return out.value, out.ok, out.err
}

// RemotePut stores key in the local store of peer. An existing key is not
// overwritten, the returned error then satisfies store.IsAlreadyExists.
func (n *Node) RemotePut(ctx context.Context, peer, key string, value []byte) error {
	out, err := n.roundTrip(ctx, peer, common.MsgTKVPut, key, value)
	if err != nil {
		return err
	}
	return out.err
}

// RemoteRemove deletes key from the local store of peer and returns the removed value
func (n *Node) RemoteRemove(ctx context.Context, peer, key string) ([]byte, bool, error) {
	out, err := n.roundTrip(ctx, peer, common.MsgTKVRemove, key, nil)
	if err != nil {
		return nil, false, err
	}
	return out.value, out.ok, out.err
}

// roundTrip sends a store request to one peer and waits for its result, the
// request timeout or the end of ctx
func (n *Node) roundTrip(ctx context.Context, peer string, op common.MessageType, key string, value []byte) (kvOutcome, error) {
	if key == "" {
		return kvOutcome{}, errors.New("key must not be empty")
	}

	req := &kvRequest{
		request: request{timeout: n.config.RequestTimeout()},
		op:      op,
		key:     key,
		value:   value,
		result:  make(chan kvOutcome, 1),
	}
	if err := n.layer.Send(req, peer); err != nil {
		return kvOutcome{}, err
	}

	select {
	case out := <-req.result:
		return out, nil
	case <-ctx.Done():
		return kvOutcome{}, ctx.Err()
	}
}

// --------------------------------------------------------------------------
// Receiver side
// --------------------------------------------------------------------------

// applyKV runs a store request against the local store and builds the result
func (n *Node) applyKV(req *kvRequest) *kvResult {
	res := &kvResult{reply: reply{base{hdrAck(req.hdr.RequestID)}}}

	switch req.op {
	case common.MsgTKVGet:
		res.value, res.ok = n.store.Get(req.key)
	case common.MsgTKVPut:
		err := n.store.Put(req.key, req.value)
		switch {
		case err == nil:
			res.ok = true
		case store.IsAlreadyExists(err):
			// ok stays false without an error
		default:
			res.err = err.Error()
		}
	case common.MsgTKVRemove:
		res.value, res.ok = n.store.Remove(req.key)
	default:
		res.err = "unsupported store operation " + req.op.String()
	}
	return res
}

// outcome converts a result back into the caller's view of the operation
func (m *kvResult) outcome(op common.MessageType) kvOutcome {
	out := kvOutcome{value: m.value, ok: m.ok}
	switch {
	case m.err != "":
		out.err = store.NewError(store.RetCInternalError, m.err)
	case op == common.MsgTKVPut && !m.ok:
		out.err = store.NewError(store.RetCAlreadyExists, "key already exists")
	}
	return out
}
