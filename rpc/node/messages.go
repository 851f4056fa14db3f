package node

import (
	"time"

	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/ValentinKolb/dRing/rpc/delivery"
)

// msg is the message type handled by the delivery layer of a node
type msg = delivery.Message[*Node]

// wireMessage is implemented by every variant, it returns the flat wire form
type wireMessage interface {
	msg
	toWire() common.Message
}

// base carries the correlation header shared by all variants
type base struct {
	hdr common.Header
}

func (b *base) Header() *common.Header { return &b.hdr }

// hdrAck returns the header of a reply acknowledging request id
func hdrAck(id uint32) common.Header {
	return common.Header{AckID: id}
}

// reply is embedded by variants that are never acknowledged
type reply struct {
	base
}

func (r *reply) RequiresAck() bool                { return false }
func (r *reply) Timeout() time.Duration           { return 0 }
func (r *reply) HandleTimeout(n *Node, to string) {}

// request is embedded by variants that wait for an acknowledgement
type request struct {
	base
	timeout time.Duration
}

func (r *request) RequiresAck() bool      { return true }
func (r *request) Timeout() time.Duration { return r.timeout }

// --------------------------------------------------------------------------
// Join
// --------------------------------------------------------------------------

// joinRequest asks an entry node for a position in the ring
type joinRequest struct {
	request
	addr string
}

func (m *joinRequest) HandleRequest(n *Node, from string, _ msg) {
	n.admit(m, from)
}

func (m *joinRequest) HandleTimeout(n *Node, to string) {
	n.onJoinTimeout(m, to)
}

func (m *joinRequest) toWire() common.Message {
	w := common.NewJoinRequest(m.addr)
	w.Header = m.hdr
	return *w
}

// joinResponse assigns the joiner's neighbors, or refuses the join
type joinResponse struct {
	reply
	left, right string
	err         string
}

func (m *joinResponse) HandleRequest(n *Node, from string, acked msg) {
	req, ok := acked.(*joinRequest)
	if !ok {
		Logger.Warningf("Ignoring join response from %s that matches no pending join request", from)
		return
	}
	n.completeJoin(req, m, from)
}

func (m *joinResponse) toWire() common.Message {
	w := common.Message{MsgType: common.MsgTJoinResponse, Header: m.hdr, Left: m.left, Right: m.right, Err: m.err}
	return w
}

// --------------------------------------------------------------------------
// Liveness
// --------------------------------------------------------------------------

// checkAlive is a liveness probe. result is only set on the sending node and
// receives exactly one value: true on acknowledgement, false on timeout.
type checkAlive struct {
	request
	result chan bool
}

func (m *checkAlive) HandleRequest(n *Node, from string, _ msg) {
	n.send(&checkAliveAck{reply: reply{base{hdrAck(m.hdr.RequestID)}}}, from)
}

func (m *checkAlive) HandleTimeout(n *Node, to string) {
	Logger.Debugf("Liveness probe to %s timed out", to)
	if m.result != nil {
		m.result <- false
	}
}

func (m *checkAlive) toWire() common.Message {
	w := common.NewCheckAlive()
	w.Header = m.hdr
	return *w
}

// checkAliveAck acknowledges a liveness probe
type checkAliveAck struct {
	reply
}

func (m *checkAliveAck) HandleRequest(n *Node, from string, acked msg) {
	probe, ok := acked.(*checkAlive)
	if !ok {
		if acked != nil {
			Logger.Warningf("Probe acknowledgement from %s matches a %T", from, acked)
		}
		return
	}
	if probe.result != nil {
		probe.result <- true
	}
}

func (m *checkAliveAck) toWire() common.Message {
	return *common.NewCheckAliveAck(m.hdr.AckID)
}

// --------------------------------------------------------------------------
// Neighbor update
// --------------------------------------------------------------------------

// neighborUpdate tells a node to change its pointers, empty sides stay unchanged
type neighborUpdate struct {
	request
	left, right string
}

func (m *neighborUpdate) HandleRequest(n *Node, from string, _ msg) {
	n.state.UpdateNeighbors(m.left, m.right)
	v := n.state.View()
	Logger.Infof("Neighbors updated by %s: left=%s right=%s", from, v.Left, v.Right)
	n.send(&ack{reply: reply{base{hdrAck(m.hdr.RequestID)}}}, from)
}

func (m *neighborUpdate) HandleTimeout(n *Node, to string) {
	Logger.Warningf("Neighbor update (left=%q right=%q) to %s was not acknowledged, its pointers may be stale", m.left, m.right, to)
}

func (m *neighborUpdate) toWire() common.Message {
	w := common.NewNeighborUpdate(m.left, m.right)
	w.Header = m.hdr
	return *w
}

// ack is the generic acknowledgement
type ack struct {
	reply
	err string
}

func (m *ack) HandleRequest(n *Node, from string, acked msg) {
	if acked == nil {
		return
	}
	if m.err != "" {
		Logger.Warningf("%s rejected %T: %s", from, acked, m.err)
		return
	}
	Logger.Debugf("%s acknowledged %T", from, acked)
}

func (m *ack) toWire() common.Message {
	w := common.Message{MsgType: common.MsgTAck, Header: m.hdr, Err: m.err}
	return w
}

// --------------------------------------------------------------------------
// Remote store access
// --------------------------------------------------------------------------

// kvOutcome is the result of a remote store operation as seen by the caller
type kvOutcome struct {
	value []byte
	ok    bool
	err   error
}

// kvRequest is a Get, Put or Remove on the receiver's local store.
// result is only set on the sending node.
type kvRequest struct {
	request
	op    common.MessageType
	key   string
	value []byte

	result chan kvOutcome
}

func (m *kvRequest) HandleRequest(n *Node, from string, _ msg) {
	n.send(n.applyKV(m), from)
}

func (m *kvRequest) HandleTimeout(n *Node, to string) {
	if m.result != nil {
		m.result <- kvOutcome{err: ErrRequestTimeout}
	}
}

func (m *kvRequest) toWire() common.Message {
	return common.Message{MsgType: m.op, Header: m.hdr, Key: m.key, Value: m.value}
}

// kvResult answers a kvRequest
type kvResult struct {
	reply
	value []byte
	ok    bool
	err   string
}

func (m *kvResult) HandleRequest(n *Node, from string, acked msg) {
	req, ok := acked.(*kvRequest)
	if !ok {
		if acked != nil {
			Logger.Warningf("Store result from %s matches a %T", from, acked)
		}
		return
	}
	if req.result != nil {
		req.result <- m.outcome(req.op)
	}
}

func (m *kvResult) toWire() common.Message {
	return common.Message{MsgType: common.MsgTKVResult, Header: m.hdr, Value: m.value, Ok: m.ok, Err: m.err}
}
