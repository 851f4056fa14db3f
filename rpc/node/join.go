package node

import (
	"fmt"

	"github.com/ValentinKolb/dRing/lib/ring"
)

// joinAttempt is one call of JoinCluster. Every retry replaces req with a fresh
// request; responses and timeouts of older requests are ignored.
type joinAttempt struct {
	entry       string
	req         *joinRequest
	retriesLeft int
	done        chan error
}

// JoinCluster asks the entry node for a position in the ring.
//
// The call does not wait for the answer. The returned channel receives exactly
// one value: nil once the node is a member, an error wrapping ErrJoinRefused if
// the entry refused, or ErrJoinTimeout if neither the request nor any of the
// configured retries were answered. After a refusal or timeout the node is
// standalone again with its ring state unchanged.
func (n *Node) JoinCluster(entry string) (<-chan error, error) {
	if entry == n.Self() {
		return nil, fmt.Errorf("%w: %s", ErrJoinRefused, reasonJoinSelf)
	}

	if status, ok := n.state.BeginJoin(); !ok {
		if status == ring.StatusJoining {
			return nil, ErrJoinInProgress
		}
		return nil, ErrAlreadyMember
	}

	n.joinMu.Lock()
	defer n.joinMu.Unlock()

	attempt := &joinAttempt{
		entry:       entry,
		retriesLeft: n.config.JoinRetries,
		done:        make(chan error, 1),
	}
	attempt.req = n.newJoinRequest()
	n.join = attempt

	Logger.Infof("Joining ring via %s", entry)
	if err := n.layer.Send(attempt.req, entry); err != nil {
		n.join = nil
		n.state.AbortJoin()
		return nil, fmt.Errorf("failed to send join request: %w", err)
	}
	return attempt.done, nil
}

func (n *Node) newJoinRequest() *joinRequest {
	return &joinRequest{
		request: request{timeout: n.config.JoinTimeout()},
		addr:    n.Self(),
	}
}

// finishJoin reports the outcome of the current attempt. joinMu must be held.
func (n *Node) finishJoin(err error) {
	n.join.done <- err
	n.join = nil
}

// completeJoin applies the entry's answer to the current join attempt
func (n *Node) completeJoin(req *joinRequest, resp *joinResponse, from string) {
	n.joinMu.Lock()
	defer n.joinMu.Unlock()

	if n.join == nil || n.join.req != req {
		Logger.Warningf("Ignoring join response from %s for an outdated join request", from)
		return
	}

	if resp.err != "" {
		n.state.AbortJoin()
		Logger.Warningf("Join via %s refused: %s", from, resp.err)
		n.finishJoin(fmt.Errorf("%w: %s", ErrJoinRefused, resp.err))
		return
	}

	if !n.state.CompleteJoin(resp.left, resp.right) {
		// a neighbor update made the node a member in the meantime
		Logger.Warningf("Join response from %s arrived while the node was %s", from, n.state.Status())
		n.finishJoin(ErrAlreadyMember)
		return
	}
	n.joins.Inc()
	Logger.Infof("Joined ring via %s: left=%s right=%s", from, resp.left, resp.right)
	n.finishJoin(nil)
}

// onJoinTimeout retries the join or gives up and falls back to standalone
func (n *Node) onJoinTimeout(req *joinRequest, to string) {
	n.joinMu.Lock()
	defer n.joinMu.Unlock()

	if n.join == nil || n.join.req != req {
		return
	}

	if n.join.retriesLeft > 0 {
		n.join.retriesLeft--
		n.join.req = n.newJoinRequest()
		Logger.Warningf("Join request to %s timed out, retrying (%d retries left)", to, n.join.retriesLeft)
		err := n.layer.Send(n.join.req, to)
		if err == nil {
			return
		}
		Logger.Errorf("Failed to resend join request: %v", err)
	}

	n.joinTimeouts.Inc()
	n.state.AbortJoin()
	Logger.Warningf("Join via %s timed out, staying standalone", to)
	n.finishJoin(ErrJoinTimeout)
}

// admit handles a join request on the entry node
func (n *Node) admit(req *joinRequest, from string) {
	joiner := req.addr
	if joiner == "" {
		joiner = from
	}
	ackID := req.hdr.RequestID

	if joiner == n.Self() {
		n.send(&joinResponse{reply: reply{base{hdrAck(ackID)}}, err: reasonJoinSelf}, from)
		return
	}

	left, right, prevRight, err := n.state.Admit(joiner)
	if err != nil {
		Logger.Infof("Refusing join of %s: %v", joiner, err)
		n.send(&joinResponse{reply: reply{base{hdrAck(ackID)}}, err: err.Error()}, from)
		return
	}

	Logger.Infof("Admitted %s: left=%s right=%s", joiner, left, right)
	n.send(&joinResponse{reply: reply{base{hdrAck(ackID)}}, left: left, right: right}, from)

	// the previous successor gets the joiner as its new predecessor
	if prevRight != "" && prevRight != joiner {
		update := &neighborUpdate{
			request: request{timeout: n.config.RequestTimeout()},
			left:    joiner,
		}
		n.send(update, prevRight)
	}
}
