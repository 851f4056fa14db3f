package delivery

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dRing/lib/util"
	"github.com/ValentinKolb/dRing/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Logger is the logger of the delivery layer
var Logger = logger.GetLogger("delivery")

// maxIDAttempts bounds the number of random request ids tried for a single send
const maxIDAttempts = 64

// pendingSend tracks one outstanding ack-requiring send
type pendingSend[C any] struct {
	msg      Message[C]
	to       string
	sentAt   time.Time
	deadline time.Time
}

// datagram is an inbound payload waiting for dispatch
type datagram struct {
	from    string
	payload []byte
}

// Layer turns the unreliable datagram transport into acknowledged requests.
//
// Every ack-requiring send gets a random non-zero request id and an entry in the
// ack wait table (authoritative) and in the deadline queue (a scheduling hint).
// An inbound message whose AckID matches a pending send removes that entry; the
// scheduler fires the timeout handler of every send whose deadline passed while
// it was still in the table. Both paths remove the entry atomically, so each send
// is resolved exactly once.
type Layer[C any] struct {
	transport transport.IDatagramTransport
	codec     Codec[C]
	ctx       C

	// ack wait table: request id -> pending send
	pending *xsync.MapOf[uint32, *pendingSend[C]]

	// deadline queue: request id -> deadline (unix nanos), guarded by mu
	mu        sync.Mutex
	deadlines *util.MapHeap
	wake      chan struct{}

	inbound *util.LockFreeMPSC[datagram]
	metrics *Metrics
	nextID  func() uint32

	started atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewLayer creates a delivery layer on top of t. Nothing is sent or received until Start.
func NewLayer[C any](t transport.IDatagramTransport, codec Codec[C]) *Layer[C] {
	l := &Layer[C]{
		transport: t,
		codec:     codec,
		pending:   xsync.NewMapOf[uint32, *pendingSend[C]](),
		deadlines: util.NewMapHeap(),
		wake:      make(chan struct{}, 1),
		inbound:   util.NewLockFreeMPSC[datagram](),
		nextID:    rand.Uint32,
		done:      make(chan struct{}),
	}
	l.metrics = newMetrics(l.Pending)
	return l
}

// Start binds the process context passed to all handlers and starts receiving,
// dispatching and the timeout scheduler.
func (l *Layer[C]) Start(ctx C) error {
	if l.closed.Load() {
		return ErrLayerClosed
	}
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	l.ctx = ctx

	l.wg.Add(2)
	go l.dispatch()
	go l.schedule()

	if err := l.transport.Listen(l.enqueue); err != nil {
		return err
	}

	Logger.Debugf("Delivery layer started on %s", l.transport.LocalAddr())
	return nil
}

// Close stops the scheduler and the dispatcher and closes the transport.
// Pending sends are dropped without calling their timeout handlers.
func (l *Layer[C]) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(l.done)
	err := l.transport.Close()
	l.inbound.Close()
	if !l.started.Load() {
		// the dispatcher is not running, drain the queue so its consumer can exit
		for range l.inbound.Recv() {
		}
	}
	l.wg.Wait()
	return err
}

// Send transmits msg to the given address.
//
// A message that does not require an acknowledgement is sent as is. Otherwise a
// free request id is assigned, the send is registered with its deadline and the
// scheduler is woken if that deadline is the new earliest one. Send never waits
// for the network; transport errors are logged and, for ack-requiring sends,
// reported through the timeout handler.
func (l *Layer[C]) Send(msg Message[C], to string) error {
	if l.closed.Load() {
		return ErrLayerClosed
	}

	if !msg.RequiresAck() {
		l.transmit(msg, to)
		return nil
	}

	h := msg.Header()
	if h.RequestID != 0 {
		return ErrMessageInFlight
	}

	now := time.Now()
	p := &pendingSend[C]{
		msg:      msg,
		to:       to,
		sentAt:   now,
		deadline: now.Add(msg.Timeout()),
	}

	id, err := l.register(p)
	if err != nil {
		return err
	}

	l.mu.Lock()
	isMin := l.deadlines.AddItem(uint64(id), util.UnixNano(p.deadline))
	l.mu.Unlock()
	if isMin {
		l.wakeScheduler()
	}

	l.transmit(msg, to)
	return nil
}

// Pending returns the number of sends waiting for an acknowledgement
func (l *Layer[C]) Pending() int {
	return l.pending.Size()
}

// Metrics returns the counters of the layer
func (l *Layer[C]) Metrics() *Metrics {
	return l.metrics
}

// LocalAddr returns the address of the underlying transport
func (l *Layer[C]) LocalAddr() string {
	return l.transport.LocalAddr()
}

// --------------------------------------------------------------------------
// Send path
// --------------------------------------------------------------------------

// register assigns a free request id to p and stores it in the ack wait table
func (l *Layer[C]) register(p *pendingSend[C]) (uint32, error) {
	h := p.msg.Header()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := l.nextID()
		if id == 0 {
			continue
		}
		h.RequestID = id
		if _, loaded := l.pending.LoadOrStore(id, p); !loaded {
			return id, nil
		}
		Logger.Debugf("Request id %d in use, retrying", id)
	}
	h.RequestID = 0
	Logger.Errorf("No free request id after %d attempts (%d pending)", maxIDAttempts, l.Pending())
	return 0, ErrIDSpaceExhausted
}

// transmit encodes and sends msg, errors are logged and counted
func (l *Layer[C]) transmit(msg Message[C], to string) {
	payload, err := l.codec.Encode(msg)
	if err != nil {
		l.metrics.sendErrors.Inc()
		Logger.Errorf("Failed to encode %T for %s: %v", msg, to, err)
		return
	}
	if err := l.transport.SendTo(to, payload); err != nil {
		l.metrics.sendErrors.Inc()
		Logger.Warningf("Failed to send %T to %s: %v", msg, to, err)
		return
	}
	l.metrics.sent.Inc()
}

// --------------------------------------------------------------------------
// Receive path
// --------------------------------------------------------------------------

// enqueue is the transport handler, it only hands the datagram to the dispatcher
func (l *Layer[C]) enqueue(from string, payload []byte) {
	l.inbound.Push(&datagram{from: from, payload: payload})
}

// dispatch runs every request handler, one datagram at a time
func (l *Layer[C]) dispatch() {
	defer l.wg.Done()
	for d := range l.inbound.Recv() {
		if l.closed.Load() {
			continue
		}
		l.onReceived(d.payload, d.from)
	}
}

// onReceived decodes a datagram, resolves the pending send it acknowledges and
// hands the message to its request handler
func (l *Layer[C]) onReceived(payload []byte, from string) {
	msg, err := l.codec.Decode(payload)
	if err != nil {
		l.metrics.decodeErrors.Inc()
		Logger.Warningf("Dropping undecodable datagram from %s: %v", from, err)
		return
	}

	var acked Message[C]
	if ackID := msg.Header().AckID; ackID != 0 {
		if p, ok := l.pending.LoadAndDelete(ackID); ok {
			acked = p.msg
			l.metrics.acked.Inc()
			l.metrics.rtt.UpdateSince(p.sentAt)
			l.dropDeadline(ackID, p.deadline)
		} else {
			l.metrics.anomalies.Inc()
			Logger.Warningf("Received %T from %s acknowledging unknown request %d (late or duplicate)", msg, from, ackID)
		}
	}

	msg.HandleRequest(l.ctx, from, acked)
}

// --------------------------------------------------------------------------
// Timeout scheduler
// --------------------------------------------------------------------------

// dropDeadline removes the queue entry of an acknowledged send. An entry whose
// deadline differs belongs to a newer send that reuses the request id and stays.
func (l *Layer[C]) dropDeadline(id uint32, deadline time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if it, ok := l.deadlines.GetByKey(uint64(id)); ok && it.Priority == util.UnixNano(deadline) {
		l.deadlines.RemoveByKey(uint64(id))
	}
}

// wakeScheduler tells the scheduler that an earlier deadline was registered
func (l *Layer[C]) wakeScheduler() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// schedule sleeps until the earliest deadline or a wake signal and then fires
// the timeout handler of every expired send
func (l *Layer[C]) schedule() {
	defer l.wg.Done()

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	for {
		l.mu.Lock()
		next, ok := l.deadlines.Peek()
		var wait time.Duration
		if ok {
			wait = time.Until(time.Unix(0, int64(next.Priority)))
		}
		l.mu.Unlock()

		var fire <-chan time.Time
		if ok {
			stopTimer(timer)
			timer.Reset(wait)
			fire = timer.C
		}

		select {
		case <-l.done:
			return
		case <-l.wake:
		case <-fire:
		}

		l.fireExpired(time.Now())
	}
}

// fireExpired pops every queue entry whose deadline is not after now. An entry only
// times out if its request id is still in the ack wait table with a deadline that
// has passed; otherwise it was acknowledged or the id belongs to a newer send.
func (l *Layer[C]) fireExpired(now time.Time) {
	l.mu.Lock()
	expired := l.deadlines.PopExpired(util.UnixNano(now))
	l.mu.Unlock()

	for _, it := range expired {
		var timedOut *pendingSend[C]
		l.pending.Compute(uint32(it.Key), func(p *pendingSend[C], loaded bool) (*pendingSend[C], bool) {
			if !loaded {
				return nil, true
			}
			if p.deadline.After(now) {
				return p, false
			}
			timedOut = p
			return nil, true
		})
		if timedOut == nil {
			continue
		}

		l.metrics.timeouts.Inc()
		Logger.Debugf("%T to %s (request %d) timed out after %s", timedOut.msg, timedOut.to, it.Key, timedOut.msg.Timeout())
		timedOut.msg.HandleTimeout(l.ctx, timedOut.to)
	}
}

// stopTimer stops t and drains a value that may already be buffered
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
