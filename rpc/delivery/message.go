package delivery

import (
	"time"

	"github.com/ValentinKolb/dRing/rpc/common"
)

// Message is the capability set every protocol message provides to the delivery layer.
// C is the process context the handlers operate on; it is bound once with Layer.Start.
type Message[C any] interface {
	// Header returns the correlation header of the message. The layer writes
	// RequestID on ack-requiring sends and reads AckID on receive.
	Header() *common.Header
	// RequiresAck reports whether the sender waits for an acknowledgement
	RequiresAck() bool
	// Timeout is the time after which an unacknowledged send is considered lost.
	// Only used if RequiresAck returns true.
	Timeout() time.Duration
	// HandleRequest runs on the receiving node. acked is the original message of the
	// pending send this message acknowledges, or nil.
	HandleRequest(c C, from string, acked Message[C])
	// HandleTimeout runs on the sending node if no acknowledgement arrived in time
	HandleTimeout(c C, to string)
}

// Codec converts messages to datagram payloads and back.
// Decode must return a message whose dynamic type matches the encoded variant.
type Codec[C any] interface {
	Encode(msg Message[C]) ([]byte, error)
	Decode(payload []byte) (Message[C], error)
}
