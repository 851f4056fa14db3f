package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Header carries the correlation fields shared by all messages.
type Header struct {
	// RequestID is assigned by the delivery layer when a message that requires an
	// acknowledgement is sent. Zero means "not assigned".
	RequestID uint32 `json:"request_id,omitempty"`
	// AckID is the RequestID this message acknowledges. Zero means "acknowledges nothing".
	AckID uint32 `json:"ack_id,omitempty"`
}

// Message is the wire form of every datagram exchanged between ring nodes.
// Which payload fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	Header

	// Ring fields
	Addr  string `json:"addr,omitempty"`  // Used for: JoinRequest (advertised address of the joiner)
	Left  string `json:"left,omitempty"`  // Used for: JoinResponse, NeighborUpdate
	Right string `json:"right,omitempty"` // Used for: JoinResponse, NeighborUpdate

	// Store fields
	Key   string `json:"key,omitempty"`   // Used for: KVGet, KVPut, KVRemove
	Value []byte `json:"value,omitempty"` // Used for: KVPut (request), KVResult (response)

	// Response only fields
	Ok  bool   `json:"ok,omitempty"`  // Used for: KVResult
	Err string `json:"err,omitempty"` // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewJoinRequest creates a join request announcing the joiner's address
func NewJoinRequest(addr string) *Message {
	return &Message{
		MsgType: MsgTJoinRequest,
		Addr:    addr,
	}
}

// NewJoinResponse creates the reply to a join request, assigning the joiner's neighbors
func NewJoinResponse(ackID uint32, left, right string, err error) *Message {
	msg := &Message{
		MsgType: MsgTJoinResponse,
		Header:  Header{AckID: ackID},
		Left:    left,
		Right:   right,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewCheckAlive creates a liveness probe
func NewCheckAlive() *Message {
	return &Message{
		MsgType: MsgTCheckAlive,
	}
}

// NewCheckAliveAck creates the acknowledgement of a liveness probe
func NewCheckAliveAck(ackID uint32) *Message {
	return &Message{
		MsgType: MsgTCheckAliveAck,
		Header:  Header{AckID: ackID},
	}
}

// NewNeighborUpdate creates a request to change the receiver's pointers.
// An empty side is left unchanged.
func NewNeighborUpdate(left, right string) *Message {
	return &Message{
		MsgType: MsgTNeighborUpdate,
		Left:    left,
		Right:   right,
	}
}

// NewAck creates a plain acknowledgement
func NewAck(ackID uint32, err error) *Message {
	msg := &Message{
		MsgType: MsgTAck,
		Header:  Header{AckID: ackID},
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewKVGetRequest creates a Get request for a peer's local store
func NewKVGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVGet,
		Key:     key,
	}
}

// NewKVPutRequest creates a Put request for a peer's local store
func NewKVPutRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTKVPut,
		Key:     key,
		Value:   value,
	}
}

// NewKVRemoveRequest creates a Remove request for a peer's local store
func NewKVRemoveRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVRemove,
		Key:     key,
	}
}

// NewKVResult creates the response to any of the kv requests
func NewKVResult(ackID uint32, value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVResult,
		Header:  Header{AckID: ackID},
		Value:   value,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of a ring protocol message.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTJoinRequest:
		return "joinRequest"
	case MsgTJoinResponse:
		return "joinResponse"
	case MsgTCheckAlive:
		return "checkAlive"
	case MsgTCheckAliveAck:
		return "checkAliveAck"
	case MsgTNeighborUpdate:
		return "neighborUpdate"
	case MsgTAck:
		return "ack"
	case MsgTKVGet:
		return "kvGet"
	case MsgTKVPut:
		return "kvPut"
	case MsgTKVRemove:
		return "kvRemove"
	case MsgTKVResult:
		return "kvResult"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for mt := MsgTJoinRequest; mt <= MsgTKVResult; mt++ {
		if mt.String() == s {
			*t = mt
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// Valid reports whether t is a known message type
func (t MessageType) Valid() bool {
	return t >= MsgTJoinRequest && t <= MsgTKVResult
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota

	// Ring membership

	MsgTJoinRequest    // Ask an entry node for a position in the ring
	MsgTJoinResponse   // Entry node assigns left/right to the joiner
	MsgTCheckAlive     // Liveness probe
	MsgTCheckAliveAck  // Liveness probe acknowledgement
	MsgTNeighborUpdate // Change the receiver's left and/or right pointer
	MsgTAck            // Generic acknowledgement

	// Local store access

	MsgTKVGet    // Get a value from the receiver's local store
	MsgTKVPut    // Put a value into the receiver's local store
	MsgTKVRemove // Remove a value from the receiver's local store
	MsgTKVResult // Result of a kv request
)
