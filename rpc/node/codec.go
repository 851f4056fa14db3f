package node

import (
	"fmt"

	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/ValentinKolb/dRing/rpc/serializer"
)

// codec implements delivery.Codec for the ring protocol on top of a serializer
type codec struct {
	serializer serializer.IRPCSerializer
}

func (c codec) Encode(m msg) ([]byte, error) {
	w, ok := m.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("%T has no wire form", m)
	}
	return c.serializer.Serialize(w.toWire())
}

func (c codec) Decode(payload []byte) (msg, error) {
	var w common.Message
	if err := c.serializer.Deserialize(payload, &w); err != nil {
		return nil, err
	}
	return fromWire(w)
}

// fromWire builds the variant of a decoded wire message
func fromWire(w common.Message) (msg, error) {
	h := w.Header
	switch w.MsgType {
	case common.MsgTJoinRequest:
		return &joinRequest{request: request{base: base{h}}, addr: w.Addr}, nil
	case common.MsgTJoinResponse:
		return &joinResponse{reply: reply{base{h}}, left: w.Left, right: w.Right, err: w.Err}, nil
	case common.MsgTCheckAlive:
		return &checkAlive{request: request{base: base{h}}}, nil
	case common.MsgTCheckAliveAck:
		return &checkAliveAck{reply: reply{base{h}}}, nil
	case common.MsgTNeighborUpdate:
		return &neighborUpdate{request: request{base: base{h}}, left: w.Left, right: w.Right}, nil
	case common.MsgTAck:
		return &ack{reply: reply{base{h}}, err: w.Err}, nil
	case common.MsgTKVGet, common.MsgTKVPut, common.MsgTKVRemove:
		return &kvRequest{request: request{base: base{h}}, op: w.MsgType, key: w.Key, value: w.Value}, nil
	case common.MsgTKVResult:
		return &kvResult{reply: reply{base{h}}, value: w.Value, ok: w.Ok, err: w.Err}, nil
	default:
		return nil, fmt.Errorf("unknown message type %d", w.MsgType)
	}
}
