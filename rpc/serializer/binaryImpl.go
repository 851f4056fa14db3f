package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dRing/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for small datagrams
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: MsgType (1 byte) | flags (2 bytes, big endian) | present fields in flag order.
// Integers are fixed width big endian, strings and byte slices are prefixed with
// a 4 byte length.
type binarySerializerImpl struct {
}

// headerSize is the size of MsgType + flags
const headerSize = 3

// Bit flags to indicate which optional fields are present
const (
	hasRequestID uint16 = 1 << 0
	hasAckID     uint16 = 1 << 1
	hasAddr      uint16 = 1 << 2
	hasLeft      uint16 = 1 << 3
	hasRight     uint16 = 1 << 4
	hasKey       uint16 = 1 << 5
	hasValue     uint16 = 1 << 6
	hasOk        uint16 = 1 << 7
	hasErr       uint16 = 1 << 8
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	var flags uint16
	pos := headerSize

	putUint32 := func(flag uint16, v uint32) {
		flags |= flag
		binary.BigEndian.PutUint32(result[pos:pos+4], v)
		pos += 4
	}

	putBytes := func(flag uint16, data []byte) {
		flags |= flag
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(data)))
		pos += 4
		pos += copy(result[pos:], data)
	}

	// Correlation header
	if msg.RequestID != 0 {
		putUint32(hasRequestID, msg.RequestID)
	}
	if msg.AckID != 0 {
		putUint32(hasAckID, msg.AckID)
	}

	// Ring fields
	if msg.Addr != "" {
		putBytes(hasAddr, []byte(msg.Addr))
	}
	if msg.Left != "" {
		putBytes(hasLeft, []byte(msg.Left))
	}
	if msg.Right != "" {
		putBytes(hasRight, []byte(msg.Right))
	}

	// Store fields
	if msg.Key != "" {
		putBytes(hasKey, []byte(msg.Key))
	}
	if msg.Value != nil {
		putBytes(hasValue, msg.Value)
	}

	// Response fields
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}
	if msg.Err != "" {
		putBytes(hasErr, []byte(msg.Err))
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:headerSize], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{}
	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:headerSize])
	pos := headerSize

	readUint32 := func(field string) (uint32, error) {
		if pos+4 > len(data) {
			return 0, fmt.Errorf("data too short for %s", field)
		}
		v := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
		return v, nil
	}

	readBytes := func(field string) ([]byte, error) {
		n, err := readUint32(field + " length")
		if err != nil {
			return nil, err
		}
		if uint64(pos)+uint64(n) > uint64(len(data)) {
			return nil, fmt.Errorf("data too short for %s data", field)
		}
		out := data[pos : pos+int(n)]
		pos += int(n)
		return out, nil
	}

	readString := func(flag uint16, field string, dst *string) error {
		if flags&flag == 0 {
			return nil
		}
		raw, err := readBytes(field)
		if err != nil {
			return err
		}
		*dst = string(raw)
		return nil
	}

	var err error

	// Correlation header
	if flags&hasRequestID != 0 {
		if msg.RequestID, err = readUint32("request id"); err != nil {
			return err
		}
	}
	if flags&hasAckID != 0 {
		if msg.AckID, err = readUint32("ack id"); err != nil {
			return err
		}
	}

	// Ring fields
	if err = readString(hasAddr, "addr", &msg.Addr); err != nil {
		return err
	}
	if err = readString(hasLeft, "left", &msg.Left); err != nil {
		return err
	}
	if err = readString(hasRight, "right", &msg.Right); err != nil {
		return err
	}

	// Store fields
	if err = readString(hasKey, "key", &msg.Key); err != nil {
		return err
	}
	if flags&hasValue != 0 {
		raw, err := readBytes("value")
		if err != nil {
			return err
		}
		// the datagram buffer may be reused by the transport, so the value is copied
		msg.Value = make([]byte, len(raw))
		copy(msg.Value, raw)
	}

	// Response fields
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = data[pos] != 0
		pos += 1
	}
	if err = readString(hasErr, "error", &msg.Err); err != nil {
		return err
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.RequestID != 0 {
		size += 4
	}
	if msg.AckID != 0 {
		size += 4
	}
	for _, s := range []string{msg.Addr, msg.Left, msg.Right, msg.Key, msg.Err} {
		if s != "" {
			size += 4 + len(s) // 4 bytes for length + string
		}
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value) // 4 bytes for length + value bytes
	}
	if msg.Ok {
		size += 1
	}

	return size
}
