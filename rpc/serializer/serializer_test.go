package serializer

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dRing/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates one message of every type with the fields that type uses
func testMessages() []common.Message {
	withID := func(m *common.Message, id uint32) common.Message {
		m.RequestID = id
		return *m
	}

	return []common.Message{
		withID(common.NewJoinRequest("10.0.0.7:4444"), 17),
		*common.NewJoinResponse(17, "10.0.0.1:4444", "10.0.0.2:4444", nil),
		*common.NewJoinResponse(18, "", "", errEntryJoining),
		withID(common.NewCheckAlive(), 0xFFFFFFFF),
		*common.NewCheckAliveAck(0xFFFFFFFF),
		withID(common.NewNeighborUpdate("", "10.0.0.7:4444"), 3),
		*common.NewAck(3, nil),
		withID(common.NewKVGetRequest("test-key"), 4),
		withID(common.NewKVPutRequest("test-key", []byte("test-value")), 5),
		withID(common.NewKVRemoveRequest("test-key"), 6),
		*common.NewKVResult(4, []byte("test-value"), true, nil),
		*common.NewKVResult(6, nil, false, nil),
		*common.NewKVResult(5, nil, false, errAlreadyExists),
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

const (
	errEntryJoining  = testErr("entry node is joining")
	errAlreadyExists = testErr("key already exists")
)

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d (%s): %v", i, msg.MsgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d (%s): %v", i, msg.MsgType, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTJoinRequest; msgType <= common.MsgTKVResult; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s", msgType, result.MsgType)
				}
			}
		})
	}
}

// TestCorrelationHeader checks that unassigned and assigned ids survive the round trip
func TestCorrelationHeader(t *testing.T) {
	cases := []common.Header{
		{},
		{RequestID: 1},
		{AckID: 1},
		{RequestID: 0xDEADBEEF, AckID: 42},
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			for _, h := range cases {
				msg := common.Message{MsgType: common.MsgTCheckAlive, Header: h}
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Fatalf("Failed to serialize: %v", err)
				}
				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Fatalf("Failed to deserialize: %v", err)
				}
				if result.Header != h {
					t.Errorf("Header mismatch: expected %+v, got %+v", h, result.Header)
				}
			}
		})
	}
}

// TestDeserializeResetsMessage checks that fields of a reused message do not leak into the next one
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(*common.NewCheckAliveAck(9))
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			result := *common.NewKVResult(1, []byte("stale"), true, errAlreadyExists)
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if result.Value != nil || result.Ok || result.Err != "" {
				t.Errorf("Stale fields after deserialize: %+v", result)
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	t.Run("Empty value slice stays non-nil", func(t *testing.T) {
		msg := common.Message{MsgType: common.MsgTKVPut, Key: "k", Value: []byte{}}
		data, err := serializer.Serialize(msg)
		if err != nil {
			t.Fatalf("Failed to serialize: %v", err)
		}
		var result common.Message
		if err := serializer.Deserialize(data, &result); err != nil {
			t.Fatalf("Failed to deserialize: %v", err)
		}
		if result.Value == nil || len(result.Value) != 0 {
			t.Errorf("Expected empty non-nil value, got %v", result.Value)
		}
	})

	t.Run("Probe is compact", func(t *testing.T) {
		msg := common.Message{MsgType: common.MsgTCheckAlive, Header: common.Header{RequestID: 7}}
		data, err := serializer.Serialize(msg)
		if err != nil {
			t.Fatalf("Failed to serialize: %v", err)
		}
		if len(data) != headerSize+4 {
			t.Errorf("Expected %d bytes, got %d", headerSize+4, len(data))
		}
	})

	t.Run("Value does not alias the input buffer", func(t *testing.T) {
		msg := common.Message{MsgType: common.MsgTKVResult, Value: []byte("abc")}
		data, err := serializer.Serialize(msg)
		if err != nil {
			t.Fatalf("Failed to serialize: %v", err)
		}
		var result common.Message
		if err := serializer.Deserialize(data, &result); err != nil {
			t.Fatalf("Failed to deserialize: %v", err)
		}
		for i := range data {
			data[i] = 0
		}
		if !bytes.Equal(result.Value, []byte("abc")) {
			t.Errorf("Value changed after the buffer was reused: %q", result.Value)
		}
	})
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // Message type and half of the flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0},
			expectError: false,
		},
		{
			name:        "Truncated request id",
			data:        []byte{1, 0, 1, 0, 0}, // Claims a request id but only 2 bytes follow
			expectError: true,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 0, 0x20, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, 0, 0x40, 0xFF, 0xFF, 0xFF, 0xFF}, // Claims a huge value but no bytes provided
			expectError: true,
		},
		{
			name:        "Missing ok byte",
			data:        []byte{1, 0, 0x80},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

// TestNew tests the serializer lookup by name
func TestNew(t *testing.T) {
	for _, name := range []string{"json", "gob", "binary"} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Error("Expected error for unknown serializer")
	}
}
