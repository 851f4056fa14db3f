// Package serializer turns ring protocol messages into datagram payloads and back.
// It defines a common interface and three implementations that can be selected
// at startup; all peers of a ring must use the same one.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format. A 16 bit flag word records which
//     optional fields are present, so a checkAlive probe is only eleven bytes on the
//     wire. Recommended for production use.
//
//   - jsonSerializerImpl: JSON encoding. Human-readable, useful when inspecting
//     traffic with tcpdump or netcat.
//
//   - gobSerializerImpl: Go's gob encoding. Every datagram carries its own type
//     description which makes the payloads considerably larger.
//
// The correlation header (RequestID, AckID) is encoded by every implementation;
// a zero value means "not assigned" and is omitted from the payload.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s, err := serializer.New("binary")
//	data, err := s.Serialize(msg)
//	// ... send datagram ...
//	var received common.Message
//	err = s.Deserialize(payload, &received)
package serializer
