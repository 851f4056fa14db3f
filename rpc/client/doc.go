// Package client implements a client for the local store of a remote ring node.
//
// The client starts its own standalone node on an ephemeral UDP port and sends
// store requests through the acknowledged delivery layer. Replies are addressed
// to the port the request came from, so the client needs no fixed port and never
// becomes a ring member.
//
// Usage Example:
//
//	s, err := client.NewRPCStore(common.ClientConfig{
//		Peer:             "node-1:4444",
//		Serializer:       "binary",
//		RequestTimeoutMs: 1000,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.Put(ctx, "key", []byte("value")); store.IsAlreadyExists(err) {
//		// the key was set before
//	}
package client
