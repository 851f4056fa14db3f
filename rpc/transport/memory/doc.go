// Package memory provides an in-process implementation of transport.IDatagramTransport.
//
// A Network is a registry of endpoints keyed by address. Datagrams are copied and
// queued into the receiver's inbox; a full inbox, an unknown address or an injected
// fault drops the datagram silently, just like UDP would. Faults can be injected
// with SetDropRate, Isolate and Partition and removed again with Heal.
//
// Example:
//
//	net := memory.NewNetwork()
//	a, _ := net.NewEndpoint("a")
//	b, _ := net.NewEndpoint("b")
//	net.Partition("a", "b") // nothing gets through anymore
package memory
