package common

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPort is the well-known port all peers use for the ring protocol
const DefaultPort = 4444

// --------------------------------------------------------------------------
// Node configuration struct
// --------------------------------------------------------------------------

// NodeConfig holds all configuration parameters of a ring node.
type NodeConfig struct {
	// Network
	ListenAddr    string // address the datagram transport binds to (e.g. ":4444")
	AdvertiseAddr string // address announced to peers; defaults to the bound address
	EntryAddr     string // optional entry node to join at startup
	Serializer    string // json, gob or binary

	// Join protocol
	JoinTimeoutMs int64 // timeout of a single join request
	JoinRetries   int   // additional join attempts after a timeout

	// Liveness
	LivenessTimeoutMs int64 // timeout of a single checkAlive probe
	LivenessGraceMs   int64 // how long CheckNeighbors waits for both acknowledgements
	CheckIntervalMs   int64 // period of the background liveness loop, 0 disables it

	// Other acknowledged requests (neighbor updates, kv requests)
	RequestTimeoutMs int64

	// Discovery
	EtcdEndpoints []string
	LeaseTTLSec   int64

	// Observability
	AdminEndpoint    string // admin HTTP endpoint, empty disables it
	StatsIntervalSec int64  // period of the delivery stats log line, 0 disables it
	LogLevel         string
}

// DefaultNodeConfig returns a configuration with the protocol defaults
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		ListenAddr:        fmt.Sprintf(":%d", DefaultPort),
		Serializer:        "binary",
		JoinTimeoutMs:     2000,
		JoinRetries:       2,
		LivenessTimeoutMs: 100,
		LivenessGraceMs:   200,
		CheckIntervalMs:   0,
		RequestTimeoutMs:  1000,
		LeaseTTLSec:       10,
		LogLevel:          "info",
	}
}

// JoinTimeout returns the join request timeout as a duration
func (c *NodeConfig) JoinTimeout() time.Duration {
	return time.Duration(c.JoinTimeoutMs) * time.Millisecond
}

// LivenessTimeout returns the checkAlive timeout as a duration
func (c *NodeConfig) LivenessTimeout() time.Duration {
	return time.Duration(c.LivenessTimeoutMs) * time.Millisecond
}

// LivenessGrace returns the CheckNeighbors grace period as a duration
func (c *NodeConfig) LivenessGrace() time.Duration {
	return time.Duration(c.LivenessGraceMs) * time.Millisecond
}

// CheckInterval returns the liveness loop period as a duration
func (c *NodeConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMs) * time.Millisecond
}

// RequestTimeout returns the timeout of neighbor updates and kv requests
func (c *NodeConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Validate checks the configuration for values the protocol cannot work with
func (c *NodeConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.JoinTimeoutMs <= 0 || c.LivenessTimeoutMs <= 0 || c.RequestTimeoutMs <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.LivenessGraceMs < c.LivenessTimeoutMs {
		return fmt.Errorf("liveness grace (%d ms) must not be shorter than the liveness timeout (%d ms)", c.LivenessGraceMs, c.LivenessTimeoutMs)
	}
	if c.JoinRetries < 0 {
		return fmt.Errorf("join retries must not be negative")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *NodeConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Network")
	addField("Listen", c.ListenAddr)
	addField("Advertise", orDefault(c.AdvertiseAddr, "(bound address)"))
	addField("Entry Node", orDefault(c.EntryAddr, "(none, standalone)"))
	addField("Serializer", c.Serializer)

	addSection("Join")
	addField("Timeout", fmt.Sprintf("%d ms", c.JoinTimeoutMs))
	addField("Retries", fmt.Sprintf("%d", c.JoinRetries))

	addSection("Liveness")
	addField("Probe Timeout", fmt.Sprintf("%d ms", c.LivenessTimeoutMs))
	addField("Grace Period", fmt.Sprintf("%d ms", c.LivenessGraceMs))
	if c.CheckIntervalMs > 0 {
		addField("Check Interval", fmt.Sprintf("%d ms", c.CheckIntervalMs))
	} else {
		addField("Check Interval", "disabled")
	}

	addSection("Requests")
	addField("Timeout", fmt.Sprintf("%d ms", c.RequestTimeoutMs))

	if len(c.EtcdEndpoints) > 0 {
		addSection("Discovery")
		addField("Etcd Endpoints", strings.Join(c.EtcdEndpoints, ","))
		addField("Lease TTL", fmt.Sprintf("%d sec", c.LeaseTTLSec))
	}

	addSection("Observability")
	addField("Admin Endpoint", orDefault(c.AdminEndpoint, "disabled"))
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig configures the short-lived node used by the kv commands
type ClientConfig struct {
	Peer             string
	Serializer       string
	RequestTimeoutMs int64
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	sb.WriteString("\nCLIENT CONFIGURATION\n")
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Peer", c.Peer))
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Serializer", c.Serializer))
	sb.WriteString(fmt.Sprintf("  %-22s: %d ms\n", "Timeout", c.RequestTimeoutMs))
	return sb.String()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
