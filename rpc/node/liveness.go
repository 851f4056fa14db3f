package node

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Health is the liveness of one neighbor as seen by CheckNeighbors
type Health uint8

const (
	HealthAbsent  Health = iota // no neighbor on this side
	HealthHealthy               // acknowledged the probe within the grace period
	HealthFailed                // did not acknowledge in time
)

func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthFailed:
		return "failed"
	default:
		return "absent"
	}
}

// MarshalJSON encodes the health as its name
func (h Health) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// NeighborReport is the outcome of one liveness check
type NeighborReport struct {
	LeftAddr  string `json:"left_addr"`
	RightAddr string `json:"right_addr"`
	Left      Health `json:"left"`
	Right     Health `json:"right"`
}

// CheckNeighbors probes the left and right neighbor concurrently and waits up
// to the configured grace period (or until ctx is done) for both acknowledgements.
//
// It returns a *NeighborFailureError naming the failed sides if any neighbor did
// not answer, ErrNoNeighbors on a node without neighbors, and ctx.Err() if ctx
// ended before all probes were resolved. The report is valid in every case.
// CheckNeighbors only detects failures, it never changes the ring.
func (n *Node) CheckNeighbors(ctx context.Context) (NeighborReport, error) {
	left, right := n.state.Neighbors()
	report := NeighborReport{LeftAddr: left, RightAddr: right}
	if left == "" && right == "" {
		return report, ErrNoNeighbors
	}
	n.livenessChecks.Inc()

	leftProbe := n.probe(left)
	rightProbe := n.probe(right)

	graceCtx, cancel := context.WithTimeout(ctx, n.config.LivenessGrace())
	defer cancel()

	report.Left = awaitProbe(graceCtx, leftProbe)
	report.Right = awaitProbe(graceCtx, rightProbe)

	failure := &NeighborFailureError{
		Left:      report.Left == HealthFailed,
		Right:     report.Right == HealthFailed,
		LeftAddr:  left,
		RightAddr: right,
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if failure.Left || failure.Right {
		n.neighborFailure.Inc()
		return report, failure
	}
	return report, nil
}

// probe sends a liveness probe to addr and returns its result channel, nil if there is no neighbor
func (n *Node) probe(addr string) chan bool {
	if addr == "" {
		return nil
	}
	p := &checkAlive{
		request: request{timeout: n.config.LivenessTimeout()},
		result:  make(chan bool, 1),
	}
	if err := n.layer.Send(p, addr); err != nil {
		Logger.Errorf("Failed to probe %s: %v", addr, err)
		p.result <- false
	}
	return p.result
}

// awaitProbe waits for one probe result until ctx ends
func awaitProbe(ctx context.Context, result chan bool) Health {
	if result == nil {
		return HealthAbsent
	}
	select {
	case ok := <-result:
		return healthOf(ok)
	case <-ctx.Done():
		return HealthFailed
	}
}

func healthOf(ok bool) Health {
	if ok {
		return HealthHealthy
	}
	return HealthFailed
}

// RunLivenessLoop calls CheckNeighbors every interval until ctx is done.
// Failures are logged and counted, the ring is not repaired.
func (n *Node) RunLivenessLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		report, err := n.CheckNeighbors(ctx)
		var failure *NeighborFailureError
		switch {
		case err == nil:
			Logger.Debugf("Neighbors healthy: left=%s right=%s", report.LeftAddr, report.RightAddr)
		case errors.Is(err, ErrNoNeighbors):
			Logger.Debugf("Liveness check skipped, node is standalone")
		case errors.As(err, &failure):
			Logger.Warningf("Liveness check: %v", failure)
		case ctx.Err() != nil:
			return
		default:
			Logger.Errorf("Liveness check failed: %v", err)
		}
	}
}
