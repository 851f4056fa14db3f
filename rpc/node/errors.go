package node

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrJoinTimeout is reported when the entry node did not answer any join attempt
	ErrJoinTimeout = errors.New("join timed out")
	// ErrJoinRefused wraps the reason an entry node gave for refusing a join
	ErrJoinRefused = errors.New("join refused")
	// ErrAlreadyMember is returned by JoinCluster on a node that is part of a ring
	ErrAlreadyMember = errors.New("node is already a ring member")
	// ErrJoinInProgress is returned by JoinCluster while a join is running
	ErrJoinInProgress = errors.New("join already in progress")
	// ErrNoNeighbors is returned by CheckNeighbors on a standalone node
	ErrNoNeighbors = errors.New("node has no neighbors")
	// ErrRequestTimeout is returned when a remote store request was not answered in time
	ErrRequestTimeout = errors.New("request timed out")
)

// reasonJoinSelf is the reason an entry node gives when a node tries to join itself
const reasonJoinSelf = "node cannot join itself"

// NeighborFailureError names the neighbors that did not acknowledge a liveness probe
type NeighborFailureError struct {
	Left, Right         bool
	LeftAddr, RightAddr string
}

func (e *NeighborFailureError) Error() string {
	var failed []string
	if e.Left {
		failed = append(failed, fmt.Sprintf("left (%s)", e.LeftAddr))
	}
	if e.Right {
		failed = append(failed, fmt.Sprintf("right (%s)", e.RightAddr))
	}
	return "neighbor failure: " + strings.Join(failed, ", ")
}
