package ring

import (
	"encoding/json"
	"errors"
	"sync"
)

var (
	// ErrEntryJoining is returned by Admit while the entry node is joining itself
	ErrEntryJoining = errors.New("entry node is joining")
	// ErrUnknownAssignment is returned by Admit for a joiner that already is the
	// successor of the entry without a recorded admission to repeat
	ErrUnknownAssignment = errors.New("joiner is already the successor of the entry")
)

// --------------------------------------------------------------------------
// Membership Status
// --------------------------------------------------------------------------

// Status is the membership status of a node with respect to the ring.
type Status uint8

const (
	StatusStandalone Status = iota // no neighbors, initial state
	StatusJoining                  // join request sent, awaiting response
	StatusMember                   // both neighbor pointers populated
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusStandalone:
		return "standalone"
	case StatusJoining:
		return "joining"
	case StatusMember:
		return "member"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes a Status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// --------------------------------------------------------------------------
// Ring State
// --------------------------------------------------------------------------

// View is a consistent copy of the ring state at one point in time.
// Empty Left/Right mean the neighbor is absent.
type View struct {
	Self   string `json:"self"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	Status Status `json:"status"`
}

// State is the node's membership view: its own address, its predecessor (left)
// and its successor (right).
//
// One lock covers all fields, so a reader never observes a ring that is only
// half updated by a concurrent join.
//
// Size-1 convention: a standalone node has no neighbors. A two-node ring has
// left == right == the other node.
type State struct {
	mu     sync.RWMutex
	self   string
	left   string
	right  string
	status Status

	// last admission made by this node, valid while its joiner is the successor
	admitted admission
}

// admission is the pair of neighbors assigned to a joiner
type admission struct {
	joiner, left, right string
}

// NewState creates the state of a standalone node.
func NewState(self string) *State {
	return &State{self: self, status: StatusStandalone}
}

// View returns a snapshot of the state.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{Self: s.self, Left: s.left, Right: s.right, Status: s.status}
}

// Self returns the node's own address.
func (s *State) Self() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

// SetSelf sets the node's own address, used once the transport is bound
func (s *State) SetSelf(self string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self = self
}

// Status returns the membership status.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Neighbors returns left and right as one consistent pair.
func (s *State) Neighbors() (left, right string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.left, s.right
}

// BeginJoin moves a standalone node to joining. It returns the status the node
// had and whether the transition happened.
func (s *State) BeginJoin() (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusStandalone {
		return s.status, false
	}
	s.status = StatusJoining
	return StatusStandalone, true
}

// AbortJoin returns a joining node to standalone. It is a no-op in any other status.
func (s *State) AbortJoin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusJoining {
		return false
	}
	s.status = StatusStandalone
	return true
}

// CompleteJoin sets both neighbors of a joining node and makes it a member.
// It returns false, and changes nothing, if the node is not joining.
func (s *State) CompleteJoin(left, right string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusJoining {
		return false
	}
	s.left, s.right = left, right
	s.status = StatusMember
	return true
}

// Admit inserts joiner as this node's successor and returns the neighbors the
// joiner must adopt together with the previous successor, which has to be told
// that its predecessor changed. prevRight is empty when the node was standalone
// (the two nodes now form a ring of size two).
//
// Admitting the current successor again repeats the assignment it was given
// without changing the ring, so a joiner whose response was lost can retry.
// Admit fails with ErrEntryJoining while the node is itself joining.
func (s *State) Admit(joiner string) (joinerLeft, joinerRight, prevRight string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusJoining:
		return "", "", "", ErrEntryJoining
	case StatusStandalone:
		s.left, s.right = joiner, joiner
		s.status = StatusMember
		s.admitted = admission{joiner: joiner, left: s.self, right: s.self}
		return s.self, s.self, "", nil
	}

	if joiner == s.right {
		switch {
		case s.admitted.joiner == joiner:
			return s.admitted.left, s.admitted.right, "", nil
		case joiner == s.left:
			// ring of two formed by this node joining via joiner
			return s.self, s.self, "", nil
		default:
			return "", "", "", ErrUnknownAssignment
		}
	}

	prevRight = s.right
	s.right = joiner
	s.admitted = admission{joiner: joiner, left: s.self, right: prevRight}
	return s.self, prevRight, prevRight, nil
}

// UpdateNeighbors sets the given pointers; empty arguments leave a side unchanged.
// A node that receives a neighbor update becomes a member.
func (s *State) UpdateNeighbors(left, right string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if left != "" {
		s.left = left
	}
	if right != "" {
		s.right = right
	}
	if s.left != "" && s.right != "" {
		s.status = StatusMember
	}
}
