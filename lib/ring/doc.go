// Package ring holds the membership view of a single ring node: its own address,
// its predecessor ("left") and its successor ("right"), and whether it is
// standalone, joining or a member.
//
// The state is only ever changed locally, on receipt of a join response, a join
// request (when this node acts as entry node) or a neighbor update. There is no
// consensus behind it: two nodes may briefly disagree about their pointers, and
// liveness checks detect such violations without repairing them.
package ring
