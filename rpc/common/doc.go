// Package common provides the data structures shared by the ring node, the
// transports and the command line tools.
//
// The package focuses on:
//   - The wire message of the ring protocol and its correlation header
//   - Configuration structures for nodes and the kv client commands
//   - A zap backed logger factory integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: flat structure carrying every protocol variant. The MsgType
//     decides which fields are meaningful. Factory methods build the join,
//     liveness, neighbor update and store messages.
//
//   - Header: RequestID is set by the sender of a message that waits for an
//     acknowledgement, AckID names the request a reply acknowledges. Zero means
//     "not set" for both.
//
//   - NodeConfig: listen and advertise address, join and liveness timing,
//     discovery and admin settings of one node.
//
//   - ClientConfig: peer address and timeout used by the kv commands.
//
//   - Logger: InitLoggers installs the zap backed factory and sets the level
//     of all package loggers.
package common
