// Package cmd implements the command-line interface of dRing. It provides a
// command to run a ring node and client commands to use the store of a node.
//
// The package is organized into several subpackages:
//
//   - serve: Runs a node, optionally joining a ring via an entry node
//   - kv: Commands for store operations on a single node (get, put, remove, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dring -help for a list of all commands.
package cmd
