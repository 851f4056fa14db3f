// Package server implements the admin HTTP server of a ring node.
//
// Endpoints:
//
//   - GET /healthz: plain "ok" while the process runs
//   - GET /ring: the ring view (self, left, right, status) as JSON
//   - POST /ring/check: runs one liveness check of both neighbors. The answer
//     is 200 if all present neighbors acknowledged, 503 if one of them failed.
//   - GET /metrics: ring and delivery counters plus process metrics in
//     Prometheus text format
//   - GET /stats: delivery counters and the acknowledgement round-trip timer
//
// The server only reads the node, a liveness check is the one operation that
// sends datagrams and it never changes the ring.
package server
