// Package server wires the command pipeline to the network.
//
// Every accepted connection gets its own service.System: a WebSocket
// upgraded on /stream, or a raw TCP connection on the configured TCP
// address. Each System runs a reader, executor and writer thread over the
// connection and is registered until the peer leaves or the server stops.
//
// Routes:
//   - GET /health  - liveness, lifecycle state and aggregate counters
//   - GET /systems - one entry per live connection
//   - GET /metrics - Prometheus exposition
//   - GET /stream  - WebSocket command stream
//
// Shutdown order: stop accepting, shut the HTTP server down, stop the TCP
// listener, stop every live System, wait for connection handlers, flush the
// tracer and the logger.
//
// Example Usage:
//
//	cfg, err := config.Load()
//	srv, err := server.New(cfg, logger)
//	if _, err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop()
package server
