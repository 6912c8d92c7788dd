// Package main is the entry point for the TurboSocket server.
//
// The server runs one reader/executor/writer pipeline per connection and
// accepts commands over WebSocket (/stream) and raw TCP.
//
// Configuration:
//   - Defaults
//   - Config file named by TURBOSOCKET_CONFIG (.yaml, .yml or .toml)
//   - Environment variables (12-factor)
//   - CLI flags (override everything else)
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -tcp :7000 -executor upper
//
//	# Hex framing on the TCP side, no WebSocket origin checks
//	CORS_ORIGINS='*' ./server -framing hex
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
//	# JSON logs to a file, at most 50 new /stream sessions per second
//	LOG_OUTPUT=/var/log/turbosocket.json CONN_RATE=50 ./server
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
