// Package transport adapts network connections to pipeline.Transport.
//
// Conn serves raw stream sockets with a line Framing (plain or hex), polling
// reads with a deadline so shutdown is noticed within one poll interval.
// WebSocket serves gorilla connections and replies with JSON envelopes.
// Listener accepts raw TCP connections under a connection cap. Guarded puts
// a circuit breaker in front of a transport's writes.
package transport
