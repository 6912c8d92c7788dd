// Package worker provides managed threads: named goroutines with explicit,
// logged joins.
//
// A Thread starts running as soon as Go returns. Its owner calls Join exactly
// once (usually from its Stop path) and then Release. Join reports panics
// recovered from the thread's function as *PanicError.
//
// Example Usage:
//
//	reader := worker.Go("reader", p.readLoop, worker.WithLogger(log))
//	...
//	err := reader.Join()
//	reader.Release()
package worker
