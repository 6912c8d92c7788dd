/*
Package tracing provides lightweight request and session tracing.

# Overview

A Tracer hands out spans that carry a trace ID and a parent span ID through
context.Context. Finished spans are submitted to a buffered channel and
logged by a collector thread, so tracing never blocks a request or a
connection.

# Usage

	tracer := tracing.New("turbosocket", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "session tcp")
	span.SetTag("remote", addr)
	...
	span.Finish()
	tracer.Submit(span)

# Propagation

HTTP clients may send X-Trace-ID and X-Span-ID; the middleware continues
that trace and returns the IDs it used in the same headers. A WebSocket
session started from /stream is a child of the upgrade request's span.
*/
package tracing
