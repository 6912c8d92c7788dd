/*
Package pipeline implements a three-stage command pipeline over a transport.

# Stages

	Transport --reader--> inbound --executor--> outbound --writer--> Transport

Each stage runs on its own managed thread. The reader turns every payload from
Transport.ReadOne into a RawCommand, the executor maps it to a Reply, and the
writer hands the reply to Transport.WriteOne. Both queues are FIFO with a
single producer and a single consumer, so replies leave in read order.

# Shutdown

Stop raises a one-way shutdown flag. Executor and writer notice it within one
poll interval; the reader's context is cancelled, so a transport that honours
the context returns at once. Stop then joins reader, executor and writer in
that order. Items still queued are dropped and counted in Stats.Dropped.

A pipeline cannot be restarted once stopped.

# Errors

A read error is counted and the reader backs off one poll interval before
retrying. io.EOF closes TransportClosed and ends the reader. A write error is
counted and the reply is discarded. An executor panic becomes a Reply whose
Err is set.
*/
package pipeline
