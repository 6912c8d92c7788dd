package pipeline

import (
	"context"
	"time"

	"github.com/GriffinCanCode/turbosocket/internal/shared/id"
)

// Stage names, used for thread names, logs and metric labels
const (
	StageReader   = "reader"
	StageExecutor = "executor"
	StageWriter   = "writer"
)

// Queue names, used for logs and metric labels
const (
	QueueInbound  = "inbound"
	QueueOutbound = "outbound"
)

// RawCommand is one unparsed command read from the transport. Err is set
// when the input could not be decoded; such a command is answered with Err
// and never reaches the executor.
type RawCommand struct {
	ID       id.CommandID
	Payload  []byte
	Err      error
	Received time.Time
}

// Reply is the executor's answer to one RawCommand.
// A failed execution is still a Reply, with Err set.
type Reply struct {
	ID      id.CommandID
	Payload []byte
	Err     error
}

// Transport moves raw commands in and replies out.
//
// ReadOne is only called from the reader stage and WriteOne only from the
// writer stage, so an implementation needs no locking between the two calls
// of the same kind. Both may block; they should return promptly once ctx is
// cancelled. ReadOne returns io.EOF when no more commands will arrive, and an
// error wrapping ErrMalformed for input it received but could not decode.
type Transport interface {
	ReadOne(ctx context.Context) ([]byte, error)
	WriteOne(ctx context.Context, reply Reply) error
}

// Executor turns a command into a reply. It is only called from the executor
// stage and is assumed to be synchronous.
type Executor interface {
	Execute(ctx context.Context, cmd RawCommand) Reply
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, cmd RawCommand) Reply

// Execute calls f(ctx, cmd)
func (f ExecutorFunc) Execute(ctx context.Context, cmd RawCommand) Reply {
	return f(ctx, cmd)
}

// Stats is a point-in-time snapshot of pipeline counters
type Stats struct {
	Read        int64 `json:"read"`
	Executed    int64 `json:"executed"`
	Written     int64 `json:"written"`
	Dropped     int64 `json:"dropped"`
	ReadErrors  int64 `json:"read_errors"`
	WriteErrors int64 `json:"write_errors"`
	Inbound     int   `json:"inbound"`
	Outbound    int   `json:"outbound"`
}
