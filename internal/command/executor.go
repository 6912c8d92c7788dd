// Package command provides the stock executors a pipeline can be built with.
//
// Command semantics are deliberately absent: these executors only transform
// the payload so the pipeline can be exercised end to end.
package command

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
)

// Kind names a stock executor
type Kind string

const (
	KindEcho  Kind = "echo"
	KindUpper Kind = "upper"
	KindHex   Kind = "hex"
)

var registry = map[Kind]func() pipeline.Executor{
	KindEcho:  Echo,
	KindUpper: Upper,
	KindHex:   Hex,
}

// New returns the stock executor for kind
func New(kind string) (pipeline.Executor, error) {
	factory, ok := registry[Kind(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown executor %q (available: %v)", kind, Kinds())
	}
	return factory(), nil
}

// Kinds lists the available executor kinds in sorted order
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return kinds
}

// Echo replies with the command payload unchanged
func Echo() pipeline.Executor {
	return pipeline.ExecutorFunc(func(_ context.Context, cmd pipeline.RawCommand) pipeline.Reply {
		return pipeline.Reply{ID: cmd.ID, Payload: cmd.Payload}
	})
}

// Upper replies with the payload upper-cased
func Upper() pipeline.Executor {
	return pipeline.ExecutorFunc(func(_ context.Context, cmd pipeline.RawCommand) pipeline.Reply {
		return pipeline.Reply{ID: cmd.ID, Payload: bytes.ToUpper(cmd.Payload)}
	})
}

// Hex replies with the payload as lowercase hex, e.g. "MN" -> "4d4e"
func Hex() pipeline.Executor {
	return pipeline.ExecutorFunc(func(_ context.Context, cmd pipeline.RawCommand) pipeline.Reply {
		out := make([]byte, hex.EncodedLen(len(cmd.Payload)))
		hex.Encode(out, cmd.Payload)
		return pipeline.Reply{ID: cmd.ID, Payload: out}
	})
}
