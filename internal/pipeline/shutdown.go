package pipeline

import (
	"context"
	"sync/atomic"
)

// shutdownFlag is the pipeline's only cancellation signal. It is set once
// and never reset. Stage loops poll IsSet; blocking transport calls observe
// the same event through Context.
type shutdownFlag struct {
	set    atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

func newShutdownFlag() *shutdownFlag {
	ctx, cancel := context.WithCancel(context.Background())
	return &shutdownFlag{ctx: ctx, cancel: cancel}
}

// Set raises the flag and reports whether this call raised it
func (f *shutdownFlag) Set() bool {
	if !f.set.CompareAndSwap(false, true) {
		return false
	}
	f.cancel()
	return true
}

// IsSet reports whether the flag has been raised
func (f *shutdownFlag) IsSet() bool {
	return f.set.Load()
}

// Context is cancelled when the flag is raised
func (f *shutdownFlag) Context() context.Context {
	return f.ctx
}
