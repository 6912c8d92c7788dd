// Package testutil provides fakes and mocks shared by package tests.
package testutil

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
)

// FakeTransport yields a fixed list of inputs, then blocks until the read
// context is cancelled (or returns io.EOF when CloseAfterInputs is set).
// Every written reply is recorded in order.
type FakeTransport struct {
	CloseAfterInputs bool
	ReadErr          error // returned once before the inputs, if set
	WriteErr         error // returned by every WriteOne, if set

	mu      sync.Mutex
	inputs  [][]byte
	readErr error
	replies []pipeline.Reply
	written chan struct{}
	reads   int
}

// NewFakeTransport creates a transport that yields inputs in order
func NewFakeTransport(inputs ...string) *FakeTransport {
	t := &FakeTransport{written: make(chan struct{}, 1024)}
	for _, in := range inputs {
		t.inputs = append(t.inputs, []byte(in))
	}
	return t
}

// ReadOne returns the next input
func (t *FakeTransport) ReadOne(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	t.reads++
	if t.ReadErr != nil && t.readErr == nil {
		t.readErr = t.ReadErr
		t.mu.Unlock()
		return nil, t.ReadErr
	}
	if len(t.inputs) > 0 {
		next := t.inputs[0]
		t.inputs = t.inputs[1:]
		t.mu.Unlock()
		return next, nil
	}
	closeAfter := t.CloseAfterInputs
	t.mu.Unlock()

	if closeAfter {
		return nil, io.EOF
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// WriteOne records the reply
func (t *FakeTransport) WriteOne(_ context.Context, reply pipeline.Reply) error {
	if t.WriteErr != nil {
		return t.WriteErr
	}
	t.mu.Lock()
	t.replies = append(t.replies, reply)
	t.mu.Unlock()

	select {
	case t.written <- struct{}{}:
	default:
	}
	return nil
}

// Replies returns a copy of the replies written so far
func (t *FakeTransport) Replies() []pipeline.Reply {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]pipeline.Reply, len(t.replies))
	copy(out, t.replies)
	return out
}

// Payloads returns written reply payloads as strings
func (t *FakeTransport) Payloads() []string {
	replies := t.Replies()
	out := make([]string, len(replies))
	for i, r := range replies {
		out[i] = string(r.Payload)
	}
	return out
}

// Reads returns how many times ReadOne was called
func (t *FakeTransport) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

// WaitReplies blocks until at least n replies were written or the timeout passes
func (t *FakeTransport) WaitReplies(tb testing.TB, n int, timeout time.Duration) []pipeline.Reply {
	tb.Helper()
	deadline := time.After(timeout)
	for {
		if replies := t.Replies(); len(replies) >= n {
			return replies
		}
		select {
		case <-t.written:
		case <-deadline:
			tb.Fatalf("timed out waiting for %d replies, got %d", n, len(t.Replies()))
			return nil
		}
	}
}

// ErrFake is a generic failure for tests
var ErrFake = errors.New("fake failure")

// MockExecutor is a testify mock of pipeline.Executor.
type MockExecutor struct {
	mock.Mock
}

// Execute mocks the Execute method.
func (m *MockExecutor) Execute(ctx context.Context, cmd pipeline.RawCommand) pipeline.Reply {
	args := m.Called(ctx, cmd)
	if fn, ok := args.Get(0).(func(context.Context, pipeline.RawCommand) pipeline.Reply); ok {
		return fn(ctx, cmd)
	}
	return args.Get(0).(pipeline.Reply)
}

// NewMockExecutor creates a mock executor that echoes every payload.
func NewMockExecutor(t *testing.T) *MockExecutor {
	t.Helper()
	m := new(MockExecutor)
	m.On("Execute", mock.Anything, mock.Anything).
		Return(func(_ context.Context, cmd pipeline.RawCommand) pipeline.Reply {
			return pipeline.Reply{ID: cmd.ID, Payload: cmd.Payload}
		}).
		Maybe()
	return m
}
