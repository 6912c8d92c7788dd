package worker

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/turbosocket/internal/shared/id"
)

// ErrAlreadyJoined is returned by a second Join on the same thread
var ErrAlreadyJoined = errors.New("worker: thread already joined")

// PanicError reports a panic recovered from a thread's function
type PanicError struct {
	Thread string
	Value  interface{}
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("thread %s panicked: %v", e.Thread, e.Value)
}

// Thread is a named goroutine with an explicit Join.
//
// A Thread is owned by whoever created it. The owner joins it exactly once
// and then releases it.
type Thread struct {
	name    string
	id      id.ThreadID
	logger  *zap.Logger
	metrics *monitoring.Metrics

	created time.Time
	done    chan struct{}
	err     error // written before done is closed

	joined   atomic.Bool
	released atomic.Bool
}

// Option configures a Thread
type Option func(*Thread)

// WithLogger sets the logger for thread diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(t *Thread) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics reports the thread to the active-thread gauge
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(t *Thread) { t.metrics = metrics }
}

// Go starts fn on a new goroutine and returns its handle
func Go(name string, fn func(), opts ...Option) *Thread {
	t := &Thread{
		name:    name,
		id:      id.NewThreadID(),
		logger:  zap.NewNop(),
		created: time.Now(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.metrics.ThreadStarted()
	go t.run(fn)

	t.logger.Info("Thread created",
		zap.String("thread", t.name),
		zap.Stringer("thread_id", t.id),
	)
	return t
}

func (t *Thread) run(fn func()) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			t.err = &PanicError{Thread: t.name, Value: r, Stack: stack}
			t.logger.Error("Thread panicked",
				zap.String("thread", t.name),
				zap.Any("panic", r),
				zap.ByteString("stack", stack),
			)
		}
	}()
	fn()
}

// Name returns the thread's name
func (t *Thread) Name() string {
	return t.name
}

// ID returns the thread's unique id
func (t *Thread) ID() id.ThreadID {
	return t.id
}

// String identifies the thread in diagnostics
func (t *Thread) String() string {
	if t == nil {
		return "ThreadName=(null)"
	}
	return fmt.Sprintf("ThreadName=%s,(ID: %s)", t.name, t.id)
}

// Done is closed when the thread's function has returned
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Join blocks until the thread's function returns. It returns a *PanicError
// if the function panicked. Joining a thread that was never started panics.
func (t *Thread) Join() error {
	if t == nil || t.done == nil {
		panic("worker: join of a thread that was never started")
	}
	if !t.joined.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrAlreadyJoined, t)
	}

	t.logger.Info("Thread joining", zap.String("thread", t.name))
	start := time.Now()
	<-t.done
	t.metrics.ThreadJoined()

	t.logger.Info("Thread joined",
		zap.String("thread", t.name),
		zap.Stringer("thread_id", t.id),
		zap.Duration("waited", time.Since(start)),
		zap.Duration("lifetime", time.Since(t.created)),
	)
	return t.err
}

// Release ends the owner's use of the handle. It does not join: a goroutine
// cannot be aborted, so a thread released before Join keeps running until
// its function returns.
func (t *Thread) Release() {
	if t == nil || !t.released.CompareAndSwap(false, true) {
		return
	}
	if !t.joined.Load() {
		t.logger.Warn("Thread released without join",
			zap.String("thread", t.name),
			zap.Stringer("thread_id", t.id),
		)
		return
	}
	t.logger.Info("Thread released", zap.String("thread", t.name))
}
