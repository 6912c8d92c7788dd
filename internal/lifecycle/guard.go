package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidTransition is returned when StartEnd or StopEnd is called from a
// state its matching Begin call could not have produced.
var ErrInvalidTransition = errors.New("lifecycle: invalid transition")

// DefaultPollInterval is how often StopBegin re-checks the state while another
// goroutine is stopping the object.
const DefaultPollInterval = 10 * time.Millisecond

// Guard is a start-once / stop-once state machine.
//
// Objects compose a Guard and route their Start and Stop through it:
//
//	func (s *Thing) Start() (bool, error) { return s.guard.Start(s.start) }
//	func (s *Thing) Stop() (bool, error)  { return s.guard.Stop(s.stop) }
//
// The guard then runs each body at most once no matter how many goroutines
// call Start or Stop, and concurrent stoppers wait for the winner to finish.
type Guard struct {
	name         string
	logger       *zap.Logger
	pollInterval time.Duration
	observer     Observer

	mu    sync.Mutex
	state State // only under mu
}

// Option configures a Guard
type Option func(*Guard)

// WithName sets the name used in diagnostics
func WithName(name string) Option {
	return func(g *Guard) { g.name = name }
}

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithPollInterval sets how often a waiting stopper re-checks the state
func WithPollInterval(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.pollInterval = d
		}
	}
}

// WithObserver registers a transition callback
func WithObserver(o Observer) Option {
	return func(g *Guard) { g.observer = o }
}

// New creates a guard in StateNew
func New(opts ...Option) *Guard {
	g := &Guard{
		name:         "object",
		logger:       zap.NewNop(),
		pollInterval: DefaultPollInterval,
		state:        StateNew,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the diagnostic name of the guard
func (g *Guard) Name() string {
	return g.name
}

// State returns a snapshot of the current state
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// StartBegin moves New to Starting and reports whether the caller must now
// run its start body and call StartEnd. Any other state is a no-op.
func (g *Guard) StartBegin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateNew {
		g.logger.Info("Object can not be started",
			zap.String("object", g.name),
			zap.Stringer("state", g.state),
		)
		return false
	}
	g.setState(StateStarting)
	return true
}

// StartEnd moves Starting to Running
func (g *Guard) StartEnd() error {
	return g.finish(StateStarting, StateRunning, "starting")
}

// StopBegin reports whether the caller must run its stop body and call StopEnd.
//
// A Running object moves to Stopping and true is returned. If another
// goroutine is already stopping the object, StopBegin blocks until that stop
// completes and then returns false. There is no timeout: the in-flight
// stopper is trusted to reach StopEnd.
func (g *Guard) StopBegin() bool {
	g.mu.Lock()
	switch g.state {
	case StateRunning:
		g.setState(StateStopping)
		g.mu.Unlock()
		return true
	case StateStopping:
		g.mu.Unlock()
		g.waitDone()
		return false
	default:
		g.mu.Unlock()
		return false
	}
}

// StopEnd moves Stopping to Done
func (g *Guard) StopEnd() error {
	return g.finish(StateStopping, StateDone, "stopping")
}

// Start runs body between StartBegin and StartEnd. It returns false without
// running body if the object was already started. StartEnd runs even when
// body fails or panics, so a partially started object can still be stopped.
func (g *Guard) Start(body func() error) (ran bool, err error) {
	if !g.StartBegin() {
		return false, nil
	}
	defer func() {
		if endErr := g.StartEnd(); endErr != nil && err == nil {
			err = endErr
		}
	}()
	if body != nil {
		err = body()
	}
	return true, err
}

// Stop runs body between StopBegin and StopEnd. It returns false without
// running body if the object was never started, is already done, or was
// stopped by a concurrent caller (in which case Stop waits for it).
func (g *Guard) Stop(body func() error) (ran bool, err error) {
	if !g.StopBegin() {
		return false, nil
	}
	defer func() {
		if endErr := g.StopEnd(); endErr != nil && err == nil {
			err = endErr
		}
	}()
	if body != nil {
		err = body()
	}
	return true, err
}

// Close stops the object through stop and swallows any failure, including a
// panic. Owners call it from their own Close so a started object is always
// stopped before it is discarded.
func (g *Guard) Close(stop func() (bool, error)) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Stop panicked during close",
				zap.String("object", g.name),
				zap.Any("panic", r),
			)
		}
	}()
	if stop == nil {
		return
	}
	if _, err := stop(); err != nil {
		g.logger.Warn("Stop failed during close",
			zap.String("object", g.name),
			zap.Error(err),
		)
	}
}

func (g *Guard) finish(from, to State, phase string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != from {
		g.logger.Error("Object invalid use",
			zap.String("object", g.name),
			zap.String("phase", phase),
			zap.Stringer("state", g.state),
		)
		return fmt.Errorf("%w: %s %s in state %s", ErrInvalidTransition, g.name, phase, g.state)
	}
	g.setState(to)
	return nil
}

// waitDone polls until the state becomes Done
func (g *Guard) waitDone() {
	start := time.Now()
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for range ticker.C {
		if g.State() == StateDone {
			break
		}
	}

	g.logger.Info("Waited for stopping of object",
		zap.String("object", g.name),
		zap.Duration("waited", time.Since(start)),
	)
}

// setState must be called with mu held
func (g *Guard) setState(to State) {
	from := g.state
	g.state = to
	if g.observer != nil {
		g.observer(g.name, from, to)
	}
}
