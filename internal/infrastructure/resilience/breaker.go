package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrOpen          = errors.New("circuit breaker is open")
	ErrProbeInFlight = errors.New("circuit breaker probe in flight")
)

// State is the breaker position
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker. Zero fields take the defaults below.
type Settings struct {
	// Threshold consecutive failures open the breaker (default 5)
	Threshold uint32
	// Cooldown is how long the breaker stays open before a probe (default 1s)
	Cooldown time.Duration
	// Probes successful calls in half-open close the breaker (default 1)
	Probes uint32
	// OnStateChange is called with the breaker lock released
	OnStateChange func(name string, from, to State)
	Logger        *zap.Logger
}

// Breaker fails fast after repeated failures of a call site.
//
// A failure in half-open reopens it for another cooldown.
type Breaker struct {
	name     string
	settings Settings
	logger   *zap.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	failures   uint32
	successes  uint32
	inFlight   uint32
	openedAt   time.Time
	totalTrips uint64
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = time.Second
	}
	if settings.Probes == 0 {
		settings.Probes = 1
	}
	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{name: name, settings: settings, logger: logger}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving open to half-open once the
// cooldown has passed
func (b *Breaker) State() State {
	b.mu.Lock()
	state, changed := b.refresh(time.Now())
	b.mu.Unlock()

	if changed {
		b.notify(StateOpen, StateHalfOpen)
	}
	return state
}

// Trips returns how many times the breaker has opened
func (b *Breaker) Trips() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalTrips
}

// Do runs fn unless the breaker rejects the call. A panic in fn counts as a
// failure and is re-raised.
func (b *Breaker) Do(fn func() error) (err error) {
	generation, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.record(generation, false)
			panic(r)
		}
	}()

	err = fn()
	b.record(generation, err == nil)
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	state, changed := b.refresh(time.Now())
	generation, err := b.generation, error(nil)
	switch {
	case state == StateOpen:
		err = fmt.Errorf("%w: %s", ErrOpen, b.name)
	case state == StateHalfOpen && b.inFlight >= b.settings.Probes:
		err = fmt.Errorf("%w: %s", ErrProbeInFlight, b.name)
	default:
		b.inFlight++
	}
	b.mu.Unlock()

	if changed {
		b.notify(StateOpen, StateHalfOpen)
	}
	return generation, err
}

func (b *Breaker) record(generation uint64, ok bool) {
	b.mu.Lock()
	if generation != b.generation {
		// result of a call admitted before the last transition
		b.mu.Unlock()
		return
	}
	b.inFlight--

	var from, to State
	changed := false
	switch {
	case ok && b.state == StateHalfOpen:
		b.successes++
		if b.successes >= b.settings.Probes {
			from, to, changed = b.transition(StateClosed, time.Now())
		}
	case ok:
		b.failures = 0
	case b.state == StateHalfOpen:
		from, to, changed = b.transition(StateOpen, time.Now())
	default:
		b.failures++
		if b.failures >= b.settings.Threshold {
			from, to, changed = b.transition(StateOpen, time.Now())
		}
	}
	b.mu.Unlock()

	if changed {
		b.notify(from, to)
	}
}

// refresh must be called with mu held. It reports whether the cooldown
// moved the breaker to half-open.
func (b *Breaker) refresh(now time.Time) (State, bool) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.settings.Cooldown {
		_, _, changed := b.transition(StateHalfOpen, now)
		return b.state, changed
	}
	return b.state, false
}

// transition must be called with mu held
func (b *Breaker) transition(to State, now time.Time) (State, State, bool) {
	from := b.state
	if from == to {
		return from, to, false
	}
	b.state = to
	b.generation++
	b.failures, b.successes, b.inFlight = 0, 0, 0
	if to == StateOpen {
		b.openedAt = now
		b.totalTrips++
	}
	return from, to, true
}

func (b *Breaker) notify(from, to State) {
	b.logger.Info("Circuit breaker state changed",
		zap.String("breaker", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
