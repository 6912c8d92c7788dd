package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/turbosocket/internal/lifecycle"
	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
	"github.com/GriffinCanCode/turbosocket/internal/shared/id"
)

// System is the externally visible service object. It owns exactly one
// pipeline and forwards Start and Stop to it through its own guard.
type System struct {
	id      id.ConnectionID
	name    string
	logger  *zap.Logger
	metrics *monitoring.Metrics

	guard    *lifecycle.Guard
	pipeline *pipeline.Pipeline
	done     chan struct{}

	pipelineOpts []pipeline.Option
}

// Info is a JSON-friendly snapshot of a System
type Info struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	State   string         `json:"state"`
	Created time.Time      `json:"created"`
	Stats   pipeline.Stats `json:"stats"`
}

// Option configures a System
type Option func(*System)

// WithName sets the diagnostic name of the system and its pipeline
func WithName(name string) Option {
	return func(s *System) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *System) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records lifecycle and pipeline metrics
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(s *System) { s.metrics = metrics }
}

// WithPipelineOptions passes options through to the owned pipeline
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(s *System) { s.pipelineOpts = append(s.pipelineOpts, opts...) }
}

// New creates a System over transport and executor in the New state
func New(transport pipeline.Transport, executor pipeline.Executor, opts ...Option) (*System, error) {
	s := &System{
		id:     id.NewConnectionID(),
		name:   "system",
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("system", s.name), zap.Stringer("system_id", s.id))

	popts := append([]pipeline.Option{
		pipeline.WithName(s.name),
		pipeline.WithLogger(s.logger),
		pipeline.WithMetrics(s.metrics),
	}, s.pipelineOpts...)

	p, err := pipeline.New(transport, executor, popts...)
	if err != nil {
		return nil, err
	}
	s.pipeline = p

	s.guard = lifecycle.New(
		lifecycle.WithName(s.name),
		lifecycle.WithLogger(s.logger),
		lifecycle.WithObserver(s.metrics.LifecycleObserver("system")),
	)
	return s, nil
}

// ID returns the system's connection ID
func (s *System) ID() id.ConnectionID {
	return s.id
}

// Name returns the diagnostic name
func (s *System) Name() string {
	return s.name
}

// Start starts the owned pipeline. Only the first call does anything.
func (s *System) Start() (bool, error) {
	return s.guard.Start(func() error {
		_, err := s.pipeline.Start()
		return err
	})
}

// Stop stops the owned pipeline and closes Done. Concurrent callers wait for
// the first one to finish.
func (s *System) Stop() (bool, error) {
	return s.guard.Stop(func() error {
		defer close(s.done)
		_, err := s.pipeline.Stop()
		return err
	})
}

// Close stops the system if it is running, swallowing errors
func (s *System) Close() {
	s.guard.Close(s.Stop)
}

// Done is closed once Stop has run. A system that is never started never
// closes it.
func (s *System) Done() <-chan struct{} {
	return s.done
}

// TransportClosed is closed when the peer has gone away
func (s *System) TransportClosed() <-chan struct{} {
	return s.pipeline.TransportClosed()
}

// State returns the lifecycle state of the system
func (s *System) State() lifecycle.State {
	return s.guard.State()
}

// Stats returns the pipeline counters
func (s *System) Stats() pipeline.Stats {
	return s.pipeline.Stats()
}

// Created returns the creation time carried in the system's ID
func (s *System) Created() time.Time {
	ts, _ := id.Timestamp(s.id.String())
	return ts
}

// Info returns a snapshot for diagnostics
func (s *System) Info() Info {
	return Info{
		ID:      s.id.String(),
		Name:    s.name,
		State:   s.State().String(),
		Created: s.Created(),
		Stats:   s.Stats(),
	}
}
