package pipeline

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/monitoring"
)

// DefaultPollInterval bounds how long a stage waits on its queue before
// re-checking the shutdown flag.
const DefaultPollInterval = 100 * time.Millisecond

// Option configures a Pipeline
type Option func(*Pipeline)

// WithName sets the name used in diagnostics
func WithName(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics reports stage, queue and thread metrics
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(p *Pipeline) { p.metrics = metrics }
}

// WithPollInterval sets the bounded wait used by the executor and writer
// stages and the back-off after a failed read
func WithPollInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithStopPollInterval sets how often a concurrent Stop re-checks for completion
func WithStopPollInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.stopPollInterval = d
		}
	}
}

// WithRateLimit limits how fast the reader stage accepts commands.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *Pipeline) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLimiter makes the reader stage wait on limiter before queueing each
// command. A nil limiter disables limiting.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(p *Pipeline) { p.limiter = limiter }
}
