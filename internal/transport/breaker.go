package transport

import (
	"context"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
)

// Guarded passes reads through and sends writes through a circuit breaker,
// so a peer that stops reading costs one write timeout per cooldown instead
// of one per reply
type Guarded struct {
	pipeline.Transport
	breaker *resilience.Breaker
}

// WithBreaker wraps t
func WithBreaker(t pipeline.Transport, breaker *resilience.Breaker) *Guarded {
	return &Guarded{Transport: t, breaker: breaker}
}

// WriteOne writes the reply unless the breaker is open
func (g *Guarded) WriteOne(ctx context.Context, reply pipeline.Reply) error {
	return g.breaker.Do(func() error {
		return g.Transport.WriteOne(ctx, reply)
	})
}

// Breaker returns the breaker guarding writes
func (g *Guarded) Breaker() *resilience.Breaker {
	return g.breaker
}
