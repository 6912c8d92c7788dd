package server

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/turbosocket/internal/command"
	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
	"github.com/GriffinCanCode/turbosocket/internal/service"
	"github.com/GriffinCanCode/turbosocket/internal/transport"
)

// serve runs one connection to completion: it builds a System over tr,
// starts it, waits for the peer to leave or the server to stop, lets queued
// replies drain, then stops the System and closes the connection.
func (s *Server) serve(ctx context.Context, kind string, tr closableTransport, remote string) {
	if !s.admit() {
		_ = tr.Close()
		return
	}
	defer s.sessions.Done()
	defer tr.Close()

	log := s.logger.Component("session").With(zap.String("kind", kind), zap.String("remote", remote))
	span, _ := s.tracer.StartSpan(ctx, "session "+kind)
	span.SetTag("remote", remote)
	defer func() {
		span.Finish()
		s.tracer.Submit(span)
	}()

	sys, err := s.newSystem(kind, tr, remote, log)
	if err != nil {
		log.Error("Failed to create system", zap.Error(err))
		span.SetError(err)
		return
	}
	defer sys.Close()

	if err := s.registry.Register(sys); err != nil {
		log.Error("Failed to register system", zap.Error(err))
		span.SetError(err)
		return
	}
	defer s.registry.Unregister(sys.ID())

	s.metrics.IncConnections(kind)
	defer s.metrics.DecConnections(kind)

	log.Info("Connection opened", zap.Stringer("system_id", sys.ID()))
	if _, err := sys.Start(); err != nil {
		log.Error("Failed to start system", zap.Error(err))
		span.SetError(err)
	}

	select {
	case <-sys.TransportClosed():
		s.awaitDrain(sys)
	case <-sys.Done():
	case <-s.stopping:
	}

	if _, err := sys.Stop(); err != nil {
		log.Warn("System stopped with errors", zap.Error(err))
		span.SetError(err)
	}

	stats := sys.Stats()
	span.SetTag("system_id", sys.ID().String())
	span.SetTag("read", strconv.FormatInt(stats.Read, 10))
	span.SetTag("written", strconv.FormatInt(stats.Written, 10))
	span.SetTag("dropped", strconv.FormatInt(stats.Dropped, 10))
	log.Info("Connection closed",
		zap.Stringer("system_id", sys.ID()),
		zap.Int64("read", stats.Read),
		zap.Int64("written", stats.Written),
		zap.Int64("write_errors", stats.WriteErrors),
		zap.Int64("dropped", stats.Dropped),
	)
}

func (s *Server) newSystem(kind string, tr pipeline.Transport, remote string, log *zap.Logger) (*service.System, error) {
	exec, err := command.New(s.cfg.Pipeline.Executor)
	if err != nil {
		return nil, err
	}

	breaker := resilience.New(kind+" "+remote, resilience.Settings{
		Threshold: s.cfg.Pipeline.BreakerThreshold,
		Cooldown:  s.cfg.Pipeline.BreakerCooldown.Std(),
		Logger:    log,
	})

	popts := []pipeline.Option{
		pipeline.WithPollInterval(s.cfg.Pipeline.PollInterval.Std()),
		pipeline.WithStopPollInterval(s.cfg.Pipeline.StopPollInterval.Std()),
	}
	if s.cfg.RateLimit.Enabled {
		popts = append(popts, pipeline.WithLimiter(s.rateLimit().Limiter()))
	}

	return service.New(transport.WithBreaker(tr, breaker), exec,
		service.WithName(kind+" "+remote),
		service.WithLogger(log),
		service.WithMetrics(s.metrics),
		service.WithPipelineOptions(popts...),
	)
}

// awaitDrain waits until every command read has been answered or dropped,
// the server stops, or the shutdown timeout passes
func (s *Server) awaitDrain(sys *service.System) {
	poll := s.cfg.Pipeline.PollInterval.Std()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	deadline := time.NewTimer(s.cfg.Server.ShutdownTimeout.Std())
	defer deadline.Stop()

	for {
		stats := sys.Stats()
		if stats.Written+stats.WriteErrors >= stats.Read {
			return
		}
		select {
		case <-ticker.C:
		case <-sys.Done():
			return
		case <-s.stopping:
			return
		case <-deadline.C:
			return
		}
	}
}
