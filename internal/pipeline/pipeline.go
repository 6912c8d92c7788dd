package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/turbosocket/internal/lifecycle"
	"github.com/GriffinCanCode/turbosocket/internal/queue"
	"github.com/GriffinCanCode/turbosocket/internal/shared/id"
	"github.com/GriffinCanCode/turbosocket/internal/worker"
)

var (
	ErrNilTransport = errors.New("pipeline: transport is nil")
	ErrNilExecutor  = errors.New("pipeline: executor is nil")

	// ErrMalformed marks a read error for input that arrived but could not be
	// decoded. The reader queues it as a command whose reply carries the error.
	ErrMalformed = errors.New("malformed command")
)

// Pipeline runs the reader, executor and writer stages over two FIFO queues.
//
// Only the reader pushes to inbound, only the executor pops inbound and
// pushes outbound, and only the writer pops outbound.
type Pipeline struct {
	name             string
	transport        Transport
	executor         Executor
	logger           *zap.Logger
	metrics          *monitoring.Metrics
	pollInterval     time.Duration
	stopPollInterval time.Duration
	limiter          *rate.Limiter

	guard    *lifecycle.Guard
	shutdown *shutdownFlag
	inbound  *queue.Queue[RawCommand]
	outbound *queue.Queue[Reply]

	// set by the start body, cleared by the stop body; never touched concurrently
	reader *worker.Thread
	exec   *worker.Thread
	writer *worker.Thread

	// closed once by the reader when the transport reports EOF
	eofOnce sync.Once
	eof     chan struct{}

	read        atomic.Int64
	executed    atomic.Int64
	written     atomic.Int64
	dropped     atomic.Int64
	readErrors  atomic.Int64
	writeErrors atomic.Int64
}

// New creates a pipeline in the New state. No goroutine runs until Start.
func New(transport Transport, executor Executor, opts ...Option) (*Pipeline, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	if executor == nil {
		return nil, ErrNilExecutor
	}

	p := &Pipeline{
		name:             "pipeline",
		transport:        transport,
		executor:         executor,
		logger:           zap.NewNop(),
		pollInterval:     DefaultPollInterval,
		stopPollInterval: lifecycle.DefaultPollInterval,
		shutdown:         newShutdownFlag(),
		inbound:          queue.New[RawCommand](),
		outbound:         queue.New[Reply](),
		eof:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.guard = lifecycle.New(
		lifecycle.WithName(p.name),
		lifecycle.WithLogger(p.logger),
		lifecycle.WithPollInterval(p.stopPollInterval),
		lifecycle.WithObserver(p.metrics.LifecycleObserver("pipeline")),
	)
	return p, nil
}

// Name returns the diagnostic name of the pipeline
func (p *Pipeline) Name() string {
	return p.name
}

// Start spawns the three stage threads. Only the first call does anything.
func (p *Pipeline) Start() (bool, error) {
	return p.guard.Start(p.start)
}

// Stop raises the shutdown flag and joins the stage threads in order reader,
// executor, writer. Items still queued are dropped. Concurrent callers wait
// for the first one to finish.
func (p *Pipeline) Stop() (bool, error) {
	return p.guard.Stop(p.stop)
}

// Close stops the pipeline if it is running and ignores any failure
func (p *Pipeline) Close() {
	p.guard.Close(p.Stop)
}

// State returns the lifecycle state
func (p *Pipeline) State() lifecycle.State {
	return p.guard.State()
}

// Shutdown raises the shutdown flag without waiting for the stages to exit.
// Stop still has to be called to join them.
func (p *Pipeline) Shutdown() {
	if p.shutdown.Set() {
		p.inbound.Close()
		p.outbound.Close()
		p.logger.Info("Pipeline shutdown requested", zap.String("pipeline", p.name))
	}
}

// ShuttingDown reports whether the shutdown flag is raised
func (p *Pipeline) ShuttingDown() bool {
	return p.shutdown.IsSet()
}

// TransportClosed is closed when the transport reports io.EOF, meaning no
// more commands will arrive. The pipeline keeps running until Stop.
func (p *Pipeline) TransportClosed() <-chan struct{} {
	return p.eof
}

// Stats returns a snapshot of the pipeline counters
func (p *Pipeline) Stats() Stats {
	return Stats{
		Read:        p.read.Load(),
		Executed:    p.executed.Load(),
		Written:     p.written.Load(),
		Dropped:     p.dropped.Load(),
		ReadErrors:  p.readErrors.Load(),
		WriteErrors: p.writeErrors.Load(),
		Inbound:     p.inbound.Len(),
		Outbound:    p.outbound.Len(),
	}
}

func (p *Pipeline) start() error {
	p.logger.Info("Pipeline starting", zap.String("pipeline", p.name))

	opts := []worker.Option{worker.WithLogger(p.logger), worker.WithMetrics(p.metrics)}
	p.reader = worker.Go(p.name+"/"+StageReader, p.readLoop, opts...)
	p.exec = worker.Go(p.name+"/"+StageExecutor, p.executeLoop, opts...)
	p.writer = worker.Go(p.name+"/"+StageWriter, p.writeLoop, opts...)
	return nil
}

func (p *Pipeline) stop() error {
	p.Shutdown()
	p.logger.Info("Pipeline stopping: joining threads", zap.String("pipeline", p.name))

	var errs error
	for _, th := range []*worker.Thread{p.reader, p.exec, p.writer} {
		if th == nil {
			continue
		}
		errs = multierr.Append(errs, th.Join())
		th.Release()
	}
	p.reader, p.exec, p.writer = nil, nil, nil

	droppedIn := len(p.inbound.Drain())
	droppedOut := len(p.outbound.Drain())
	p.metrics.AddQueueDepth(QueueInbound, -droppedIn)
	p.metrics.AddQueueDepth(QueueOutbound, -droppedOut)
	p.metrics.AddDropped(QueueInbound, droppedIn)
	p.metrics.AddDropped(QueueOutbound, droppedOut)
	p.dropped.Add(int64(droppedIn + droppedOut))

	p.logger.Info("Pipeline stopped",
		zap.String("pipeline", p.name),
		zap.Int64("read", p.read.Load()),
		zap.Int64("executed", p.executed.Load()),
		zap.Int64("written", p.written.Load()),
		zap.Int("dropped_inbound", droppedIn),
		zap.Int("dropped_outbound", droppedOut),
	)
	if errs != nil {
		return fmt.Errorf("pipeline %s: %w", p.name, errs)
	}
	return nil
}

func (p *Pipeline) readLoop() {
	ctx := p.shutdown.Context()

	for !p.shutdown.IsSet() {
		start := time.Now()
		payload, err := p.transport.ReadOne(ctx)
		var decodeErr error
		if err != nil {
			if p.shutdown.IsSet() {
				return
			}
			switch {
			case errors.Is(err, io.EOF):
				p.logger.Info("Transport closed", zap.String("pipeline", p.name))
				p.eofOnce.Do(func() { close(p.eof) })
				return
			case errors.Is(err, ErrMalformed):
				p.logger.Debug("Malformed command", zap.String("pipeline", p.name), zap.Error(err))
				decodeErr = err
			default:
				p.readErrors.Add(1)
				p.logger.Warn("Transport read failed", zap.String("pipeline", p.name), zap.Error(err))
				p.pause()
				continue
			}
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				p.dropped.Add(1)
				p.metrics.AddDropped(QueueInbound, 1)
				return
			}
		}

		cmd := RawCommand{
			ID:       id.NewCommandID(),
			Payload:  payload,
			Err:      decodeErr,
			Received: time.Now(),
		}
		p.inbound.Push(cmd)
		p.metrics.AddQueueDepth(QueueInbound, 1)
		p.metrics.RecordStage(StageReader, time.Since(start))
		p.read.Add(1)

		p.logger.Debug("Command read",
			zap.String("pipeline", p.name),
			zap.Stringer("command_id", cmd.ID),
			zap.Int("bytes", len(payload)),
		)
	}
}

func (p *Pipeline) executeLoop() {
	ctx := p.shutdown.Context()

	for !p.shutdown.IsSet() {
		cmd, ok := p.inbound.PopWait(p.pollInterval)
		if !ok {
			continue
		}
		p.metrics.AddQueueDepth(QueueInbound, -1)

		var reply Reply
		if cmd.Err != nil {
			reply = Reply{ID: cmd.ID, Err: cmd.Err}
		} else {
			timer := monitoring.NewTimer(p.metrics, StageExecutor)
			reply = p.safeExecute(ctx, cmd)
			timer.Stop()
		}

		if reply.ID == "" {
			reply.ID = cmd.ID
		}
		p.outbound.Push(reply)
		p.metrics.AddQueueDepth(QueueOutbound, 1)
		p.executed.Add(1)
	}
}

func (p *Pipeline) writeLoop() {
	ctx := p.shutdown.Context()

	for !p.shutdown.IsSet() {
		reply, ok := p.outbound.PopWait(p.pollInterval)
		if !ok {
			continue
		}
		p.metrics.AddQueueDepth(QueueOutbound, -1)

		timer := monitoring.NewTimer(p.metrics, StageWriter)
		err := p.transport.WriteOne(ctx, reply)
		if err != nil {
			if p.shutdown.IsSet() {
				p.dropped.Add(1)
				p.metrics.AddDropped(QueueOutbound, 1)
				return
			}
			p.writeErrors.Add(1)
			p.logger.Warn("Transport write failed",
				zap.String("pipeline", p.name),
				zap.Stringer("command_id", reply.ID),
				zap.Error(err),
			)
			continue
		}
		timer.Stop()
		p.written.Add(1)
	}
}

// safeExecute turns an executor panic into a failed Reply
func (p *Pipeline) safeExecute(ctx context.Context, cmd RawCommand) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Executor panicked",
				zap.String("pipeline", p.name),
				zap.Stringer("command_id", cmd.ID),
				zap.Any("panic", r),
			)
			reply = Reply{ID: cmd.ID, Err: fmt.Errorf("executor panic: %v", r)}
		}
	}()
	return p.executor.Execute(ctx, cmd)
}

// pause waits one poll interval or until shutdown, whichever comes first
func (p *Pipeline) pause() {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-p.shutdown.Context().Done():
	}
}
