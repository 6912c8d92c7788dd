package transport

import (
	"errors"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/turbosocket/internal/lifecycle"
	"github.com/GriffinCanCode/turbosocket/internal/worker"
)

// acceptBackoff is the pause after a temporary accept failure
const acceptBackoff = 50 * time.Millisecond

// Listener accepts raw stream connections and hands each one to a handler
// on its own goroutine. The handler owns the connection.
type Listener struct {
	addr     string
	handle   func(net.Conn)
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	maxConns int

	guard    *lifecycle.Guard
	ln       net.Listener
	acceptor *worker.Thread
	closing  atomic.Bool
	accepted atomic.Int64
}

// ListenerOption configures a Listener
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger
func WithListenerLogger(logger *zap.Logger) ListenerOption {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithListenerMetrics records lifecycle and thread metrics
func WithListenerMetrics(metrics *monitoring.Metrics) ListenerOption {
	return func(l *Listener) { l.metrics = metrics }
}

// WithMaxConns caps concurrently open connections; 0 means unlimited
func WithMaxConns(n int) ListenerOption {
	return func(l *Listener) { l.maxConns = n }
}

// NewListener creates a listener for addr. Nothing is bound until Start.
func NewListener(addr string, handle func(net.Conn), opts ...ListenerOption) *Listener {
	l := &Listener{
		addr:   addr,
		handle: handle,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.guard = lifecycle.New(
		lifecycle.WithName("listener "+addr),
		lifecycle.WithLogger(l.logger),
		lifecycle.WithObserver(l.metrics.LifecycleObserver("listener")),
	)
	return l
}

// Start binds the address and starts the accept thread
func (l *Listener) Start() (bool, error) {
	return l.guard.Start(l.start)
}

// Stop closes the listening socket and joins the accept thread. Connections
// already handed out are not touched.
func (l *Listener) Stop() (bool, error) {
	return l.guard.Stop(l.stop)
}

// Close stops the listener if running, ignoring errors
func (l *Listener) Close() {
	l.guard.Close(l.Stop)
}

// Addr returns the bound address, or nil before Start
func (l *Listener) Addr() net.Addr {
	if l.guard.State() != lifecycle.StateRunning || l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Accepted returns the number of connections accepted so far
func (l *Listener) Accepted() int64 {
	return l.accepted.Load()
}

func (l *Listener) start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	if l.maxConns > 0 {
		ln = netutil.LimitListener(ln, l.maxConns)
	}
	l.ln = ln
	l.acceptor = worker.Go("listener/accept", l.acceptLoop,
		worker.WithLogger(l.logger), worker.WithMetrics(l.metrics))

	l.logger.Info("Listening", zap.Stringer("addr", ln.Addr()), zap.Int("max_conns", l.maxConns))
	return nil
}

func (l *Listener) stop() error {
	if l.ln == nil {
		return nil
	}
	l.closing.Store(true)
	err := l.ln.Close()
	if l.acceptor != nil {
		if jerr := l.acceptor.Join(); jerr != nil && err == nil {
			err = jerr
		}
		l.acceptor.Release()
	}
	l.logger.Info("Listener stopped", zap.Int64("accepted", l.accepted.Load()))
	return err
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closing.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("Accept failed", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}
		l.accepted.Add(1)
		go l.handle(conn)
	}
}
