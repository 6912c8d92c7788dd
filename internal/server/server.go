package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/config"
	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/logging"
	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/turbosocket/internal/lifecycle"
	"github.com/GriffinCanCode/turbosocket/internal/middleware"
	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
	"github.com/GriffinCanCode/turbosocket/internal/service"
	"github.com/GriffinCanCode/turbosocket/internal/shared/id"
	"github.com/GriffinCanCode/turbosocket/internal/transport"
	"github.com/GriffinCanCode/turbosocket/internal/worker"
)

// Connection kinds, used as metric labels and span names
const (
	KindTCP       = "tcp"
	KindWebSocket = "websocket"
)

// closableTransport is a transport that owns a network connection
type closableTransport interface {
	pipeline.Transport
	Close() error
}

// Server serves command streams over WebSocket and raw TCP, one
// service.System per connection, next to health and metrics endpoints.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	log      *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	registry *service.Registry
	framing  transport.Framing
	upgrader websocket.Upgrader

	router *gin.Engine
	http   *http.Server
	tcp    *transport.Listener
	guard  *lifecycle.Guard
	errs   chan error

	// set by the start body, read after Running
	httpLn     net.Listener
	httpThread *worker.Thread

	mu        sync.Mutex
	accepting bool
	stopping  chan struct{}
	sessions  sync.WaitGroup
}

// New creates a server from a validated configuration. Nothing listens
// until Start.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	framing, err := transport.NewFraming(cfg.Pipeline.Framing)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		log:      logger.Component("server"),
		metrics:  metrics,
		tracer:   tracing.New("turbosocket", logger.Component("tracing")),
		registry: service.NewRegistry(),
		framing:  framing,
		errs:     make(chan error, 1),
		stopping: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.guard = lifecycle.New(
		lifecycle.WithName("server"),
		lifecycle.WithLogger(s.log),
		lifecycle.WithPollInterval(cfg.Pipeline.StopPollInterval.Std()),
		lifecycle.WithObserver(metrics.LifecycleObserver("server")),
	)

	s.router = s.routes()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.TCPAddr != "" {
		s.tcp = transport.NewListener(cfg.Server.TCPAddr, s.handleTCP,
			transport.WithListenerLogger(logger.Component("listener")),
			transport.WithListenerMetrics(metrics),
			transport.WithMaxConns(cfg.Server.MaxConns),
		)
	}

	s.log.Info("Server initialized",
		zap.String("instance", id.Instance()),
		zap.String("http_addr", cfg.Server.Addr()),
		zap.String("tcp_addr", cfg.Server.TCPAddr),
		zap.String("executor", cfg.Pipeline.Executor),
		zap.String("framing", framing.Name()),
	)
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if !s.cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(s.cfg.Server.CORSOrigins)))
	if s.cfg.RateLimit.Enabled {
		s.log.Info("Rate limiting enabled",
			zap.Int("rps", s.cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(s.rateLimit()))
	}
	router.Use(middleware.Gzip(gzip.DefaultCompression, "/metrics", "/stream"))

	stream := []gin.HandlerFunc{s.handleStream}
	if perSecond := s.cfg.Server.ConnRate; perSecond > 0 {
		limit := middleware.GlobalRateLimit(middleware.RateLimitConfig{RequestsPerSecond: perSecond, Burst: perSecond})
		stream = append([]gin.HandlerFunc{limit}, stream...)
	}

	router.GET("/health", s.handleHealth)
	router.GET("/systems", s.handleSystems)
	router.GET("/systems/:id", s.handleSystem)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/stream", stream...)
	return router
}

// Handler returns the HTTP handler, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the HTTP and TCP listeners and serves them on managed threads.
// Only the first call does anything.
func (s *Server) Start() (bool, error) {
	return s.guard.Start(s.start)
}

// Stop shuts the listeners down, stops every live connection and waits for
// their handlers to return. Concurrent callers wait for the first one.
func (s *Server) Stop() (bool, error) {
	return s.guard.Stop(s.stop)
}

// Close stops the server if it is running, ignoring errors
func (s *Server) Close() {
	s.guard.Close(s.Stop)
}

// State returns the lifecycle state of the server
func (s *Server) State() lifecycle.State {
	return s.guard.State()
}

// Err delivers the first fatal serving error
func (s *Server) Err() <-chan error {
	return s.errs
}

// HTTPAddr returns the bound HTTP address, or nil when not running
func (s *Server) HTTPAddr() net.Addr {
	if s.guard.State() != lifecycle.StateRunning || s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

// TCPAddr returns the bound raw TCP address, or nil when disabled or not running
func (s *Server) TCPAddr() net.Addr {
	if s.tcp == nil {
		return nil
	}
	return s.tcp.Addr()
}

// Registry returns the live connection registry
func (s *Server) Registry() *service.Registry {
	return s.registry
}

func (s *Server) start() error {
	s.mu.Lock()
	s.accepting = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	s.httpLn = ln
	s.httpThread = worker.Go("server/http", func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(fmt.Errorf("serve http: %w", err))
		}
	}, worker.WithLogger(s.log), worker.WithMetrics(s.metrics))
	s.log.Info("Starting HTTP server", zap.Stringer("addr", ln.Addr()))

	if s.tcp != nil {
		if _, err := s.tcp.Start(); err != nil {
			return fmt.Errorf("listen tcp: %w", err)
		}
	}
	return nil
}

func (s *Server) stop() error {
	s.log.Info("Shutting down server...")

	s.mu.Lock()
	s.accepting = false
	close(s.stopping)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	var errs error
	if s.httpLn != nil {
		errs = multierr.Append(errs, s.http.Shutdown(ctx))
		errs = multierr.Append(errs, s.httpThread.Join())
		s.httpThread.Release()
	}
	if s.tcp != nil {
		_, err := s.tcp.Stop()
		errs = multierr.Append(errs, err)
	}

	errs = multierr.Append(errs, s.registry.StopAll())
	s.sessions.Wait()
	errs = multierr.Append(errs, s.tracer.Close())

	_ = s.logger.Sync()
	if errs != nil {
		s.log.Error("Server stopped with errors", zap.Error(errs))
		return errs
	}
	s.log.Info("Server stopped")
	return nil
}

func (s *Server) fail(err error) {
	s.log.Error("Server error", zap.Error(err))
	select {
	case s.errs <- err:
	default:
	}
}

// admit registers a session unless the server is shutting down
func (s *Server) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accepting {
		return false
	}
	s.sessions.Add(1)
	return true
}

func (s *Server) handleTCP(conn net.Conn) {
	tr := transport.NewConn(conn, s.framing, s.cfg.Pipeline.PollInterval.Std())
	s.serve(context.Background(), KindTCP, tr, conn.RemoteAddr().String())
}

func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	s.serve(c.Request.Context(), KindWebSocket, transport.NewWebSocket(conn), c.ClientIP())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"instance":    id.Instance(),
		"state":       s.guard.State().String(),
		"uptime":      s.metrics.Uptime().Round(time.Millisecond).String(),
		"connections": s.registry.Count(),
		"systems":     s.registry.Stats(),
		"executor":    s.cfg.Pipeline.Executor,
		"framing":     s.framing.Name(),
	})
}

func (s *Server) handleSystems(c *gin.Context) {
	systems := s.registry.List()
	if systems == nil {
		systems = []service.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"systems": systems})
}

func (s *Server) handleSystem(c *gin.Context) {
	systemID, err := id.ParseConnectionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sys, ok := s.registry.Get(systemID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "system not found"})
		return
	}
	c.JSON(http.StatusOK, sys.Info())
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origins := s.cfg.Server.CORSOrigins
	origin := r.Header.Get("Origin")
	return origin == "" || len(origins) == 0 || slices.Contains(origins, "*") || slices.Contains(origins, origin)
}

func (s *Server) rateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		RequestsPerSecond: s.cfg.RateLimit.RequestsPerSecond,
		Burst:             s.cfg.RateLimit.Burst,
	}
}
