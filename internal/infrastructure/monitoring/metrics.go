package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/turbosocket/internal/lifecycle"
)

// Metrics holds all Prometheus metrics.
//
// Every method is safe on a nil *Metrics, so components can be built without
// monitoring in tests.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Lifecycle metrics
	Transitions *prometheus.CounterVec

	// Pipeline metrics
	StageItems    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Dropped       *prometheus.CounterVec
	QueueDepth    *prometheus.GaugeVec
	ThreadsActive prometheus.Gauge

	// Connection metrics
	Connections *prometheus.GaugeVec

	startTime time.Time
}

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turbosocket_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turbosocket_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turbosocket_lifecycle_transitions_total",
				Help: "Lifecycle state transitions by component and target state",
			},
			[]string{"component", "state"},
		),

		StageItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turbosocket_pipeline_items_total",
				Help: "Items handled by each pipeline stage",
			},
			[]string{"stage"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turbosocket_pipeline_stage_duration_seconds",
				Help:    "Time spent in the external call of each pipeline stage",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"stage"},
		),
		Dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turbosocket_pipeline_dropped_total",
				Help: "Items left in a queue at shutdown",
			},
			[]string{"queue"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turbosocket_pipeline_queue_depth",
				Help: "Items currently waiting in pipeline queues",
			},
			[]string{"queue"},
		),
		ThreadsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "turbosocket_threads_active",
				Help: "Managed threads that have been created and not yet joined",
			},
		),

		Connections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turbosocket_connections_active",
				Help: "Active client connections by transport",
			},
			[]string{"transport"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "turbosocket_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Uptime returns time since the metrics were created
func (m *Metrics) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// LifecycleObserver returns a lifecycle.Observer that counts transitions
func (m *Metrics) LifecycleObserver(component string) lifecycle.Observer {
	return func(_ string, _, to lifecycle.State) {
		if m == nil {
			return
		}
		m.Transitions.WithLabelValues(component, to.String()).Inc()
	}
}

// RecordStage records one item handled by a pipeline stage
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StageItems.WithLabelValues(stage).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// AddDropped counts items discarded from a queue at shutdown
func (m *Metrics) AddDropped(queue string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Dropped.WithLabelValues(queue).Add(float64(n))
}

// AddQueueDepth adjusts the depth gauge of a queue by delta
func (m *Metrics) AddQueueDepth(queue string, delta int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue).Add(float64(delta))
}

// ThreadStarted increments the active thread gauge
func (m *Metrics) ThreadStarted() {
	if m == nil {
		return
	}
	m.ThreadsActive.Inc()
}

// ThreadJoined decrements the active thread gauge
func (m *Metrics) ThreadJoined() {
	if m == nil {
		return
	}
	m.ThreadsActive.Dec()
}

// IncConnections increments active connections for a transport
func (m *Metrics) IncConnections(transport string) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues(transport).Inc()
}

// DecConnections decrements active connections for a transport
func (m *Metrics) DecConnections(transport string) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues(transport).Dec()
}
