package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
)

// MetricsConfig configures the Prometheus collectors
type MetricsConfig struct {
	Namespace        string            `toml:"namespace"`
	Subsystem        string            `toml:"subsystem"`
	HistogramBuckets []float64         `toml:"buckets"`
	ConstLabels      prometheus.Labels `toml:"labels"`

	// Registry receives the collectors. A private registry is created
	// when nil.
	Registry *prometheus.Registry `toml:"-"`
}

// Metrics records transport and session events as Prometheus metrics.
// It implements transport.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	notificationSent *prometheus.CounterVec
	notificationRecv *prometheus.CounterVec
	pendingRequests  prometheus.Gauge
	decodeErrors     prometheus.Counter
	staleResponses   prometheus.Counter
	processStarts    prometheus.Counter
	processExits     *prometheus.CounterVec
	runningProcesses prometheus.Gauge
}

var _ transport.Recorder = (*Metrics)(nil)

// NewMetrics creates and registers the collectors. Registering twice
// against the same registry reuses the existing collectors.
func NewMetrics(config MetricsConfig) (*Metrics, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.Subsystem == "" {
		config.Subsystem = "client"
	}
	if config.HistogramBuckets == nil {
		// milliseconds
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}

	m := &Metrics{registry: config.Registry}

	durationOpts := prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "request_duration_milliseconds",
		Help:        "Duration of MCP requests in milliseconds",
		Buckets:     config.HistogramBuckets,
		ConstLabels: config.ConstLabels,
	}

	var err error
	register := func(c prometheus.Collector) prometheus.Collector {
		if err != nil {
			return c
		}
		var got prometheus.Collector
		got, err = registerOrReuse(config.Registry, c)
		return got
	}

	m.requestDuration = register(prometheus.NewHistogramVec(durationOpts, []string{"method", "status"})).(*prometheus.HistogramVec)
	m.requestTotal = register(prometheus.NewCounterVec(
		prometheus.CounterOpts(opts("requests_total", "Total number of MCP requests by outcome")),
		[]string{"method", "status"})).(*prometheus.CounterVec)
	m.notificationSent = register(prometheus.NewCounterVec(
		prometheus.CounterOpts(opts("notifications_sent_total", "Notifications written to the server")),
		[]string{"method", "status"})).(*prometheus.CounterVec)
	m.notificationRecv = register(prometheus.NewCounterVec(
		prometheus.CounterOpts(opts("notifications_received_total", "Notifications read from the server")),
		[]string{"method"})).(*prometheus.CounterVec)
	m.pendingRequests = register(prometheus.NewGauge(
		prometheus.GaugeOpts(opts("pending_requests", "Requests awaiting a response")))).(prometheus.Gauge)
	m.decodeErrors = register(prometheus.NewCounter(
		prometheus.CounterOpts(opts("decode_errors_total", "Lines from the server that were not valid messages")))).(prometheus.Counter)
	m.staleResponses = register(prometheus.NewCounter(
		prometheus.CounterOpts(opts("stale_responses_total", "Responses that matched no pending request")))).(prometheus.Counter)
	m.processStarts = register(prometheus.NewCounter(
		prometheus.CounterOpts(opts("process_starts_total", "Server processes launched")))).(prometheus.Counter)
	m.processExits = register(prometheus.NewCounterVec(
		prometheus.CounterOpts(opts("process_exits_total", "Server process exits")),
		[]string{"reason", "code"})).(*prometheus.CounterVec)
	m.runningProcesses = register(prometheus.NewGauge(
		prometheus.GaugeOpts(opts("running_processes", "Server processes currently running")))).(prometheus.Gauge)

	if err != nil {
		return nil, err
	}
	return m, nil
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return c, err
	}
	return c, nil
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RequestFinished(method, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, status).Observe(float64(duration.Milliseconds()))
	m.requestTotal.WithLabelValues(method, status).Inc()
}

func (m *Metrics) NotificationSent(method, status string) {
	m.notificationSent.WithLabelValues(method, status).Inc()
}

func (m *Metrics) NotificationReceived(method string) {
	m.notificationRecv.WithLabelValues(method).Inc()
}

func (m *Metrics) PendingRequests(n int) {
	m.pendingRequests.Set(float64(n))
}

func (m *Metrics) DecodeError() {
	m.decodeErrors.Inc()
}

func (m *Metrics) StaleResponse() {
	m.staleResponses.Inc()
}

func (m *Metrics) ProcessStarted() {
	m.processStarts.Inc()
	m.runningProcesses.Inc()
}

// ProcessExited counts an exit. Exits during Disconnect are "shutdown";
// anything else is "crash".
func (m *Metrics) ProcessExited(exitCode int, expected bool) {
	reason := "crash"
	if expected {
		reason = "shutdown"
	}
	m.processExits.WithLabelValues(reason, strconv.Itoa(exitCode)).Inc()
	m.runningProcesses.Dec()
}
