package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-client-go/pkg/errors"
	"github.com/ajitpratap0/mcp-client-go/pkg/logging"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

// ObservabilityMiddleware logs traffic, reports outcomes to a Recorder and
// keeps an in-process snapshot of per-method counts
type ObservabilityMiddleware struct {
	config   ObservabilityConfig
	metrics  *transportMetrics
	recorder Recorder
	logger   logging.Logger
}

// NewObservabilityMiddleware creates a new observability middleware
func NewObservabilityMiddleware(config ObservabilityConfig, logger logging.Logger, recorder Recorder) *ObservabilityMiddleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &ObservabilityMiddleware{
		config:   config,
		metrics:  newTransportMetrics(),
		recorder: recorder,
		logger:   logger.WithFields(logging.String("component", "observability_middleware")),
	}
}

// Wrap implements the Middleware interface
func (om *ObservabilityMiddleware) Wrap(transport Transport) Transport {
	return &observabilityTransport{
		middlewareTransport: middlewareTransport{next: transport},
		middleware:          om,
	}
}

// Snapshot returns the current per-method counts
func (om *ObservabilityMiddleware) Snapshot() *TransportMetricsSnapshot {
	return om.metrics.snapshot()
}

// observabilityTransport wraps a transport with observability features
type observabilityTransport struct {
	middlewareTransport
	middleware *ObservabilityMiddleware
}

// Connect logs the lifecycle transition
func (ot *observabilityTransport) Connect(ctx context.Context) error {
	start := time.Now()
	err := ot.next.Connect(ctx)

	if err != nil {
		ot.middleware.metrics.connectErrors.Add(1)
		if ot.middleware.config.EnableLogging {
			ot.middleware.logger.WithError(err).Error("connect failed",
				logging.Duration("duration", time.Since(start)))
		}
		return err
	}

	ot.middleware.metrics.setState("connected")
	if ot.middleware.config.EnableLogging {
		ot.middleware.logger.Info("transport connected", logging.Duration("duration", time.Since(start)))
	}
	return nil
}

// Disconnect logs the lifecycle transition
func (ot *observabilityTransport) Disconnect(ctx context.Context) error {
	err := ot.next.Disconnect(ctx)
	ot.middleware.metrics.setState("disconnected")
	if ot.middleware.config.EnableLogging {
		ot.middleware.logger.Info("transport disconnected")
	}
	return err
}

// Send records the outcome and latency of every outgoing message
func (ot *observabilityTransport) Send(ctx context.Context, msg protocol.Message) (*protocol.Response, error) {
	switch m := msg.(type) {
	case *protocol.Request:
		return ot.sendRequest(ctx, m)
	case *protocol.Notification:
		return ot.sendNotification(ctx, m)
	default:
		return ot.next.Send(ctx, msg)
	}
}

func (ot *observabilityTransport) sendRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	om := ot.middleware
	start := time.Now()

	if om.config.EnableLogging {
		om.logger.Debug("sending request",
			logging.String("method", req.Method),
			logging.String("id", req.ID.String()))
	}

	resp, err := ot.next.Send(ctx, req)
	duration := time.Since(start)
	status := requestStatus(resp, err)

	if om.config.EnableMetrics {
		om.metrics.observe(om.metrics.requests, req.Method, status, duration)
		om.recorder.RequestFinished(req.Method, status, duration)
	}

	if om.config.EnableLogging {
		fields := []logging.Field{
			logging.String("method", req.Method),
			logging.String("id", req.ID.String()),
			logging.String("status", status),
			logging.Duration("duration", duration),
		}
		switch {
		case err != nil:
			om.logger.WithError(err).Warn("request failed", fields...)
		case status == StatusRemoteError:
			fields = append(fields, logging.Int("error_code", int(resp.Error.Code)))
			om.logger.Debug("request returned error", fields...)
		default:
			om.logger.Debug("request completed", fields...)
		}
	}

	return resp, err
}

func (ot *observabilityTransport) sendNotification(ctx context.Context, n *protocol.Notification) (*protocol.Response, error) {
	om := ot.middleware
	start := time.Now()

	resp, err := ot.next.Send(ctx, n)
	status := StatusOK
	if err != nil {
		status = StatusError
	}

	if om.config.EnableMetrics {
		om.metrics.observe(om.metrics.notifications, n.Method, status, time.Since(start))
		om.recorder.NotificationSent(n.Method, status)
	}
	if om.config.EnableLogging {
		if err != nil {
			om.logger.WithError(err).Warn("notification failed", logging.String("method", n.Method))
		} else {
			om.logger.Debug("notification sent", logging.String("method", n.Method))
		}
	}
	return resp, err
}

func requestStatus(resp *protocol.Response, err error) string {
	switch {
	case err != nil && mcperrors.IsCode(err, mcperrors.CodeRequestTimeout):
		return StatusTimeout
	case err != nil:
		return StatusError
	case resp != nil && resp.Error != nil:
		return StatusRemoteError
	default:
		return StatusOK
	}
}

// transportMetrics holds per-method counters
type transportMetrics struct {
	requests      map[string]*methodCounters
	notifications map[string]*methodCounters
	connectErrors atomic.Int64
	state         string

	mu sync.RWMutex
}

type methodCounters struct {
	total    atomic.Int64
	success  atomic.Int64
	errors   atomic.Int64
	duration durationTracker
}

func newTransportMetrics() *transportMetrics {
	return &transportMetrics{
		requests:      make(map[string]*methodCounters),
		notifications: make(map[string]*methodCounters),
		state:         "disconnected",
	}
}

func (tm *transportMetrics) setState(state string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.state = state
}

func (tm *transportMetrics) observe(counters map[string]*methodCounters, method, status string, d time.Duration) {
	c := tm.getOrCreate(counters, method)
	c.total.Add(1)
	if status == StatusOK {
		c.success.Add(1)
	} else {
		c.errors.Add(1)
	}
	c.duration.observe(d)
}

// getOrCreate gets or creates the counters for a method
func (tm *transportMetrics) getOrCreate(counters map[string]*methodCounters, method string) *methodCounters {
	tm.mu.RLock()
	if c, exists := counters[method]; exists {
		tm.mu.RUnlock()
		return c
	}
	tm.mu.RUnlock()

	tm.mu.Lock()
	defer tm.mu.Unlock()
	// Double-check after acquiring write lock
	if c, exists := counters[method]; exists {
		return c
	}

	c := &methodCounters{}
	counters[method] = c
	return c
}

// durationTracker tracks duration statistics
type durationTracker struct {
	count   atomic.Int64
	totalNs atomic.Int64
	minNs   atomic.Int64
	maxNs   atomic.Int64
	mu      sync.Mutex
}

func (dt *durationTracker) observe(duration time.Duration) {
	nanos := duration.Nanoseconds()

	dt.count.Add(1)
	dt.totalNs.Add(nanos)

	dt.mu.Lock()
	if current := dt.minNs.Load(); current == 0 || nanos < current {
		dt.minNs.Store(nanos)
	}
	if current := dt.maxNs.Load(); nanos > current {
		dt.maxNs.Store(nanos)
	}
	dt.mu.Unlock()
}

func (dt *durationTracker) stats() DurationMetrics {
	c := dt.count.Load()
	if c == 0 {
		return DurationMetrics{}
	}

	totalNs := dt.totalNs.Load()
	return DurationMetrics{
		Count: c,
		Total: time.Duration(totalNs),
		Min:   time.Duration(dt.minNs.Load()),
		Max:   time.Duration(dt.maxNs.Load()),
		Avg:   time.Duration(totalNs / c),
	}
}

// TransportMetricsSnapshot represents a point-in-time view of transport metrics
type TransportMetricsSnapshot struct {
	TransportState string                   `json:"transport_state"`
	Requests       map[string]MethodMetrics `json:"requests"`
	Notifications  map[string]MethodMetrics `json:"notifications"`
	ConnectErrors  int64                    `json:"connect_errors"`
}

// MethodMetrics represents metrics for a specific method
type MethodMetrics struct {
	Total    int64           `json:"total"`
	Success  int64           `json:"success"`
	Errors   int64           `json:"errors"`
	Duration DurationMetrics `json:"duration"`
}

// DurationMetrics represents duration statistics
type DurationMetrics struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

func (tm *transportMetrics) snapshot() *TransportMetricsSnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	collect := func(counters map[string]*methodCounters) map[string]MethodMetrics {
		out := make(map[string]MethodMetrics, len(counters))
		for method, c := range counters {
			out[method] = MethodMetrics{
				Total:    c.total.Load(),
				Success:  c.success.Load(),
				Errors:   c.errors.Load(),
				Duration: c.duration.stats(),
			}
		}
		return out
	}

	return &TransportMetricsSnapshot{
		TransportState: tm.state,
		Requests:       collect(tm.requests),
		Notifications:  collect(tm.notifications),
		ConnectErrors:  tm.connectErrors.Load(),
	}
}

// String provides a human-readable representation of the metrics
func (snapshot *TransportMetricsSnapshot) String() string {
	return fmt.Sprintf("TransportMetrics{state=%s, requests=%d methods, notifications=%d methods, connect_errors=%d}",
		snapshot.TransportState,
		len(snapshot.Requests),
		len(snapshot.Notifications),
		snapshot.ConnectErrors)
}
