package transport

import (
	"context"
	"time"

	"github.com/ajitpratap0/mcp-client-go/pkg/logging"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

// Transport is the capability the session controller needs from a
// message channel.
type Transport interface {
	// Connect establishes the channel, e.g. by spawning the server process
	Connect(ctx context.Context) error

	// Disconnect tears the channel down. It is idempotent and fails every
	// request still waiting for a response.
	Disconnect(ctx context.Context) error

	// Send transmits msg. For a Request it blocks until the matching
	// Response arrives, the request times out, the channel is torn down
	// or ctx is done. For a Notification it returns once the bytes are
	// written, with a nil Response.
	Send(ctx context.Context, msg protocol.Message) (*protocol.Response, error)

	// IsConnected reports whether the channel can carry messages
	IsConnected() bool

	// OnNotification appends a subscriber for notifications from the peer.
	// Subscribers run in registration order.
	OnNotification(handler NotificationHandler)
}

// NotificationHandler handles an incoming notification. A returned error
// or a panic is logged and does not affect other subscribers.
type NotificationHandler func(ctx context.Context, n *protocol.Notification) error

// Recorder receives transport events for metrics. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RequestFinished(method, status string, duration time.Duration)
	NotificationSent(method, status string)
	NotificationReceived(method string)
	PendingRequests(n int)
	DecodeError()
	StaleResponse()
	ProcessStarted()
	ProcessExited(exitCode int, expected bool)
}

// NopRecorder discards all events
type NopRecorder struct{}

func (NopRecorder) RequestFinished(string, string, time.Duration) {}
func (NopRecorder) NotificationSent(string, string)               {}
func (NopRecorder) NotificationReceived(string)                   {}
func (NopRecorder) PendingRequests(int)                           {}
func (NopRecorder) DecodeError()                                  {}
func (NopRecorder) StaleResponse()                                {}
func (NopRecorder) ProcessStarted()                               {}
func (NopRecorder) ProcessExited(int, bool)                       {}

// Request outcome labels used by Recorder.RequestFinished
const (
	StatusOK          = "ok"
	StatusRemoteError = "remote_error"
	StatusTimeout     = "timeout"
	StatusError       = "error"
)

// TransportConfig is the unified configuration for the transport and
// its middleware
type TransportConfig struct {
	Stdio StdioConfig `json:"stdio" toml:"stdio"`

	// Feature configuration
	Features FeatureConfig `json:"features" toml:"features"`

	Reliability   ReliabilityConfig   `json:"reliability" toml:"reliability"`
	Observability ObservabilityConfig `json:"observability" toml:"observability"`
}

// FeatureConfig controls which middleware are enabled
type FeatureConfig struct {
	EnableReliability   bool `json:"enable_reliability" toml:"enable_reliability"`
	EnableObservability bool `json:"enable_observability" toml:"enable_observability"`
}

// ReliabilityConfig for connect retries and circuit breaking
type ReliabilityConfig struct {
	// MaxRetries bounds extra attempts to spawn the server process
	MaxRetries         int                  `json:"max_retries" toml:"max_retries"`
	InitialRetryDelay  time.Duration        `json:"initial_retry_delay" toml:"initial_retry_delay"`
	MaxRetryDelay      time.Duration        `json:"max_retry_delay" toml:"max_retry_delay"`
	RetryBackoffFactor float64              `json:"retry_backoff_factor" toml:"retry_backoff_factor"`
	CircuitBreaker     CircuitBreakerConfig `json:"circuit_breaker" toml:"circuit_breaker"`
}

// CircuitBreakerConfig for circuit breaker pattern
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" toml:"enabled"`
	FailureThreshold int           `json:"failure_threshold" toml:"failure_threshold"`
	SuccessThreshold int           `json:"success_threshold" toml:"success_threshold"`
	Timeout          time.Duration `json:"timeout" toml:"timeout"`
}

// ObservabilityConfig for metrics and logging
type ObservabilityConfig struct {
	EnableMetrics bool `json:"enable_metrics" toml:"enable_metrics"`
	EnableLogging bool `json:"enable_logging" toml:"enable_logging"`
}

// Option configures NewTransport and NewStdioTransport
type Option func(*options)

type options struct {
	logger   logging.Logger
	recorder Recorder
	launcher Launcher
}

// WithLogger sets the logger used by the transport and its middleware
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder Recorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.recorder = recorder
		}
	}
}

// WithLauncher replaces the process launcher, e.g. with an in-memory
// server for tests
func WithLauncher(launcher Launcher) Option {
	return func(o *options) {
		if launcher != nil {
			o.launcher = launcher
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   logging.NewNop(),
		recorder: NopRecorder{},
		launcher: ExecLauncher{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewTransport creates a stdio transport wrapped in the middleware enabled
// by config
func NewTransport(config TransportConfig, opts ...Option) (Transport, error) {
	base, err := NewStdioTransport(config.Stdio, opts...)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	builder := NewMiddlewareBuilder(config, o.logger, o.recorder)
	return ChainMiddleware(builder.Build()...).Wrap(base), nil
}

// DefaultTransportConfig returns a transport configuration with sensible defaults
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Stdio: DefaultStdioConfig(),
		Features: FeatureConfig{
			EnableReliability:   true,
			EnableObservability: true,
		},
		Reliability: ReliabilityConfig{
			MaxRetries:         0,
			InitialRetryDelay:  100 * time.Millisecond,
			MaxRetryDelay:      2 * time.Second,
			RetryBackoffFactor: 2.0,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          false,
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          30 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableLogging: true,
		},
	}
}
