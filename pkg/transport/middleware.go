package transport

import (
	"context"

	"github.com/ajitpratap0/mcp-client-go/pkg/logging"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

// Middleware represents a transport middleware that can wrap a transport
// to add additional functionality like reliability, observability, etc.
type Middleware interface {
	// Wrap wraps the given transport with middleware functionality
	Wrap(transport Transport) Transport
}

// MiddlewareFunc is an adapter to allow the use of ordinary functions as middleware
type MiddlewareFunc func(Transport) Transport

// Wrap implements the Middleware interface
func (f MiddlewareFunc) Wrap(t Transport) Transport {
	return f(t)
}

// ChainMiddleware chains multiple middleware together
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(transport Transport) Transport {
		// Apply middleware in reverse order so the first middleware is the outermost
		for i := len(middleware) - 1; i >= 0; i-- {
			transport = middleware[i].Wrap(transport)
		}
		return transport
	})
}

// middlewareTransport delegates everything to next. Middleware embed it
// and override what they need.
type middlewareTransport struct {
	next Transport
}

func (m *middlewareTransport) Connect(ctx context.Context) error {
	return m.next.Connect(ctx)
}

func (m *middlewareTransport) Disconnect(ctx context.Context) error {
	return m.next.Disconnect(ctx)
}

func (m *middlewareTransport) Send(ctx context.Context, msg protocol.Message) (*protocol.Response, error) {
	return m.next.Send(ctx, msg)
}

func (m *middlewareTransport) IsConnected() bool {
	return m.next.IsConnected()
}

func (m *middlewareTransport) OnNotification(handler NotificationHandler) {
	m.next.OnNotification(handler)
}

// MiddlewareBuilder builds middleware from configuration
type MiddlewareBuilder struct {
	config   TransportConfig
	logger   logging.Logger
	recorder Recorder
}

// NewMiddlewareBuilder creates a new middleware builder
func NewMiddlewareBuilder(config TransportConfig, logger logging.Logger, recorder Recorder) *MiddlewareBuilder {
	if logger == nil {
		logger = logging.NewNop()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &MiddlewareBuilder{config: config, logger: logger, recorder: recorder}
}

// Build constructs the middleware chain based on configuration. The
// first element is the outermost layer.
func (mb *MiddlewareBuilder) Build() []Middleware {
	var middleware []Middleware

	// observability sees the final outcome, including circuit rejections
	if mb.config.Features.EnableObservability {
		middleware = append(middleware, NewObservabilityMiddleware(mb.config.Observability, mb.logger, mb.recorder))
	}

	if mb.config.Features.EnableReliability {
		middleware = append(middleware, NewReliabilityMiddleware(mb.config.Reliability, mb.logger))
	}

	return middleware
}
