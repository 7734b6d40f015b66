package client

import (
	"encoding/json"

	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/mcp-client-go/pkg/logging"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
)

// Option configures a Client
type Option func(*Client)

// WithName sets the client name sent in clientInfo
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// WithVersion sets the client version sent in clientInfo
func WithVersion(version string) Option {
	return func(c *Client) {
		c.version = version
	}
}

// WithProtocolVersion overrides the protocol revision the client requests.
// The server must answer with exactly this value.
func WithProtocolVersion(version string) Option {
	return func(c *Client) {
		c.protocolVersion = version
	}
}

// WithCapability declares a client capability. A nil descriptor is sent
// as an empty object.
func WithCapability(name protocol.CapabilityType, descriptor json.RawMessage) Option {
	return func(c *Client) {
		if c.capabilities == nil {
			c.capabilities = protocol.Capabilities{}
		}
		if descriptor == nil {
			descriptor = json.RawMessage(`{}`)
		}
		c.capabilities[string(name)] = descriptor
	}
}

// WithCapabilities replaces the declared client capabilities entirely
func WithCapabilities(caps protocol.Capabilities) Option {
	return func(c *Client) {
		c.capabilities = caps.Clone()
	}
}

// WithLogger sets the client logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for request spans. The global
// provider's tracer is used otherwise.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithTransportOptions passes options to the transport built by
// NewStdioClient. It has no effect on New.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, opts...)
	}
}
