package client

import (
	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
)

// NewStdioClient builds a client over a stdio transport wrapped in the
// middleware cfg enables. The server process is started by Connect.
func NewStdioClient(cfg transport.TransportConfig, opts ...Option) (*Client, error) {
	c := newClient(opts)

	topts := append([]transport.Option{transport.WithLogger(c.logger)}, c.transportOpts...)
	t, err := transport.NewTransport(cfg, topts...)
	if err != nil {
		return nil, err
	}
	c.transport = t
	return c, nil
}
