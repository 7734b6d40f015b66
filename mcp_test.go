package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-client-go/pkg/client"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport/transporttest"
)

func TestExportsConnect(t *testing.T) {
	server := transporttest.NewServer()

	cfg := DefaultTransportConfig()
	cfg.Stdio.Command = "fake-server"

	c, err := NewStdioClient(cfg,
		WithClientName("exports"),
		client.WithTransportOptions(transport.WithLauncher(server.Launcher())),
	)
	require.NoError(t, err)
	defer c.Disconnect(context.Background())

	_, err = c.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, c.HasCapability(CapabilityTools))
	assert.Equal(t, "2024-11-05", ProtocolVersion)
}
