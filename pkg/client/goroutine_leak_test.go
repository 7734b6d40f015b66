package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-client-go/pkg/client"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport/transporttest"
)

func TestClientSessionsDoNotLeakGoroutines(t *testing.T) {
	detector := transporttest.NewLeakDetector(t).AllowGrowth(1)
	detector.Start()

	server := transporttest.NewServer()
	server.Silence("slow")

	cfg := transport.DefaultTransportConfig()
	cfg.Stdio.Command = "fake-server"
	cfg.Stdio.RequestTimeout = 20 * time.Millisecond
	cfg.Stdio.ShutdownGrace = 100 * time.Millisecond

	c, err := client.NewStdioClient(cfg, client.WithTransportOptions(transport.WithLauncher(server.Launcher())))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Connect(context.Background())
		require.NoError(t, err)

		require.NoError(t, c.Ping(context.Background()))
		_, err = c.Invoke(context.Background(), "slow", nil)
		require.Error(t, err)

		require.NoError(t, c.Disconnect(context.Background()))
	}

	detector.Check()
}
