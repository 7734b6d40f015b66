// Package transport moves MCP messages between the client and a server
// process.
//
// # Stdio Transport
//
// StdioTransport spawns the server as a child process and exchanges
// newline-delimited JSON-RPC 2.0 messages over its stdin and stdout:
//
//   - Each outgoing message is written as one line in a single write
//   - Inbound bytes are buffered until a newline completes a record
//   - Malformed records are logged and skipped
//   - Responses are matched to waiting requests by id; every request is
//     settled exactly once, by its response, its timeout (30s by default),
//     the caller's context, process exit or Disconnect
//   - Notifications are queued and delivered to subscribers on a separate
//     goroutine, so a subscriber may send requests of its own
//   - Process exit is noticed even while a grandchild keeps stdout open;
//     writes and requests racing an exit fail as connection errors
//   - stderr is diagnostic only; each line goes to StderrHandler
//   - Disconnect closes stdin, sends SIGTERM and kills the process if it
//     is still running after ShutdownGrace (5s by default)
//
// Requests sent by the server are answered with MethodNotFound.
//
// # Middleware
//
// NewTransport wraps the stdio transport in the middleware enabled by
// TransportConfig.Features:
//
//	cfg := transport.DefaultTransportConfig()
//	cfg.Stdio.Command = "my-mcp-server"
//	cfg.Stdio.Args = []string{"--stdio"}
//	t, err := transport.NewTransport(cfg,
//		transport.WithLogger(logger),
//		transport.WithRecorder(metrics))
//
// ObservabilityMiddleware logs every exchange and reports outcomes to a
// Recorder. ReliabilityMiddleware retries failed process launches and can
// trip a circuit breaker after repeated transport failures. It never
// retries a request.
//
// # Testing
//
// Package transporttest provides an in-memory server that plugs in through
// WithLauncher.
package transport
