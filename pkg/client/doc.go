// Package client drives an MCP session with a tool server.
//
// A Client moves through Disconnected, Connecting, Handshaking and Ready.
// Connect starts the transport, sends initialize and requires the server
// to answer with exactly the requested protocol version before sending
// notifications/initialized. Requests are only written once the session
// is Ready; before that Invoke fails without touching the transport.
//
//	c, err := client.NewStdioClient(cfg, client.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer c.Disconnect(context.Background())
//
//	info, err := c.Connect(ctx)
//	if err != nil {
//	    return err
//	}
//	tools, err := c.ListAllTools(ctx)
//
// Errors returned by the client are MCPErrors from pkg/errors. An error
// frame from the server keeps the server's code, message and data. Calls
// that need a capability the server did not declare fail with code -32001
// before any I/O.
//
// Each request is traced as a client span named "mcp.<method>" using the
// tracer from WithTracer, or the global provider.
package client
