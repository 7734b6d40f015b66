// Package mcp is a Model Context Protocol client for tool servers that
// run as child processes.
//
// The module is split into sub-packages:
//
//   - pkg/protocol: JSON-RPC 2.0 messages and the MCP payload types
//   - pkg/transport: the stdio transport, its middleware and an in-memory
//     test server in transporttest
//   - pkg/client: the session controller (handshake, requests, tools)
//   - pkg/errors: the error taxonomy shared by every package
//   - pkg/logging: structured logging
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//   - pkg/config: TOML configuration with an environment overlay
//
// # Connecting to a server
//
//	cfg := mcp.DefaultTransportConfig()
//	cfg.Stdio.Command = "mcp-server-files"
//	cfg.Stdio.Args = []string{"--root", "/srv"}
//
//	c, err := mcp.NewStdioClient(cfg, mcp.WithClientName("agent"))
//	if err != nil {
//	    return err
//	}
//	defer c.Disconnect(context.Background())
//
//	if _, err := c.Connect(ctx); err != nil {
//	    return err
//	}
//
//	tools, err := c.ListAllTools(ctx)
//	if err != nil {
//	    return err
//	}
//	result, err := c.CallTool(ctx, tools[0].Name, map[string]string{"path": "README.md"})
//
// Connect fails with a validation error when the server answers with a
// different protocol version. Tool calls fail before any I/O when the
// server did not declare the tools capability.
package mcp
