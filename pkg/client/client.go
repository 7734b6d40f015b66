package client

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	mcperrors "github.com/ajitpratap0/mcp-client-go/pkg/errors"
	"github.com/ajitpratap0/mcp-client-go/pkg/logging"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
)

const (
	// DefaultClientName is reported in clientInfo unless WithName is used
	DefaultClientName = "ClaudeAgents"
	// DefaultClientVersion is reported in clientInfo unless WithVersion is used
	DefaultClientVersion = "1.0.0"

	tracerName = "github.com/ajitpratap0/mcp-client-go/pkg/client"
)

// State is the lifecycle stage of a session
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client drives one MCP session over a Transport. It is safe for
// concurrent use once connected.
type Client struct {
	transport       transport.Transport
	transportOpts   []transport.Option
	name            string
	version         string
	protocolVersion string
	capabilities    protocol.Capabilities
	logger          logging.Logger
	tracer          trace.Tracer

	mu           sync.RWMutex
	state        State
	serverInfo   *protocol.Implementation
	serverCaps   protocol.Capabilities
	instructions string
	sessionID    string

	nextID atomic.Int64
}

// New creates a client that talks over t. The session is not started
// until Connect.
func New(t transport.Transport, opts ...Option) *Client {
	c := newClient(opts)
	c.transport = t
	return c
}

func newClient(opts []Option) *Client {
	c := &Client{
		name:            DefaultClientName,
		version:         DefaultClientVersion,
		protocolVersion: protocol.DefaultProtocolVersion,
		capabilities:    protocol.DefaultClientCapabilities(),
		logger:          logging.NewNop(),
		tracer:          otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(logging.String("component", "client"))
	return c
}

// Connect starts the transport and performs the initialize handshake.
// It returns the server's identity once the session is ready.
func (c *Client) Connect(ctx context.Context) (*protocol.Implementation, error) {
	if c.transport == nil {
		return nil, mcperrors.NoTransport()
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return nil, mcperrors.AlreadyConnected(state.String())
	}
	c.state = StateConnecting
	c.sessionID = uuid.NewString()
	sessionID := c.sessionID
	c.mu.Unlock()

	logger := c.logger.WithFields(logging.String("session_id", sessionID))

	if err := c.transport.Connect(ctx); err != nil {
		c.setState(StateDisconnected)
		logger.WithError(err).Error("transport connect failed")
		return nil, err
	}
	c.setState(StateHandshaking)

	result, err := c.handshake(ctx, sessionID)
	if err != nil {
		// the transport stays up; Disconnect tears it down
		c.setState(StateDisconnected)
		logger.WithError(err).Error("handshake failed")
		return nil, err
	}

	c.mu.Lock()
	c.serverInfo = &result.ServerInfo
	c.serverCaps = result.Capabilities.Clone()
	if c.serverCaps == nil {
		c.serverCaps = protocol.Capabilities{}
	}
	c.instructions = result.Instructions
	c.state = StateReady
	c.mu.Unlock()

	logger.Info("session ready",
		logging.String("server", result.ServerInfo.Name),
		logging.String("server_version", result.ServerInfo.Version),
		logging.String("protocol_version", result.ProtocolVersion),
		logging.Any("capabilities", result.Capabilities.Names()))

	info := result.ServerInfo
	return &info, nil
}

// handshake sends initialize, checks the protocol version and announces
// initialized. Nothing is recorded on the client here.
func (c *Client) handshake(ctx context.Context, sessionID string) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProtocolVersion: c.protocolVersion,
		Capabilities:    c.capabilities.Clone(),
		ClientInfo: protocol.Implementation{
			Name:    c.name,
			Version: c.version,
		},
	}
	if params.Capabilities == nil {
		params.Capabilities = protocol.Capabilities{}
	}

	raw, err := c.call(ctx, sessionID, protocol.MethodInitialize, params)
	if err != nil {
		return nil, err
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.InvalidResponse(protocol.MethodInitialize, err)
	}

	if result.ProtocolVersion != c.protocolVersion {
		return nil, mcperrors.VersionMismatch(c.protocolVersion, result.ProtocolVersion).
			WithContext(&mcperrors.Context{
				SessionID: sessionID,
				Method:    protocol.MethodInitialize,
				Component: "client",
				Operation: "handshake",
			})
	}

	n, err := protocol.NewNotification(protocol.MethodInitialized, nil)
	if err != nil {
		return nil, mcperrors.EncodeFailed("notification", err)
	}
	if _, err := c.transport.Send(ctx, n); err != nil {
		return nil, err
	}

	return &result, nil
}

// Invoke sends a request for method and returns the raw result. The
// session must be ready. An error frame from the server is returned as a
// protocol-category MCPError carrying the server's code, message and data.
func (c *Client) Invoke(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	sessionID, err := c.ready(method)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, sessionID, method, params)
}

// ready returns the session id, or NotInitialized unless the handshake
// has completed
func (c *Client) ready(method string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return "", mcperrors.NotInitialized(method, c.state.String())
	}
	return c.sessionID, nil
}

// requireReadyWith checks readiness before the capability so a client
// that never connected reports that, not a missing capability
func (c *Client) requireReadyWith(method string, capability protocol.CapabilityType) error {
	if _, err := c.ready(method); err != nil {
		return err
	}
	return c.RequireCapability(capability)
}

func (c *Client) call(ctx context.Context, sessionID, method string, params interface{}) (json.RawMessage, error) {
	id := protocol.NewIntID(c.nextID.Add(1))
	errCtx := &mcperrors.Context{
		RequestID: id.String(),
		Method:    method,
		SessionID: sessionID,
		Component: "client",
		Operation: "invoke",
	}

	ctx, span := c.tracer.Start(ctx, "mcp."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("mcp.request_id", id.String()),
			attribute.String("mcp.session_id", sessionID),
		))
	defer span.End()

	fail := func(err error) (json.RawMessage, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if mcpErr, ok := mcperrors.AsMCPError(err); ok {
			err = mcpErr.WithContext(errCtx)
		}
		return nil, err
	}

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return fail(mcperrors.EncodeFailed("params", err))
	}

	resp, err := c.transport.Send(logging.ContextWithRequestID(ctx, id.String()), req)
	if err != nil {
		if mcperrors.IsCategory(err, mcperrors.CategoryConnection) {
			c.markClosed(sessionID, err)
		}
		return fail(err)
	}
	if resp == nil {
		return fail(mcperrors.InvalidResponse(method, errNoResponse))
	}

	if resp.Error != nil {
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", int(resp.Error.Code)))
		return fail(mcperrors.FromProtocolError(resp.Error))
	}

	span.SetStatus(codes.Ok, "")
	return resp.Result, nil
}

// markClosed records a transport failure seen by a live session. A
// session that is already shutting down or was replaced is left alone.
func (c *Client) markClosed(sessionID string, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.sessionID != sessionID {
		return
	}
	c.state = StateClosed
	c.logger.WithError(cause).Warn("session closed by transport failure",
		logging.String("session_id", sessionID))
}

// OnNotification subscribes handler to every notification from the server.
// The transport must be connected.
func (c *Client) OnNotification(handler transport.NotificationHandler) error {
	if c.transport == nil {
		return mcperrors.NoTransport()
	}
	if !c.transport.IsConnected() {
		return mcperrors.NotConnected("subscribe to notifications")
	}
	c.transport.OnNotification(handler)
	return nil
}

// Disconnect tears down the transport and resets the session so that
// Connect may be called again. It never fails for an idle client.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	wasState := c.state
	sessionID := c.sessionID
	c.state = StateClosed
	c.mu.Unlock()

	var err error
	if c.transport != nil {
		err = c.transport.Disconnect(ctx)
	}

	c.mu.Lock()
	c.state = StateDisconnected
	c.serverInfo = nil
	c.serverCaps = nil
	c.instructions = ""
	c.sessionID = ""
	c.mu.Unlock()

	if wasState != StateDisconnected {
		c.logger.Info("disconnected",
			logging.String("session_id", sessionID),
			logging.String("previous_state", wasState.String()))
	}
	if err != nil {
		c.logger.WithError(err).Warn("transport disconnect reported an error")
	}
	return nil
}

// State returns the current lifecycle stage
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// IsConnected reports whether the session is ready and its transport up
func (c *Client) IsConnected() bool {
	if c.State() != StateReady || c.transport == nil {
		return false
	}
	return c.transport.IsConnected()
}

// ServerInfo returns the server identity from the handshake, or nil
func (c *Client) ServerInfo() *protocol.Implementation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.serverInfo == nil {
		return nil
	}
	info := *c.serverInfo
	return &info
}

// Capabilities returns a copy of the server's declared capabilities
func (c *Client) Capabilities() protocol.Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCaps.Clone()
}

// HasCapability reports whether the server declared name
func (c *Client) HasCapability(name protocol.CapabilityType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCaps.Has(name)
}

// Instructions returns the server's usage instructions, if it sent any
func (c *Client) Instructions() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instructions
}

// SessionID identifies the current connection in logs and errors. It is
// empty while disconnected.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// RequireCapability fails with a capability error, code -32001 and data
// {"capability": name}, unless the server declared name
func (c *Client) RequireCapability(name protocol.CapabilityType) error {
	if c.HasCapability(name) {
		return nil
	}
	return mcperrors.CapabilityMissing(string(name))
}

// Ping checks that the server is responsive
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Invoke(ctx, protocol.MethodPing, nil)
	return err
}
