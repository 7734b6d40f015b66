package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/ajitpratap0/mcp-client-go/pkg/errors"
	"github.com/ajitpratap0/mcp-client-go/pkg/logging"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

const (
	// DefaultRequestTimeout bounds how long a request waits for its response
	DefaultRequestTimeout = 30 * time.Second
	// DefaultShutdownGrace is how long Disconnect waits after SIGTERM
	DefaultShutdownGrace = 5 * time.Second
	// DefaultMaxLineSize caps a single inbound message
	DefaultMaxLineSize = 16 << 20

	stderrTailSize = 4096
	readChunkSize  = 32 << 10

	// exitDrainTimeout bounds how long output written just before an exit
	// is waited for
	exitDrainTimeout = 500 * time.Millisecond
)

// StdioConfig describes the server process and its timing limits
type StdioConfig struct {
	Command string            `json:"command" toml:"command"`
	Args    []string          `json:"args" toml:"args"`
	Env     map[string]string `json:"env" toml:"env"`
	Dir     string            `json:"dir" toml:"dir"`

	RequestTimeout time.Duration `json:"request_timeout" toml:"request_timeout"`
	ShutdownGrace  time.Duration `json:"shutdown_grace" toml:"shutdown_grace"`
	MaxLineSize    int           `json:"max_line_size" toml:"max_line_size"`

	// StderrHandler receives each line the server writes to stderr
	StderrHandler func(line string) `json:"-" toml:"-"`
}

// DefaultStdioConfig returns the default timing limits with no command set
func DefaultStdioConfig() StdioConfig {
	return StdioConfig{
		RequestTimeout: DefaultRequestTimeout,
		ShutdownGrace:  DefaultShutdownGrace,
		MaxLineSize:    DefaultMaxLineSize,
	}
}

func (c StdioConfig) withDefaults() StdioConfig {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
	if c.MaxLineSize == 0 {
		c.MaxLineSize = DefaultMaxLineSize
	}
	return c
}

// StdioTransport runs an MCP server as a child process and exchanges
// newline-delimited JSON-RPC messages over its stdin and stdout.
type StdioTransport struct {
	config   StdioConfig
	launcher Launcher
	logger   logging.Logger
	recorder Recorder

	mu         sync.Mutex
	proc       Process
	stdin      io.WriteCloser
	connected  bool
	closing    bool
	exited     chan struct{}
	connCancel context.CancelFunc

	writeMu sync.Mutex
	pending *pendingTable
	stderr  *tailBuffer

	handlersMu sync.RWMutex
	handlers   []NotificationHandler
}

// NewStdioTransport creates a transport for the process described by config.
// The process is not started until Connect.
func NewStdioTransport(config StdioConfig, opts ...Option) (*StdioTransport, error) {
	if strings.TrimSpace(config.Command) == "" {
		return nil, mcperrors.InvalidConfig("command", "must not be empty")
	}
	config = config.withDefaults()
	o := buildOptions(opts)

	return &StdioTransport{
		config:   config,
		launcher: o.launcher,
		logger:   o.logger.WithFields(logging.String("component", "stdio_transport")),
		recorder: o.recorder,
		pending:  newPendingTable(),
		stderr:   newTailBuffer(stderrTailSize),
	}, nil
}

// Connect spawns the server process and starts reading its output.
// Calling Connect on a connected transport is a no-op.
func (t *StdioTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return nil
	}
	if t.proc != nil {
		// the previous process exited on its own and was never disconnected
		t.mu.Unlock()
		if err := t.Disconnect(ctx); err != nil {
			return err
		}
		t.mu.Lock()
	}
	defer t.mu.Unlock()

	proc, err := t.launcher.Launch(ctx, t.config)
	if err != nil {
		t.logger.Error("failed to start server process",
			logging.String("command", t.config.Command),
			logging.ErrorField(err))
		return mcperrors.SpawnFailed(t.config.Command, t.config.Args, err)
	}

	t.stderr.Reset()
	t.pending.open()
	t.proc = proc
	t.stdin = proc.Stdin()
	t.connected = true
	t.closing = false
	t.exited = make(chan struct{})

	connCtx, cancel := context.WithCancel(context.Background())
	t.connCancel = cancel
	notifications := newNotificationQueue()
	go notifications.run(connCtx, t.dispatchNotification)

	g := new(errgroup.Group)
	framer := NewLineFramer(t.config.MaxLineSize)
	g.Go(func() error { return t.readLoop(proc.Stdout(), framer, notifications) })
	g.Go(func() error { return t.stderrLoop(proc.Stderr()) })
	go t.waitLoop(proc, g, t.exited)

	t.recorder.ProcessStarted()
	t.logger.Info("server process started",
		logging.String("command", t.config.Command),
		logging.Int("pid", proc.Pid()))
	return nil
}

// Disconnect fails outstanding requests, closes stdin and stops the
// process: SIGTERM first, then a kill once ShutdownGrace elapses or ctx
// is done. It never returns an error.
func (t *StdioTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	proc := t.proc
	if proc == nil {
		t.mu.Unlock()
		return nil
	}
	alreadyClosing := t.closing
	t.closing = true
	t.connected = false
	exited := t.exited
	stdin := t.stdin
	cancel := t.connCancel
	t.mu.Unlock()

	if alreadyClosing {
		t.awaitExit(ctx, proc, exited)
		return nil
	}

	if n := t.pending.failAll(mcperrors.Disconnected()); n > 0 {
		t.logger.Debug("failed pending requests on disconnect", logging.Int("count", n))
		t.recorder.PendingRequests(0)
	}
	cancel()

	if err := stdin.Close(); err != nil {
		t.logger.Debug("closing stdin", logging.ErrorField(err))
	}

	select {
	case <-exited:
	default:
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			t.logger.Debug("sending SIGTERM", logging.ErrorField(err))
		}
		t.awaitExit(ctx, proc, exited)
	}

	// a grandchild may still hold the output pipes open
	closeReader(proc.Stdout())
	closeReader(proc.Stderr())

	t.mu.Lock()
	if t.proc == proc {
		t.proc = nil
		t.stdin = nil
		t.closing = false
	}
	t.mu.Unlock()

	t.logger.Info("disconnected from server process")
	return nil
}

func (t *StdioTransport) awaitExit(ctx context.Context, proc Process, exited <-chan struct{}) {
	grace := time.NewTimer(t.config.ShutdownGrace)
	defer grace.Stop()

	select {
	case <-exited:
		return
	case <-grace.C:
		t.logger.Warn("server did not exit after SIGTERM, killing it",
			logging.Duration("grace", t.config.ShutdownGrace))
	case <-ctx.Done():
	}

	if err := proc.Kill(); err != nil {
		t.logger.Debug("killing server process", logging.ErrorField(err))
	}

	select {
	case <-exited:
	case <-time.After(t.config.ShutdownGrace + exitDrainTimeout):
		t.logger.Warn("server process still running after kill")
	}
}

func closeReader(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}

// IsConnected reports whether the server process is running and not
// being torn down. It turns false as soon as the process exits, even if
// its output is still open.
func (t *StdioTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// OnNotification appends a notification subscriber
func (t *StdioTransport) OnNotification(handler NotificationHandler) {
	if handler == nil {
		return
	}
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// Send writes msg to the server. Requests wait for their response.
func (t *StdioTransport) Send(ctx context.Context, msg protocol.Message) (*protocol.Response, error) {
	switch m := msg.(type) {
	case *protocol.Request:
		return t.sendRequest(ctx, m)
	case *protocol.Notification:
		return nil, t.sendNotification(m)
	case *protocol.Response:
		return nil, t.writeMessage(m, "")
	default:
		return nil, mcperrors.EncodeFailed("message", errors.New("unsupported message type"))
	}
}

func (t *StdioTransport) sendRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if !t.IsConnected() {
		return nil, mcperrors.NotConnected("send " + req.Method)
	}

	data, err := protocol.EncodeMessage(req)
	if err != nil {
		return nil, mcperrors.EncodeFailed("request", err)
	}

	timeout := t.config.RequestTimeout
	p, err := t.pending.register(req.ID, req.Method, timeout, func(p *pendingRequest) error {
		t.logger.Warn("request timed out",
			logging.String("method", p.method),
			logging.String("id", p.id.String()),
			logging.Duration("timeout", timeout))
		t.recorder.PendingRequests(t.pending.len())
		return mcperrors.RequestTimeout(p.method, p.id.String(), timeout)
	})
	if err != nil {
		if _, ok := mcperrors.AsMCPError(err); ok {
			// the table was closed by an exit or a disconnect
			return nil, err
		}
		return nil, mcperrors.TransportError("register_request", err)
	}
	t.recorder.PendingRequests(t.pending.len())

	if err := t.writeLine(data); err != nil {
		t.pending.remove(p)
		t.recorder.PendingRequests(t.pending.len())
		return nil, t.writeError(req.Method, err)
	}

	select {
	case o := <-p.done:
		return o.resp, o.err
	case <-ctx.Done():
		if t.pending.remove(p) {
			p.settle(outcome{err: mcperrors.RequestAborted(req.Method, req.ID.String(), ctx.Err())})
			t.recorder.PendingRequests(t.pending.len())
		}
		o := <-p.done
		return o.resp, o.err
	}
}

func (t *StdioTransport) sendNotification(n *protocol.Notification) error {
	if !t.IsConnected() {
		return mcperrors.NotConnected("send " + n.Method)
	}
	return t.writeMessage(n, n.Method)
}

func (t *StdioTransport) writeMessage(msg protocol.Message, method string) error {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return mcperrors.EncodeFailed(msg.Kind().String(), err)
	}
	if err := t.writeLine(data); err != nil {
		return t.writeError(method, err)
	}
	return nil
}

// writeError classifies a failed write. Writing to a process that has
// exited or is being torn down is a lost connection, not a transport fault.
func (t *StdioTransport) writeError(method string, err error) error {
	if _, ok := mcperrors.AsMCPError(err); ok {
		return err
	}
	if brokenPipe(err) || !t.IsConnected() {
		return mcperrors.ConnectionLost("server stdin closed", err)
	}
	return mcperrors.WriteFailed(method, err)
}

func brokenPipe(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE)
}

// writeLine writes one frame in a single Write so concurrent senders never
// interleave
func (t *StdioTransport) writeLine(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	stdin := t.stdin
	t.mu.Unlock()
	if stdin == nil {
		return mcperrors.NotConnected("write")
	}

	frame := make([]byte, 0, len(data)+1)
	frame = append(frame, data...)
	frame = append(frame, '\n')
	_, err := stdin.Write(frame)
	return err
}

// readLoop owns framer, which is created per connection
func (t *StdioTransport) readLoop(stdout io.Reader, framer *LineFramer, notifications *notificationQueue) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			dropped := framer.Dropped()
			for _, line := range framer.Feed(buf[:n]) {
				t.handleLine(line, notifications)
			}
			if d := framer.Dropped() - dropped; d > 0 {
				t.logger.Warn("discarded oversized messages",
					logging.Int("count", d),
					logging.Int("max_line_size", t.config.MaxLineSize))
				t.recorder.DecodeError()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				if rest := framer.Buffered(); rest > 0 {
					t.logger.Debug("dropping unterminated output", logging.Int("bytes", rest))
				}
				return nil
			}
			return mcperrors.TransportError("read", err)
		}
	}
}

func (t *StdioTransport) stderrLoop(stderr io.Reader) error {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), 64<<10)
	for scanner.Scan() {
		line := scanner.Text()
		t.stderr.WriteLine(line)
		if h := t.config.StderrHandler; h != nil {
			h(line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.logger.Debug("stderr scanner stopped", logging.ErrorField(err))
		// keep draining so the server never blocks on a full pipe
		_, _ = io.Copy(io.Discard, stderr)
	}
	return nil
}

// waitLoop observes the process exit. The transport stops accepting sends
// at once; output already written gets a short window to be read before
// outstanding requests are failed.
func (t *StdioTransport) waitLoop(proc Process, g *errgroup.Group, exited chan struct{}) {
	defer close(exited)

	waitErr := proc.Wait()
	code := exitCode(waitErr)

	t.mu.Lock()
	expected := t.closing || t.proc != proc
	if t.proc == proc {
		t.connected = false
	}
	t.mu.Unlock()

	drained := make(chan error, 1)
	go func() { drained <- g.Wait() }()
	select {
	case err := <-drained:
		if err != nil {
			t.logger.Warn("reading server output failed", logging.ErrorField(err))
		}
	case <-time.After(exitDrainTimeout):
		t.logger.Debug("server output still open after exit")
	}

	t.recorder.ProcessExited(code, expected)
	if expected {
		t.logger.Debug("server process exited", logging.Int("exit_code", code))
		return
	}

	t.logger.Warn("server process exited unexpectedly",
		logging.Int("exit_code", code),
		logging.String("stderr", t.stderr.String()))
	n := t.pending.failAll(mcperrors.ProcessExited(code, t.stderr.String(), waitErr))
	if n > 0 {
		t.recorder.PendingRequests(0)
	}
}

func (t *StdioTransport) handleLine(line []byte, notifications *notificationQueue) {
	msg, err := protocol.DecodeMessage(line)
	if err != nil {
		t.logger.Warn("skipping malformed message",
			logging.ErrorField(err),
			logging.String("line", truncate(string(line), 256)))
		t.recorder.DecodeError()
		return
	}

	switch m := msg.(type) {
	case *protocol.Response:
		if !t.pending.resolve(m) {
			t.logger.Warn("discarding response with no pending request",
				logging.String("id", m.ID.String()))
			t.recorder.StaleResponse()
			return
		}
		t.recorder.PendingRequests(t.pending.len())
	case *protocol.Notification:
		t.recorder.NotificationReceived(m.Method)
		notifications.push(m)
	case *protocol.Request:
		t.rejectRequest(m)
	}
}

// dispatchNotification runs every subscriber in registration order on the
// delivery goroutine
func (t *StdioTransport) dispatchNotification(ctx context.Context, n *protocol.Notification) {
	t.handlersMu.RLock()
	handlers := make([]NotificationHandler, len(t.handlers))
	copy(handlers, t.handlers)
	t.handlersMu.RUnlock()

	for i, h := range handlers {
		t.invokeHandler(ctx, i, h, n)
	}
}

func (t *StdioTransport) invokeHandler(ctx context.Context, index int, h NotificationHandler, n *protocol.Notification) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("notification handler panicked",
				logging.String("method", n.Method),
				logging.Int("handler", index),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
		}
	}()

	if err := h(ctx, n); err != nil {
		t.logger.Warn("notification handler failed",
			logging.String("method", n.Method),
			logging.Int("handler", index),
			logging.ErrorField(err))
	}
}

// rejectRequest answers a server-originated request with MethodNotFound,
// since the client serves no methods
func (t *StdioTransport) rejectRequest(req *protocol.Request) {
	rpcErr := mcperrors.ToProtocolError(mcperrors.MethodNotFound(req.Method))
	resp, err := protocol.NewErrorResponse(req.ID, rpcErr.Code, rpcErr.Message, nil)
	if err != nil {
		return
	}

	t.logger.Debug("rejecting server request", logging.String("method", req.Method))
	go func() {
		if err := t.writeMessage(resp, req.Method); err != nil {
			t.logger.Debug("answering server request", logging.ErrorField(err))
		}
	}()
}

// Stderr returns the most recent stderr output of the server
func (t *StdioTransport) Stderr() string {
	return t.stderr.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// tailBuffer keeps the last few KiB of stderr for error reports
type tailBuffer struct {
	mu   sync.Mutex
	max  int
	data []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) WriteLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, line...)
	b.data = append(b.data, '\n')
	if over := len(b.data) - b.max; over > 0 {
		b.data = append(b.data[:0], b.data[over:]...)
	}
}

func (b *tailBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimRight(string(b.data), "\n")
}
