// Package transporttest provides an in-memory MCP server that can stand in
// for a child process in transport and client tests.
package transporttest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
)

// HandlerFunc produces the reply to a request. Returning nil sends nothing,
// which leaves the client waiting.
type HandlerFunc func(req *protocol.Request) *protocol.Response

// Server is a scripted MCP server. Each Connect of a transport using
// Launcher gets a fresh in-memory process bound to the same Server.
type Server struct {
	// ProtocolVersion, Capabilities and Info shape the default
	// initialize reply
	ProtocolVersion string
	Capabilities    protocol.Capabilities
	Info            protocol.Implementation

	// IgnoreTerminate makes the process survive SIGTERM, so only a kill
	// stops it
	IgnoreTerminate bool

	mu         sync.Mutex
	handlers   map[string]HandlerFunc
	received   []protocol.Message
	bytesIn    int
	signals    []os.Signal
	killed     int
	launches   int
	launchErrs []error
	current    *Process
}

// NewServer returns a server that answers initialize and ping and
// advertises the tools capability
func NewServer() *Server {
	s := &Server{
		ProtocolVersion: protocol.DefaultProtocolVersion,
		Capabilities: protocol.Capabilities{
			string(protocol.CapabilityTools): json.RawMessage(`{"listChanged":true}`),
		},
		Info:     protocol.Implementation{Name: "fake-server", Version: "0.1.0"},
		handlers: make(map[string]HandlerFunc),
	}
	s.Handle(protocol.MethodPing, func(req *protocol.Request) *protocol.Response {
		return Result(req, struct{}{})
	})
	return s
}

// Handle installs the handler for method, replacing any earlier one
func (s *Server) Handle(method string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// HandleResult answers method with a fixed result
func (s *Server) HandleResult(method string, result interface{}) {
	s.Handle(method, func(req *protocol.Request) *protocol.Response {
		return Result(req, result)
	})
}

// HandleError answers method with a fixed error frame
func (s *Server) HandleError(method string, code protocol.ErrorCode, message string, data interface{}) {
	s.Handle(method, func(req *protocol.Request) *protocol.Response {
		return ErrorReply(req, code, message, data)
	})
}

// Silence makes the server read method without ever answering it
func (s *Server) Silence(method string) {
	s.Handle(method, func(*protocol.Request) *protocol.Response { return nil })
}

// FailLaunches makes the next len(errs) launches fail with errs in order
func (s *Server) FailLaunches(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchErrs = append(s.launchErrs, errs...)
}

// Launcher returns a launcher that starts in-memory processes for s
func (s *Server) Launcher() transport.Launcher {
	return transport.LauncherFunc(func(ctx context.Context, _ transport.StdioConfig) (transport.Process, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.launches++
		if len(s.launchErrs) > 0 {
			err := s.launchErrs[0]
			s.launchErrs = s.launchErrs[1:]
			s.mu.Unlock()
			return nil, err
		}
		p := newProcess(s)
		s.current = p
		s.mu.Unlock()

		go p.serve()
		return p, nil
	})
}

// Notify sends a notification to the client
func (s *Server) Notify(method string, params interface{}) error {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	return s.Send(n)
}

// Send writes msg to the client
func (s *Server) Send(msg protocol.Message) error {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return err
	}
	return s.WriteRaw(append(data, '\n'))
}

// WriteRaw writes bytes to the client's stdout unchanged
func (s *Server) WriteRaw(data []byte) error {
	p := s.process()
	if p == nil {
		return errors.New("server not running")
	}
	return p.writeStdout(data)
}

// WriteStderr writes a line to the client's stderr
func (s *Server) WriteStderr(line string) error {
	p := s.process()
	if p == nil {
		return errors.New("server not running")
	}
	_, err := p.stderrW.Write([]byte(line + "\n"))
	return err
}

// Exit simulates the process terminating on its own with code
func (s *Server) Exit(code int) {
	if p := s.process(); p != nil {
		p.exit(code)
	}
}

// Received returns every well-formed message read from the client
func (s *Server) Received() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Message, len(s.received))
	copy(out, s.received)
	return out
}

// Requests returns the received requests for method
func (s *Server) Requests(method string) []*protocol.Request {
	var out []*protocol.Request
	for _, m := range s.Received() {
		if req, ok := m.(*protocol.Request); ok && req.Method == method {
			out = append(out, req)
		}
	}
	return out
}

// Notifications returns the received notifications for method
func (s *Server) Notifications(method string) []*protocol.Notification {
	var out []*protocol.Notification
	for _, m := range s.Received() {
		if n, ok := m.(*protocol.Notification); ok && n.Method == method {
			out = append(out, n)
		}
	}
	return out
}

// Responses returns replies the client sent to server-originated requests
func (s *Server) Responses() []*protocol.Response {
	var out []*protocol.Response
	for _, m := range s.Received() {
		if r, ok := m.(*protocol.Response); ok {
			out = append(out, r)
		}
	}
	return out
}

// BytesReceived counts all bytes the client wrote to stdin
func (s *Server) BytesReceived() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesIn
}

// Signals returns the signals delivered to any process of s
func (s *Server) Signals() []os.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]os.Signal(nil), s.signals...)
}

// Killed counts kill calls
func (s *Server) Killed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// Launches counts launch attempts, including failed ones
func (s *Server) Launches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches
}

func (s *Server) process() *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Server) record(msg protocol.Message, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesIn += n
	if msg != nil {
		s.received = append(s.received, msg)
	}
}

func (s *Server) handler(method string) HandlerFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handlers[method]; ok {
		return h
	}
	if method == protocol.MethodInitialize {
		return s.initialize
	}
	return nil
}

func (s *Server) initialize(req *protocol.Request) *protocol.Response {
	s.mu.Lock()
	result := protocol.InitializeResult{
		ProtocolVersion: s.ProtocolVersion,
		Capabilities:    s.Capabilities.Clone(),
		ServerInfo:      s.Info,
	}
	s.mu.Unlock()
	return Result(req, result)
}

// Result builds a success reply to req
func Result(req *protocol.Request, result interface{}) *protocol.Response {
	resp, err := protocol.NewResponse(req.ID, result)
	if err != nil {
		panic(fmt.Sprintf("transporttest: encoding result: %v", err))
	}
	return resp
}

// ErrorReply builds an error reply to req
func ErrorReply(req *protocol.Request, code protocol.ErrorCode, message string, data interface{}) *protocol.Response {
	resp, err := protocol.NewErrorResponse(req.ID, code, message, data)
	if err != nil {
		panic(fmt.Sprintf("transporttest: encoding error data: %v", err))
	}
	return resp
}

// ExitError is returned by Process.Wait for a non-zero exit
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }
func (e *ExitError) ExitCode() int { return e.Code }

// Process is an in-memory transport.Process
type Process struct {
	server *Server

	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	writeMu  sync.Mutex
	exitOnce sync.Once
	done     chan struct{}
	exitErr  error
}

func newProcess(s *Server) *Process {
	p := &Process{server: s, done: make(chan struct{})}
	p.stdinR, p.stdinW = io.Pipe()
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *Process) Stdin() io.WriteCloser { return p.stdinW }
func (p *Process) Stdout() io.Reader     { return p.stdoutR }
func (p *Process) Stderr() io.Reader     { return p.stderrR }
func (p *Process) Pid() int              { return 4242 }

// Wait blocks until the process exits
func (p *Process) Wait() error {
	<-p.done
	return p.exitErr
}

// Signal records sig and exits unless the server ignores termination
func (p *Process) Signal(sig os.Signal) error {
	select {
	case <-p.done:
		return os.ErrProcessDone
	default:
	}

	p.server.mu.Lock()
	p.server.signals = append(p.server.signals, sig)
	ignore := p.server.IgnoreTerminate
	p.server.mu.Unlock()

	if !ignore {
		go p.exit(143)
	}
	return nil
}

// Kill terminates the process
func (p *Process) Kill() error {
	select {
	case <-p.done:
		return os.ErrProcessDone
	default:
	}

	p.server.mu.Lock()
	p.server.killed++
	p.server.mu.Unlock()

	p.exit(137)
	return nil
}

func (p *Process) exit(code int) {
	p.exitOnce.Do(func() {
		if code != 0 {
			p.exitErr = &ExitError{Code: code}
		}
		_ = p.stdinR.CloseWithError(io.ErrClosedPipe)
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
		close(p.done)
	})
}

func (p *Process) writeStdout(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.stdoutW.Write(data)
	return err
}

// serve reads requests until stdin closes, then exits cleanly unless the
// server ignores termination
func (p *Process) serve() {
	r := bufio.NewReader(p.stdinR)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			p.handle(line)
		}
		if err != nil {
			p.server.mu.Lock()
			stubborn := p.server.IgnoreTerminate
			p.server.mu.Unlock()
			if !stubborn {
				p.exit(0)
			}
			return
		}
	}
}

func (p *Process) handle(line []byte) {
	msg, err := protocol.DecodeMessage(line)
	if err != nil {
		p.server.record(nil, len(line))
		return
	}
	p.server.record(msg, len(line))

	req, ok := msg.(*protocol.Request)
	if !ok {
		return
	}

	h := p.server.handler(req.Method)
	var resp *protocol.Response
	if h == nil {
		resp = ErrorReply(req, protocol.MethodNotFound, "method not found: "+req.Method, nil)
	} else {
		resp = h(req)
	}
	if resp == nil {
		return
	}

	data, err := protocol.EncodeMessage(resp)
	if err != nil {
		return
	}
	_ = p.writeStdout(append(data, '\n'))
}

// WaitFor polls check until it returns true or timeout elapses
func WaitFor(t testing.TB, timeout time.Duration, check func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition: %s", msg)
}
