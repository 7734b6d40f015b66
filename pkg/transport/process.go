package transport

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Process is a running server with its standard streams
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader

	// Wait blocks until the process exits. It must not wait for Stdout
	// and Stderr to drain, since a grandchild may keep them open.
	Wait() error

	Signal(sig os.Signal) error
	Kill() error
	Pid() int
}

// Launcher starts server processes
type Launcher interface {
	Launch(ctx context.Context, config StdioConfig) (Process, error)
}

// LauncherFunc adapts a function to the Launcher interface
type LauncherFunc func(ctx context.Context, config StdioConfig) (Process, error)

// Launch calls f
func (f LauncherFunc) Launch(ctx context.Context, config StdioConfig) (Process, error) {
	return f(ctx, config)
}

// ExecLauncher starts real child processes via os/exec
type ExecLauncher struct{}

// Launch starts config.Command. The process outlives ctx; it is stopped
// only by Disconnect.
func (ExecLauncher) Launch(ctx context.Context, config StdioConfig) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(config.Command, config.Args...)
	cmd.Dir = config.Dir
	cmd.Env = mergeEnv(os.Environ(), config.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	// The output pipes are handed to the child as files so that cmd.Wait
	// returns on exit instead of waiting for copy goroutines.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		closeAll(stdoutR, stdoutW)
		return nil, err
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	closeAll(stdoutW, stderrW)
	if err != nil {
		_ = stdin.Close()
		closeAll(stdoutR, stderrR)
		return nil, err
	}

	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdoutR, stderr: stderrR}, nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Stderr() io.Reader     { return p.stderr }
func (p *execProcess) Wait() error           { return p.cmd.Wait() }
func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }

func (p *execProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

// mergeEnv overlays extra on base, which is in os.Environ form
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}

	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := extra[key]; !overridden {
			env = append(env, kv)
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// exitCode extracts the process exit status from a Wait error. It returns
// -1 when the status is unknown, e.g. the process died from a signal.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}
