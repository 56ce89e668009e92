package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"bundler/pkg/logx"
)

// ErrCommandNotFound is returned when the program is not on PATH.
var ErrCommandNotFound = errors.New("command not found")

// ExecOpts describes where a command runs and where its output goes.
type ExecOpts struct {
	// Stdout and Stderr must both be set; they may be the same writer.
	Stdout io.Writer
	Stderr io.Writer

	// Dir is the working directory; empty inherits ours.
	Dir string

	// Env holds KEY=VALUE pairs layered over the inherited environment.
	Env []string
}

// Executor starts external programs for the process backend.
type Executor interface {
	// Run executes argv directly, without a shell. A non-zero exit is
	// reported through exitCode with a nil error; err means the program
	// could not be run or ctx ended first, in which case err is ctx.Err().
	Run(ctx context.Context, argv []string, opts ExecOpts) (exitCode int, err error)

	// Name identifies the executor in logs.
	Name() string
}

// HostExecutor runs programs on the local machine.
type HostExecutor struct {
	logger *logx.Logger
}

// NewHostExecutor creates a host executor.
func NewHostExecutor() *HostExecutor {
	return &HostExecutor{logger: logx.NewLogger("exec")}
}

// Name returns "host".
func (h *HostExecutor) Name() string { return "host" }

// Run starts argv[0] with the remaining arguments and waits for it.
func (h *HostExecutor) Run(ctx context.Context, argv []string, opts ExecOpts) (int, error) {
	switch {
	case len(argv) == 0:
		return -1, fmt.Errorf("empty argv")
	case opts.Stdout == nil || opts.Stderr == nil:
		return -1, fmt.Errorf("%s: stdout and stderr are required", argv[0])
	}

	program, err := exec.LookPath(argv[0])
	if err != nil {
		return -1, fmt.Errorf("%s: %w", argv[0], ErrCommandNotFound)
	}

	cmd := exec.CommandContext(ctx, program, argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdout, cmd.Stderr = opts.Stdout, opts.Stderr
	if len(opts.Env) > 0 {
		// A nil Env inherits; a non-nil one replaces, so merge explicitly.
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	start := time.Now()
	runErr := cmd.Run()
	h.logger.Debug("%s finished in %v", strings.Join(argv, " "), time.Since(start))

	if runErr == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("%s: %w", argv[0], runErr)
}

// MockResponse is what MockExecutor returns for one program.
type MockResponse struct {
	ExitCode int
	Err      error
	Output   string
}

// MockExecutor records calls instead of starting programs. Responses are
// looked up by argv[0]; programs without an entry get the default fields.
type MockExecutor struct {
	// Defaults for unscripted programs.
	ExitCode int
	Error    error
	Output   string

	// Responses overrides the defaults per program name.
	Responses map[string]MockResponse

	// Calls is every Run in order.
	Calls []MockExecCall

	mu sync.Mutex
}

// MockExecCall is one recorded Run.
type MockExecCall struct {
	Argv []string
	Dir  string
	Env  []string
}

// NewMockExecutor creates a mock where every program succeeds silently.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{Responses: map[string]MockResponse{}}
}

// Name returns "mock".
func (m *MockExecutor) Name() string { return "mock" }

// Script sets the response for program.
func (m *MockExecutor) Script(program string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Responses == nil {
		m.Responses = map[string]MockResponse{}
	}
	m.Responses[program] = resp
}

// Run records the call and returns the scripted response.
func (m *MockExecutor) Run(_ context.Context, argv []string, opts ExecOpts) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockExecCall{
		Argv: append([]string(nil), argv...),
		Dir:  opts.Dir,
		Env:  append([]string(nil), opts.Env...),
	})

	resp := MockResponse{ExitCode: m.ExitCode, Err: m.Error, Output: m.Output}
	if len(argv) > 0 {
		if scripted, ok := m.Responses[argv[0]]; ok {
			resp = scripted
		}
	}

	if resp.Output != "" && opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, resp.Output)
	}
	return resp.ExitCode, resp.Err
}
