package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/deepnoodle-ai/skillet/slogger"
)

// ChildEnvVar marks a process as a sandbox child.
const ChildEnvVar = "SKILLET_SANDBOX_CHILD"

// DefaultTimeout bounds a single sandbox test.
const DefaultTimeout = 10 * time.Second

// MaxOutputBytes caps how much of each child stream is retained.
const MaxOutputBytes = 1 << 20

const waitDelay = 500 * time.Millisecond

// Protocol markers written by the child.
const (
	successLine = "SUCCESS"
	logPrefix   = "LOG: "
	errorPrefix = "ERROR: "
)

var (
	ErrSandboxTimeout = errors.New("sandbox timeout")
	ErrSandboxFailure = errors.New("sandbox failure")
)

// Reason classifies a failed test.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonTimeout  Reason = "timeout"
	ReasonFailure  Reason = "failure"
	ReasonProtocol Reason = "protocol"
)

// Result is the outcome of one sandbox test.
type Result struct {
	Passed   bool          `json:"passed"`
	Output   string        `json:"output"`
	Logs     []string      `json:"logs"`
	Reason   Reason        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exit_code"`
}

// Err maps a failed result onto ErrSandboxTimeout or ErrSandboxFailure.
func (r *Result) Err() error {
	switch {
	case r.Passed:
		return nil
	case r.Reason == ReasonTimeout:
		return fmt.Errorf("%w: %s", ErrSandboxTimeout, r.Output)
	default:
		return fmt.Errorf("%w: %s", ErrSandboxFailure, r.Output)
	}
}

// HarnessOptions configures a Harness.
type HarnessOptions struct {
	// Executable is the binary re-executed in child mode. It must call
	// RunChild when IsChild reports true. Defaults to os.Executable().
	Executable string

	// Args are passed to the child before any protocol data.
	Args []string

	// Timeout bounds each test. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Modules restricts the Risor modules visible to tested programs.
	Modules []string

	// ReadPaths are the fs capability patterns granted inside the child.
	ReadPaths []string

	// Manager wraps the child in an OS-level sandbox. May be nil.
	Manager *Manager

	// Logger receives debug output. Defaults to a discarding logger.
	Logger slogger.Logger
}

// Harness runs skill programs in isolated child processes.
type Harness struct {
	executable string
	args       []string
	timeout    time.Duration
	modules    []string
	readPaths  []string
	manager    *Manager
	logger     slogger.Logger
}

// NewHarness creates a harness.
func NewHarness(opts HarnessOptions) (*Harness, error) {
	if opts.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		opts.Executable = exe
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	return &Harness{
		executable: opts.Executable,
		args:       append([]string{}, opts.Args...),
		timeout:    opts.Timeout,
		modules:    append([]string{}, opts.Modules...),
		readPaths:  append([]string{}, opts.ReadPaths...),
		manager:    opts.Manager,
		logger:     opts.Logger,
	}, nil
}

// Timeout returns the per-test time limit.
func (h *Harness) Timeout() time.Duration {
	return h.timeout
}

// request is the JSON document a child reads from stdin.
type request struct {
	Code      string         `json:"code"`
	Params    map[string]any `json:"params,omitempty"`
	Modules   []string       `json:"modules,omitempty"`
	ReadPaths []string       `json:"read_paths,omitempty"`
	TimeoutMS int64          `json:"timeout_ms"`
}

// Test runs code's entry point with params in a child process. A failing
// program is reported through the Result; the error return is reserved for
// harness problems and cancellation of ctx.
func (h *Harness) Test(ctx context.Context, code string, params map[string]any) (*Result, error) {
	payload, err := json.Marshal(request{
		Code:      code,
		Params:    params,
		Modules:   h.modules,
		ReadPaths: h.readPaths,
		TimeoutMS: h.timeout.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode sandbox request: %w", err)
	}

	workDir, err := os.MkdirTemp("", "skillet-sandbox-")
	if err != nil {
		return nil, fmt.Errorf("create sandbox directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	stdout := &cappedBuffer{limit: MaxOutputBytes}
	stderr := &cappedBuffer{limit: MaxOutputBytes}

	cmd := exec.CommandContext(runCtx, h.executable, h.args...)
	cmd.Dir = workDir
	cmd.Env = minimalEnv(map[string]string{
		ChildEnvVar: "1",
		"HOME":      workDir,
		"TMPDIR":    workDir,
	})
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	cleanup := func() {}
	if h.manager != nil {
		wrapped, done, err := h.manager.Wrap(runCtx, cmd)
		if err != nil {
			return nil, fmt.Errorf("wrap sandbox command: %w", err)
		}
		cmd, cleanup = wrapped, done
	}
	defer cleanup()

	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	start := time.Now()
	runErr := cmd.Run()
	result := &Result{Duration: time.Since(start)}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Reason = ReasonTimeout
		result.Output = "Code execution timed out after " + formatSeconds(h.timeout) + " seconds"
		h.logger.Debug("sandbox test timed out", "timeout", h.timeout)
		return result, nil
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return nil, fmt.Errorf("run sandbox child: %w", runErr)
	}
	if runErr != nil {
		result.Reason = ReasonFailure
		result.Output = "Code execution failed: " + failureDetail(stderr.String(), stdout.String())
		return result, nil
	}

	logs, ok := parseOutput(stdout.String())
	if !ok {
		result.Reason = ReasonProtocol
		result.Output = "Code execution produced no success marker: " + strings.TrimSpace(stdout.String())
		return result, nil
	}
	result.Passed = true
	result.Logs = logs
	result.Output = strings.Join(logs, "\n")
	h.logger.Debug("sandbox test passed", "logs", len(logs), "duration", result.Duration)
	return result, nil
}

// parseOutput reads the success protocol. Lines after the marker that do
// not start with the log prefix continue the previous message.
func parseOutput(stdout string) ([]string, bool) {
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != successLine {
		return nil, false
	}
	logs := []string{}
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if msg, ok := strings.CutPrefix(line, logPrefix); ok {
			logs = append(logs, msg)
			continue
		}
		if len(logs) == 0 {
			if line == "" {
				continue
			}
			logs = append(logs, line)
			continue
		}
		logs[len(logs)-1] += "\n" + line
	}
	return logs, true
}

func failureDetail(stderr, stdout string) string {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		return strings.TrimSpace(stdout)
	}
	return strings.TrimPrefix(detail, errorPrefix)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// minimalEnv builds a child environment carrying only PATH plus extra.
func minimalEnv(extra map[string]string) []string {
	env := []string{}
	if path := os.Getenv("PATH"); path != "" {
		env = append(env, "PATH="+path)
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// cappedBuffer keeps the first limit bytes written to it and discards the
// rest without failing the writer.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
