package sandbox

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The test binary doubles as the sandbox child.
func TestMain(m *testing.M) {
	if IsChild() {
		os.Exit(RunChild(os.Stdin, os.Stdout, os.Stderr))
	}
	os.Exit(m.Run())
}

func newTestHarness(t *testing.T, opts HarnessOptions) *Harness {
	t.Helper()
	h, err := NewHarness(opts)
	require.NoError(t, err)
	return h
}

func TestHarness_Success(t *testing.T) {
	h := newTestHarness(t, HarnessOptions{})
	code := `
func execute(name) {
    log("hello " + name)
    print("two", "parts")
}
`
	result, err := h.Test(context.Background(), code, map[string]any{"name": "world"})
	require.NoError(t, err)
	require.True(t, result.Passed, result.Output)
	require.Equal(t, []string{"hello world", "two parts"}, result.Logs)
	require.Equal(t, "hello world\ntwo parts", result.Output)
	require.Equal(t, ReasonNone, result.Reason)
	require.NoError(t, result.Err())
}

func TestHarness_MultilineLog(t *testing.T) {
	h := newTestHarness(t, HarnessOptions{})
	result, err := h.Test(context.Background(), "func execute() {\n    log(\"first\\nsecond\")\n    log(\"third\")\n}\n", nil)
	require.NoError(t, err)
	require.True(t, result.Passed, result.Output)
	require.Equal(t, []string{"first\nsecond", "third"}, result.Logs)
}

func TestHarness_Failures(t *testing.T) {
	h := newTestHarness(t, HarnessOptions{})
	tests := []struct {
		name   string
		code   string
		substr string
	}{
		{
			name:   "runtime error",
			code:   "func execute() {\n    items := [1]\n    log(items[5])\n}\n",
			substr: "Code execution failed: ",
		},
		{
			name:   "missing entry point",
			code:   "func run() {\n    log(\"x\")\n}\n",
			substr: "must define an 'execute' function",
		},
		{
			name:   "syntax error",
			code:   "func execute( {",
			substr: "Code execution failed: ",
		},
		{
			name:   "denied builtin",
			code:   "func execute() {\n    getenv(\"HOME\")\n}\n",
			substr: "Code execution failed: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.Test(context.Background(), tt.code, nil)
			require.NoError(t, err)
			require.False(t, result.Passed)
			require.Equal(t, ReasonFailure, result.Reason)
			require.Contains(t, result.Output, tt.substr)
			require.NotContains(t, result.Output, errorPrefix)
			require.ErrorIs(t, result.Err(), ErrSandboxFailure)
			require.NotZero(t, result.ExitCode)
		})
	}
}

func TestHarness_Timeout(t *testing.T) {
	timeout := time.Second
	h := newTestHarness(t, HarnessOptions{Timeout: timeout})

	start := time.Now()
	result, err := h.Test(context.Background(), "func execute() {\n    for {\n    }\n}\n", nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.False(t, result.Passed)
	require.Equal(t, ReasonTimeout, result.Reason)
	require.Equal(t, "Code execution timed out after 1 seconds", result.Output)
	require.ErrorIs(t, result.Err(), ErrSandboxTimeout)
	require.Less(t, elapsed, timeout+time.Second)
}

func TestHarness_ParentCancelled(t *testing.T) {
	h := newTestHarness(t, HarnessOptions{Timeout: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	_, err := h.Test(ctx, "func execute() {\n    for {\n    }\n}\n", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHarness_ReadPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("sandboxed"), 0o644))
	code := "func execute(p) {\n    if fs.allowed(p) {\n        log(fs.read(p))\n    } else {\n        log(\"denied\")\n    }\n}\n"

	denied := newTestHarness(t, HarnessOptions{})
	result, err := denied.Test(context.Background(), code, map[string]any{"p": path})
	require.NoError(t, err)
	require.Equal(t, []string{"denied"}, result.Logs)

	allowed := newTestHarness(t, HarnessOptions{ReadPaths: []string{filepath.Join(dir, "**")}})
	result, err = allowed.Test(context.Background(), code, map[string]any{"p": path})
	require.NoError(t, err)
	require.Equal(t, []string{"sandboxed"}, result.Logs)
}

func TestHarness_Modules(t *testing.T) {
	h := newTestHarness(t, HarnessOptions{Modules: []string{"strings"}})
	result, err := h.Test(context.Background(), "func execute() {\n    log(math.sqrt(4))\n}\n", nil)
	require.NoError(t, err)
	require.False(t, result.Passed)
	require.Equal(t, ReasonFailure, result.Reason)
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		logs   []string
		ok     bool
	}{
		{name: "empty", stdout: "", ok: false},
		{name: "no marker", stdout: "LOG: hi\n", ok: false},
		{name: "marker only", stdout: "SUCCESS\n", logs: []string{}, ok: true},
		{name: "logs", stdout: "SUCCESS\nLOG: a\nLOG: b\n", logs: []string{"a", "b"}, ok: true},
		{name: "continuation", stdout: "SUCCESS\nLOG: a\nmore\nLOG: b\n", logs: []string{"a\nmore", "b"}, ok: true},
		{name: "crlf", stdout: "SUCCESS\r\nLOG: a\r\n", logs: []string{"a"}, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, ok := parseOutput(tt.stdout)
			require.Equal(t, tt.ok, ok)
			if ok {
				require.Equal(t, tt.logs, logs)
			}
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "10", formatSeconds(10*time.Second))
	assert.Equal(t, "0.5", formatSeconds(500*time.Millisecond))
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	_, _ = b.Write([]byte("gh"))
	require.Equal(t, "abcd", b.String())
}

func TestMinimalEnv(t *testing.T) {
	t.Setenv("SKILLET_SECRET", "leak")
	env := minimalEnv(map[string]string{ChildEnvVar: "1"})
	require.Contains(t, env, ChildEnvVar+"=1")
	for _, kv := range env {
		require.False(t, strings.HasPrefix(kv, "SKILLET_SECRET="))
	}
}

func TestManager_SelectBackend(t *testing.T) {
	b, err := NewManager(nil).SelectBackend()
	require.NoError(t, err)
	require.Nil(t, b)

	b, err = NewManager(&Config{Backend: BackendNone}).SelectBackend()
	require.NoError(t, err)
	require.Nil(t, b)

	_, err = NewManager(&Config{Backend: "jail"}).SelectBackend()
	require.ErrorContains(t, err, "unknown sandbox backend")

	if runtime.GOOS != "darwin" {
		_, err = NewManager(&Config{Backend: BackendSeatbelt}).SelectBackend()
		require.ErrorContains(t, err, "not available")
	}
}

func TestManager_WrapWithoutBackend(t *testing.T) {
	cmd := exec.Command("echo", "hello")
	wrapped, cleanup, err := NewManager(nil).Wrap(context.Background(), cmd)
	require.NoError(t, err)
	defer cleanup()
	require.Same(t, cmd, wrapped)
}

func TestSeatbeltBackend_Available(t *testing.T) {
	backend := &SeatbeltBackend{}
	if runtime.GOOS == "darwin" {
		_ = backend.Available()
	} else {
		require.False(t, backend.Available())
	}
}

func TestSeatbeltBackend_RenderProfile(t *testing.T) {
	backend := &SeatbeltBackend{}

	restrictive, err := backend.RenderProfile("/usr/local/bin/skillet", &Config{})
	require.NoError(t, err)
	assert.Contains(t, restrictive, "(deny default)")
	assert.Contains(t, restrictive, `(literal "/usr/local/bin/skillet")`)
	assert.NotContains(t, restrictive, "(allow network*)")

	permissive, err := backend.RenderProfile("/bin/x", &Config{Seatbelt: SeatbeltConfig{Profile: "permissive"}})
	require.NoError(t, err)
	assert.Contains(t, permissive, "(allow default)")
	assert.Contains(t, permissive, "(deny network*)")

	custom := filepath.Join(t.TempDir(), "custom.sb")
	require.NoError(t, os.WriteFile(custom, []byte("(version 1) ; {{ .Executable }}"), 0o644))
	out, err := backend.RenderProfile("/bin/y", &Config{Seatbelt: SeatbeltConfig{CustomProfilePath: custom}})
	require.NoError(t, err)
	assert.Equal(t, "(version 1) ; /bin/y", out)
}

func TestDockerBackend_WrapCommand_Args(t *testing.T) {
	backend := &DockerBackend{command: "docker"}
	readDir := t.TempDir()

	cfg := &Config{
		ReadPaths: []string{filepath.Join(readDir, "**")},
		Docker: DockerConfig{
			Image:     "test-image",
			Memory:    "128m",
			CPUs:      "0.5",
			PidsLimit: 32,
		},
	}

	cmd := exec.Command("/opt/skillet", "child")
	cmd.Env = []string{ChildEnvVar + "=1"}
	wrapped, cleanup, err := backend.WrapCommand(context.Background(), cmd, cfg)
	require.NoError(t, err)
	defer cleanup()

	argsStr := strings.Join(wrapped.Args, " ")
	assert.Contains(t, argsStr, "run --rm -i --init")
	assert.Contains(t, argsStr, "--read-only")
	assert.Contains(t, argsStr, "--network none")
	assert.Contains(t, argsStr, "--memory 128m")
	assert.Contains(t, argsStr, "--cpus 0.5")
	assert.Contains(t, argsStr, "--pids-limit 32")
	assert.Contains(t, argsStr, "--volume /opt/skillet:"+containerExecutable+":ro")
	assert.Contains(t, argsStr, "--volume "+readDir+":"+readDir+":ro")
	assert.Contains(t, argsStr, "--env "+ChildEnvVar+"=1")
	assert.Contains(t, argsStr, "--cidfile")
	assert.True(t, strings.HasSuffix(argsStr, "test-image "+containerExecutable+" child"))
}

func TestDockerBackend_AllowNetwork(t *testing.T) {
	backend := &DockerBackend{command: "podman"}
	cmd := exec.Command("/opt/skillet")
	wrapped, cleanup, err := backend.WrapCommand(context.Background(), cmd, &Config{AllowNetwork: true})
	require.NoError(t, err)
	defer cleanup()
	argsStr := strings.Join(wrapped.Args, " ")
	assert.NotContains(t, argsStr, "--network none")
	assert.Contains(t, argsStr, DefaultDockerImage)
	assert.Equal(t, "podman", filepath.Base(wrapped.Path))
}

func TestMountRoot(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/data/**", "/data"},
		{"/data/docs/*.txt", "/data/docs"},
		{"/data/file.txt", "/data/file.txt"},
		{"/**", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, MountRoot(tt.pattern))
		})
	}
}
