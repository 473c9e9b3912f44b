package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/deepnoodle-ai/skillet/script"
)

// IsChild reports whether this process was started by a Harness.
func IsChild() bool {
	return os.Getenv(ChildEnvVar) == "1"
}

// RunChild executes one sandbox request read from stdin and returns the
// process exit code. Binaries that use a Harness call it early in main:
//
//	if sandbox.IsChild() {
//	    os.Exit(sandbox.RunChild(os.Stdin, os.Stdout, os.Stderr))
//	}
func RunChild(stdin io.Reader, stdout, stderr io.Writer) int {
	var req request
	if err := json.NewDecoder(stdin).Decode(&req); err != nil {
		fmt.Fprintf(stderr, "%sinvalid sandbox request: %v\n", errorPrefix, err)
		return 1
	}

	ctx := context.Background()
	if req.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	var opts []script.Option
	if len(req.Modules) > 0 {
		opts = append(opts, script.WithModules(req.Modules...))
	}
	program, err := script.Compile(ctx, req.Code, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "%s%s\n", errorPrefix, childError(err))
		return 1
	}

	var logs []string
	env := script.Env{
		Log:       func(msg string) { logs = append(logs, msg) },
		ReadPaths: req.ReadPaths,
	}
	if err := program.Call(ctx, env, req.Params); err != nil {
		fmt.Fprintf(stderr, "%s%s\n", errorPrefix, childError(err))
		return 1
	}

	var b strings.Builder
	b.WriteString(successLine + "\n")
	for _, msg := range logs {
		b.WriteString(logPrefix + msg + "\n")
	}
	if _, err := io.WriteString(stdout, b.String()); err != nil {
		return 1
	}
	return 0
}

func childError(err error) string {
	var ce *script.CompileError
	if errors.As(err, &ce) {
		return ce.Err.Error()
	}
	return err.Error()
}
