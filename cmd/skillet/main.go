package main

import (
	"os"

	"github.com/deepnoodle-ai/skillet/cmd/skillet/cli"
	"github.com/deepnoodle-ai/skillet/sandbox"
)

func main() {
	// The sandbox harness re-executes this binary to run untrusted code.
	if sandbox.IsChild() {
		os.Exit(sandbox.RunChild(os.Stdin, os.Stdout, os.Stderr))
	}
	cli.Execute()
}
