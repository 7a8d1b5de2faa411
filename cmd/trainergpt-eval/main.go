// Command trainergpt-eval runs the coaching eval scenarios against a model
// and reports which pass.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// errFailed signals a completed run with failing scenarios.
var errFailed = errors.New("one or more scenarios failed")

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
