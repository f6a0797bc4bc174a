package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"doccov/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(err))
	}
}

// reportError prints err to stderr and returns the process exit code.
// A failed gate exits 1 without a message of its own.
func reportError(err error) int {
	var gate *gateError
	if stderrors.As(err, &gate) {
		if gate.msg != "" {
			fmt.Fprintln(os.Stderr, gate.msg)
		}
		return 1
	}

	var de *errors.DoccovError
	if stderrors.As(err, &de) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, fix := range de.SuggestedFixes {
			fmt.Fprintf(os.Stderr, "  - %s\n", fix.Description)
			if fix.Command != "" {
				fmt.Fprintf(os.Stderr, "    $ %s\n", fix.Command)
			}
		}
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 2
}

// gateError marks a command that ran to completion but whose result fails
// a threshold (coverage, breaking changes, example runs).
type gateError struct {
	msg string
}

func (e *gateError) Error() string {
	if e.msg == "" {
		return "check failed"
	}
	return e.msg
}
