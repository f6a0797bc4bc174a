// Package sandbox runs documented examples in disposable Go workspaces and
// maps their outcome to example drift findings.
package sandbox

import (
	"context"
	"time"

	"doccov/internal/config"
)

// Backend names.
const (
	BackendLocal     = "local"
	BackendContainer = "container"
)

// Request asks for one example to be executed.
type Request struct {
	PackageName    string `json:"packageName"`
	PackageVersion string `json:"packageVersion,omitempty"`
	Code           string `json:"code"`

	// ModulePath and ModuleDir point the workspace at an unpublished local
	// module through a replace directive. Only the local backend can see
	// host directories.
	ModulePath string `json:"-"`
	ModuleDir  string `json:"-"`
}

// ExecResult is the outcome of one command inside a workspace.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Workspace is an isolated directory with a Go toolchain. Exec runs the go
// command with args; a non-zero exit is reported in ExecResult, not as an
// error. Close releases everything the workspace holds and is safe to call
// more than once.
type Workspace interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	Exec(ctx context.Context, args ...string) (ExecResult, error)
	Close() error
}

// Backend provisions workspaces.
type Backend interface {
	Name() string
	Provision(ctx context.Context) (Workspace, error)
}

// Options tunes the runner.
type Options struct {
	InstallTimeout time.Duration
	ExecTimeout    time.Duration
	Concurrency    int
}

// DefaultOptions returns the documented defaults: 60s to install, 10s to
// run, three examples at a time.
func DefaultOptions() Options {
	return Options{
		InstallTimeout: 60 * time.Second,
		ExecTimeout:    10 * time.Second,
		Concurrency:    3,
	}
}

// OptionsFromConfig converts sandbox configuration.
func OptionsFromConfig(cfg config.SandboxConfig) Options {
	opts := DefaultOptions()
	if cfg.InstallTimeoutMs > 0 {
		opts.InstallTimeout = time.Duration(cfg.InstallTimeoutMs) * time.Millisecond
	}
	if cfg.ExecTimeoutMs > 0 {
		opts.ExecTimeout = time.Duration(cfg.ExecTimeoutMs) * time.Millisecond
	}
	if cfg.Concurrency > 0 {
		opts.Concurrency = cfg.Concurrency
	}
	return opts
}
