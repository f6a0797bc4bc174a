package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"doccov/internal/slogutil"
)

// waitDelay bounds how long a killed process may hold its output pipes.
const waitDelay = 2 * time.Second

// LocalBackend runs examples with the host go command in temporary
// directories.
type LocalBackend struct {
	goBinary string
	logger   *slog.Logger
}

// NewLocalBackend creates a local backend; goBinary defaults to "go".
func NewLocalBackend(goBinary string, logger *slog.Logger) *LocalBackend {
	if goBinary == "" {
		goBinary = "go"
	}
	return &LocalBackend{goBinary: goBinary, logger: slogutil.OrDiscard(logger)}
}

// Name implements Backend.
func (b *LocalBackend) Name() string { return BackendLocal }

// Provision creates a fresh temporary directory.
func (b *LocalBackend) Provision(ctx context.Context) (Workspace, error) {
	if _, err := exec.LookPath(b.goBinary); err != nil {
		return nil, fmt.Errorf("go toolchain not found: %w", err)
	}
	dir, err := os.MkdirTemp("", "doccov-example-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	b.logger.Debug("workspace provisioned", "backend", BackendLocal, "dir", dir)
	return &localWorkspace{dir: dir, goBinary: b.goBinary, logger: b.logger}, nil
}

type localWorkspace struct {
	dir      string
	goBinary string
	logger   *slog.Logger
	closed   bool
}

func (w *localWorkspace) WriteFile(_ context.Context, name string, data []byte) error {
	return os.WriteFile(filepath.Join(w.dir, name), data, 0o644)
}

func (w *localWorkspace) Exec(ctx context.Context, args ...string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, w.goBinary, args...)
	cmd.Dir = w.dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod", "GO111MODULE=on")
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if cmd.Process != nil {
		// Processes the example left behind share the group.
		_ = killProcessGroup(cmd.Process.Pid)
	}
	res := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Command executed but returned non-zero exit code
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		return res, nil
	}
	// Some other error (e.g., command not found, permission denied)
	return res, fmt.Errorf("run go %v: %w", args, err)
}

func (w *localWorkspace) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.logger.Debug("workspace removed", "backend", BackendLocal, "dir", w.dir)
	return os.RemoveAll(w.dir)
}
