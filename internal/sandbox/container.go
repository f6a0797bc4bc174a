package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"

	"doccov/internal/slogutil"
)

// containerWorkDir is where examples live inside the container.
const containerWorkDir = "/work"

// ContainerBackend runs every example in its own throwaway container built
// from a Go toolchain image.
type ContainerBackend struct {
	image  string
	logger *slog.Logger
}

// NewContainerBackend creates a container backend for image, for example
// "golang:1.24-alpine".
func NewContainerBackend(image string, logger *slog.Logger) *ContainerBackend {
	return &ContainerBackend{image: image, logger: slogutil.OrDiscard(logger)}
}

// Name implements Backend.
func (b *ContainerBackend) Name() string { return BackendContainer }

// Provision starts a container that idles until the workspace is closed.
func (b *ContainerBackend) Provision(ctx context.Context) (Workspace, error) {
	req := testcontainers.ContainerRequest{
		Image:      b.image,
		Entrypoint: []string{"sleep"},
		Cmd:        []string{"infinity"},
		WorkingDir: containerWorkDir,
		Env: map[string]string{
			"GOWORK":      "off",
			"GOFLAGS":     "-mod=mod",
			"CGO_ENABLED": "0",
		},
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if c != nil {
			_ = c.Terminate(context.Background())
		}
		return nil, fmt.Errorf("start %s container: %w", b.image, err)
	}

	w := &containerWorkspace{container: c, logger: b.logger}
	if code, _, err := c.Exec(ctx, []string{"mkdir", "-p", containerWorkDir}); err != nil || code != 0 {
		_ = w.Close()
		return nil, fmt.Errorf("prepare container workspace (exit %d): %v", code, err)
	}
	b.logger.Debug("workspace provisioned", "backend", BackendContainer, "container", c.GetContainerID())
	return w, nil
}

type containerWorkspace struct {
	container testcontainers.Container
	logger    *slog.Logger
	closed    bool
}

func (w *containerWorkspace) WriteFile(ctx context.Context, name string, data []byte) error {
	return w.container.CopyToContainer(ctx, data, path.Join(containerWorkDir, name), 0o644)
}

func (w *containerWorkspace) Exec(ctx context.Context, args ...string) (ExecResult, error) {
	cmd := append([]string{"go"}, args...)
	code, reader, err := w.container.Exec(ctx, cmd, tcexec.WithWorkingDir(containerWorkDir))
	if err != nil {
		return ExecResult{ExitCode: -1}, fmt.Errorf("exec %v: %w", cmd, err)
	}

	var stdout, stderr bytes.Buffer
	if reader != nil {
		if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
			return ExecResult{ExitCode: code}, fmt.Errorf("read output of %v: %w", cmd, err)
		}
	}
	return ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}, nil
}

func (w *containerWorkspace) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.logger.Debug("workspace removed", "backend", BackendContainer, "container", w.container.GetContainerID())
	// The run context may already be cancelled; termination must still happen.
	return w.container.Terminate(context.Background())
}
