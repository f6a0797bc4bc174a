// Package testutil provides fixtures and golden-file helpers for doccov tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Module is a throwaway Go module written under t.TempDir().
type Module struct {
	Root string
	Path string
}

// WriteModule creates a module with the given import path and files.
// File keys are slash-separated paths relative to the module root; a go.mod
// is added unless files already contain one.
func WriteModule(t *testing.T, modulePath string, files map[string]string) *Module {
	t.Helper()

	root := t.TempDir()
	if _, ok := files["go.mod"]; !ok {
		WriteFile(t, root, "go.mod", "module "+modulePath+"\n\ngo 1.22\n")
	}
	for name, content := range files {
		WriteFile(t, root, name, content)
	}
	return &Module{Root: root, Path: modulePath}
}

// File returns the absolute path of a module-relative file.
func (m *Module) File(rel string) string {
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}

// Write replaces (or adds) one file in the module.
func (m *Module) Write(t *testing.T, rel, content string) {
	t.Helper()
	WriteFile(t, m.Root, rel, content)
}

// Remove deletes one file from the module.
func (m *Module) Remove(t *testing.T, rel string) {
	t.Helper()
	if err := os.Remove(m.File(rel)); err != nil {
		t.Fatalf("remove %s: %v", rel, err)
	}
}

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// RequireGo skips the test when no go toolchain is on PATH.
// Package loading shells out to `go list`, so extractor tests need it.
func RequireGo(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
}
