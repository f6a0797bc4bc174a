package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

const (
	// StateDir is the per-module directory holding config and cache.
	StateDir = ".doccov"
	// CacheFileName is the spec cache file inside StateDir.
	CacheFileName = "spec.cache.json"
)

// ConfigDir returns <root>/.doccov
func ConfigDir(root string) string {
	return filepath.Join(root, StateDir)
}

// CacheFile returns the fixed spec cache location for a module root.
func CacheFile(root string) string {
	return filepath.Join(root, StateDir, CacheFileName)
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks on both sides when they exist.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRepo checks if a path is within the root
func IsWithinRepo(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinRepoPath joins a root with a canonical (slash separated) path
func JoinRepoPath(root string, canonicalPath string) string {
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	return filepath.Join(append([]string{root}, strings.Split(normalized, "/")...)...)
}

// Module describes the Go module enclosing a path.
type Module struct {
	Root string // absolute directory holding go.mod
	Path string // module path from the module directive
}

// FindModule walks up from start until it finds a go.mod.
func FindModule(start string) (*Module, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for dir := abs; ; dir = filepath.Dir(dir) {
		gomod := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(gomod)
		if err == nil {
			path := modfile.ModulePath(data)
			if path == "" {
				return nil, fmt.Errorf("%s has no module directive", gomod)
			}
			return &Module{Root: dir, Path: path}, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		if parent := filepath.Dir(dir); parent == dir {
			return nil, fmt.Errorf("no go.mod found above %s", start)
		}
	}
}

// FindWorkFile returns the go.work governing root, or "" when there is none.
func FindWorkFile(root string) string {
	if env := os.Getenv("GOWORK"); env != "" {
		if env == "off" {
			return ""
		}
		return env
	}
	for dir := root; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "go.work")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if parent := filepath.Dir(dir); parent == dir {
			return ""
		}
	}
}
