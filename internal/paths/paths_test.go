package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "pkg", "add.go")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("package pkg\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath: %v", err)
	}
	if got != "pkg/add.go" {
		t.Errorf("CanonicalizePath = %q, want %q", got, "pkg/add.go")
	}

	// Files that do not exist yet are still made relative.
	got, err = CanonicalizePath(filepath.Join(root, "new.go"), root)
	if err != nil || got != "new.go" {
		t.Errorf("CanonicalizePath(missing) = %q, %v", got, err)
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "a.go"), true},
		{filepath.Join(root, "sub", "b.go"), true},
		{filepath.Join(root, "..", "outside.go"), false},
		{filepath.Join(root, "..dots", "x.go"), true},
	}
	for _, tt := range tests {
		if got := IsWithinRepo(tt.path, root); got != tt.want {
			t.Errorf("IsWithinRepo(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestJoinRepoPath(t *testing.T) {
	got := JoinRepoPath("/repo", "internal/pkg/a.go")
	want := filepath.Join("/repo", "internal", "pkg", "a.go")
	if got != want {
		t.Errorf("JoinRepoPath = %q, want %q", got, want)
	}
}

func TestCacheFile(t *testing.T) {
	got := CacheFile("/repo")
	want := filepath.Join("/repo", ".doccov", "spec.cache.json")
	if got != want {
		t.Errorf("CacheFile = %q, want %q", got, want)
	}
}

func TestFindModule(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/lib\n\ngo 1.22\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "inner", "deep")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	mod, err := FindModule(sub)
	if err != nil {
		t.Fatalf("FindModule: %v", err)
	}
	if mod.Path != "example.com/lib" {
		t.Errorf("Path = %q, want example.com/lib", mod.Path)
	}
	wantRoot, _ := filepath.EvalSymlinks(root)
	gotRoot, _ := filepath.EvalSymlinks(mod.Root)
	if gotRoot != wantRoot {
		t.Errorf("Root = %q, want %q", gotRoot, wantRoot)
	}
}

func TestFindModule_NoGoMod(t *testing.T) {
	if _, err := FindModule(t.TempDir()); err == nil {
		t.Skip("a go.mod exists above the temp dir on this machine")
	}
}

func TestFindWorkFile_Off(t *testing.T) {
	t.Setenv("GOWORK", "off")
	if got := FindWorkFile(t.TempDir()); got != "" {
		t.Errorf("FindWorkFile with GOWORK=off = %q, want empty", got)
	}
}
