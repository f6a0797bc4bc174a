package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doccov/internal/config"
	"doccov/internal/diff"
	"doccov/internal/errors"
	"doccov/internal/openpkg"
	"doccov/internal/sandbox"
	"doccov/internal/speccache"
	"doccov/internal/testutil"
)

const calcSource = `
// Package calc does arithmetic.
package calc

// Add returns the sum of a and b.
//
// @param a first operand
// @param b second operand
// @returns {int} the sum
// @example
//     fmt.Println(calc.Add(1, 2))
//     // Output: 3
func Add(a, b int) int { return a + b }

// Sub returns a minus b.
//
// @param x first operand
// @param b second operand
// @returns {int} the difference
func Sub(a, b int) int { return a - b }
`

// fakeBackend answers "go run" with a fixed stdout and records every
// command it was asked to run.
type fakeBackend struct {
	stdout string

	mu       sync.Mutex
	commands []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Provision(context.Context) (sandbox.Workspace, error) {
	return &fakeWorkspace{backend: f}, nil
}

type fakeWorkspace struct {
	backend *fakeBackend
}

func (w *fakeWorkspace) WriteFile(context.Context, string, []byte) error { return nil }

func (w *fakeWorkspace) Exec(_ context.Context, args ...string) (sandbox.ExecResult, error) {
	w.backend.mu.Lock()
	w.backend.commands = append(w.backend.commands, strings.Join(args, " "))
	w.backend.mu.Unlock()
	if len(args) > 0 && args[0] == "run" {
		return sandbox.ExecResult{Stdout: w.backend.stdout}, nil
	}
	return sandbox.ExecResult{}, nil
}

func (w *fakeWorkspace) Close() error { return nil }

func writeCalc(t *testing.T) *testutil.Module {
	t.Helper()
	testutil.RequireGo(t)
	return testutil.WriteModule(t, "example.com/calc", map[string]string{"calc.go": calcSource})
}

func exportIDs(s *openpkg.Spec) []string {
	ids := make([]string, len(s.Exports))
	for i, e := range s.Exports {
		ids[i] = e.ID
	}
	return ids
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestSpec_Cache(t *testing.T) {
	mod := writeCalc(t)
	e := New(nil, nil)
	ctx := context.Background()

	first, err := e.Spec(ctx, SpecOptions{Entry: mod.File("calc.go")})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, speccache.ReasonVersionMismatch, first.Cache.Reason)
	assert.Equal(t, "example.com/calc", first.Spec.Meta.Name)
	assert.FileExists(t, filepath.Join(mod.Root, ".doccov", "spec.cache.json"))

	second, err := e.Spec(ctx, SpecOptions{Entry: mod.File("calc.go")})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, exportIDs(first.Spec), exportIDs(second.Spec))

	versioned, err := e.Spec(ctx, SpecOptions{Entry: mod.File("calc.go"), Version: "2.0.0"})
	require.NoError(t, err)
	assert.True(t, versioned.FromCache)
	assert.Equal(t, "2.0.0", versioned.Spec.Meta.Version)
	assert.NotEqual(t, "2.0.0", second.Spec.Meta.Version, "cached spec must not be mutated")

	mod.Write(t, "calc.go", calcSource+"\n// Mul multiplies.\nfunc Mul(a, b int) int { return a * b }\n")
	third, err := e.Spec(ctx, SpecOptions{Entry: mod.File("calc.go")})
	require.NoError(t, err)
	assert.False(t, third.FromCache)
	assert.Equal(t, speccache.ReasonSourceFilesChanged, third.Cache.Reason)
	assert.Equal(t, []string{"calc.go"}, third.Cache.ChangedFiles)
	_, ok := third.Spec.Export("Mul")
	assert.True(t, ok)

	bypass, err := e.Spec(ctx, SpecOptions{Entry: mod.File("calc.go"), NoCache: true})
	require.NoError(t, err)
	assert.False(t, bypass.FromCache)
	assert.Empty(t, bypass.Cache.Reason)
}

func TestSpec_CacheWithConstrainedFiles(t *testing.T) {
	testutil.RequireGo(t)
	mod := testutil.WriteModule(t, "example.com/calc", map[string]string{
		"calc.go":         calcSource,
		"calc_windows.go": "package calc\n\nfunc onWindows() {}\n",
		"gen.go":          "//go:build ignore\n\npackage main\n\nfunc main() {}\n",
	})
	e := New(nil, nil)
	ctx := context.Background()

	_, err := e.Spec(ctx, SpecOptions{Entry: mod.Root})
	require.NoError(t, err)

	second, err := e.Spec(ctx, SpecOptions{Entry: mod.Root})
	require.NoError(t, err)
	assert.True(t, second.FromCache, "cache must validate: %+v", second.Cache)

	mod.Write(t, "gen.go", "//go:build ignore\n\npackage main\n\nfunc main() { println() }\n")
	third, err := e.Spec(ctx, SpecOptions{Entry: mod.Root})
	require.NoError(t, err)
	assert.False(t, third.FromCache)
	assert.Equal(t, []string{"gen.go"}, third.Cache.ChangedFiles)
}

func TestSpec_CacheWithExternalTypes(t *testing.T) {
	testutil.RequireGo(t)
	mod := testutil.WriteModule(t, "example.com/calc", map[string]string{
		"calc.go":             "package calc\n\nimport \"example.com/calc/inner\"\n\n// Wrap wraps.\nfunc Wrap() inner.Value { return inner.Value{} }\n",
		"inner/inner.go":      "package inner\n\n// Value is a value.\ntype Value struct{ N int }\n",
		"inner/inner_test.go": "package inner\n",
	})
	e := New(nil, nil)
	opts := SpecOptions{Entry: mod.Root, ResolveExternalTypes: true}

	_, err := e.Spec(context.Background(), opts)
	require.NoError(t, err)
	second, err := e.Spec(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, second.FromCache, "cache must validate: %+v", second.Cache)
}

func TestSpec_CacheKeepsDiagnostics(t *testing.T) {
	testutil.RequireGo(t)
	mod := testutil.WriteModule(t, "example.com/calc", map[string]string{
		"calc.go":   calcSource,
		"broken.go": "package calc\n\n// Bad is broken.\nfunc Bad() Missing { return nil }\n",
	})
	e := New(nil, nil)
	ctx := context.Background()

	first, err := e.Spec(ctx, SpecOptions{Entry: mod.Root})
	require.NoError(t, err)
	require.False(t, first.FromCache)
	require.NotEmpty(t, first.Diagnostics)

	second, err := e.Spec(ctx, SpecOptions{Entry: mod.Root})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

func TestSpec_CacheDisabled(t *testing.T) {
	mod := writeCalc(t)
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false

	_, err := New(cfg, nil).Spec(context.Background(), SpecOptions{Entry: mod.Root})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(mod.Root, ".doccov", "spec.cache.json"))
}

func TestSpec_EntryNotFound(t *testing.T) {
	_, err := New(nil, nil).Spec(context.Background(), SpecOptions{Entry: filepath.Join(t.TempDir(), "missing.go")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.EntryNotFound))
}

func TestCheck(t *testing.T) {
	mod := writeCalc(t)
	e := New(nil, nil, WithClock(fixedClock))

	res, err := e.Check(context.Background(), CheckOptions{SpecOptions: SpecOptions{Entry: mod.Root}})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, "2026-01-02T03:04:05Z", r.GeneratedAt)
	assert.Equal(t, 2, r.Summary.TotalExports)
	assert.Equal(t, 1, r.Summary.DriftByType[openpkg.DriftParamMismatch])
	assert.Empty(t, r.Examples)

	sub, ok := res.Spec.Export("Sub")
	require.True(t, ok)
	require.NotNil(t, sub.Docs)
	require.NotEmpty(t, sub.Docs.Drift)
	assert.Equal(t, openpkg.DriftParamMismatch, sub.Docs.Drift[0].Type)

	add, ok := res.Spec.Export("Add")
	require.True(t, ok)
	assert.Equal(t, 100, add.CoverageScore())
}

func TestCheck_RunExamples(t *testing.T) {
	mod := writeCalc(t)

	t.Run("passing", func(t *testing.T) {
		backend := &fakeBackend{stdout: "3\n"}
		res, err := New(nil, nil, WithBackend(backend)).Check(context.Background(), CheckOptions{
			SpecOptions: SpecOptions{Entry: mod.Root},
			RunExamples: true,
		})
		require.NoError(t, err)

		require.Len(t, res.Report.Examples, 1)
		run := res.Report.Examples[0]
		assert.Equal(t, "Add", run.ExportID)
		assert.True(t, run.Result.Success)
		assert.Nil(t, run.Drift)
		assert.Equal(t, 0, res.Report.Summary.DriftByCategory[openpkg.CategoryExample])
		assert.Contains(t, backend.commands, "get example.com/calc@latest")
	})

	t.Run("wrong output", func(t *testing.T) {
		backend := &fakeBackend{stdout: "4\n"}
		res, err := New(nil, nil, WithBackend(backend)).Check(context.Background(), CheckOptions{
			SpecOptions: SpecOptions{Entry: mod.Root},
			RunExamples: true,
		})
		require.NoError(t, err)

		require.Len(t, res.Report.Examples, 1)
		require.NotNil(t, res.Report.Examples[0].Drift)
		assert.Equal(t, openpkg.DriftExampleAssertionFailed, res.Report.Examples[0].Drift.Type)
		assert.Equal(t, 1, res.Report.Summary.DriftByCategory[openpkg.CategoryExample])
		assert.Len(t, res.Report.Failed(), 1)
	})
}

func TestCheck_UnknownBackend(t *testing.T) {
	mod := writeCalc(t)
	_, err := New(nil, nil).Check(context.Background(), CheckOptions{
		SpecOptions: SpecOptions{Entry: mod.Root},
		RunExamples: true,
		Backend:     "vm",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.SandboxUnavailable))
}

func TestRunExample(t *testing.T) {
	backend := &fakeBackend{stdout: "hello\n"}
	res, err := New(nil, nil, WithBackend(backend)).RunExample(context.Background(), sandbox.Request{
		PackageName: "strings",
		Code:        `fmt.Println("hello")`,
	}, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.NotContains(t, strings.Join(backend.commands, "\n"), "get strings")
}

func calcSpec(exports ...openpkg.Export) *openpkg.Spec {
	s := openpkg.New("example.com/calc", "1.0.0")
	s.Exports = exports
	openpkg.Normalize(s)
	return s
}

func intFunc(name string, params ...string) openpkg.Export {
	sig := openpkg.Signature{Returns: &openpkg.Returns{Schema: openpkg.Primitive(openpkg.TypeInteger)}}
	for _, p := range params {
		sig.Parameters = append(sig.Parameters, openpkg.Parameter{Name: p, Schema: openpkg.Primitive(openpkg.TypeInteger), Required: true})
	}
	return openpkg.Export{
		ID: name, Name: name, Kind: openpkg.KindFunction,
		Description: name + " does arithmetic.",
		Signatures:  []openpkg.Signature{sig},
		Tags:        []openpkg.Tag{},
	}
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.json")
	headPath := filepath.Join(dir, "head.json.zst")
	require.NoError(t, openpkg.Save(basePath, calcSpec(intFunc("Add", "a", "b"), intFunc("Div", "a", "b"))))
	require.NoError(t, openpkg.Save(headPath, calcSpec(intFunc("Add", "a", "b", "c"))))
	testutil.WriteFile(t, dir, "docs/README.md", "Call `calc.Div` to divide.\n")

	d, err := New(nil, nil).Diff(context.Background(), DiffOptions{
		Base:     basePath,
		Head:     headPath,
		Docs:     []string{"docs/**/*.md"},
		DocsRoot: dir,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Add", "Div"}, d.Breaking)
	assert.Equal(t, "major", d.SemverAdvice)
	assert.True(t, d.HasBreakingChanges())
	require.NotNil(t, d.DocsImpact)

	var kinds []diff.ChangeKind
	for _, c := range d.Changes {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, diff.ChangeRemoved)
}

func TestDiff_Errors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, openpkg.Save(good, calcSpec(intFunc("Add", "a", "b"))))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"openpkg":"1.0.0","meta":{}}`), 0o644))

	e := New(nil, nil)
	_, err := e.Diff(context.Background(), DiffOptions{Base: filepath.Join(dir, "missing.json"), Head: good})
	assert.True(t, errors.Is(err, errors.EntryNotFound), "got %v", err)

	_, err = e.Diff(context.Background(), DiffOptions{Base: good, Head: bad})
	assert.True(t, errors.Is(err, errors.SpecInvalid), "got %v", err)
}

func TestDiffSpecs_EnrichesRawSpecs(t *testing.T) {
	base := calcSpec(intFunc("Add", "a", "b"))
	head := calcSpec(intFunc("Add", "a", "b"))

	d := New(nil, nil).DiffSpecs(context.Background(), base, head, nil)
	assert.Empty(t, d.Changes)
	assert.Equal(t, "patch", d.SemverAdvice)
	assert.Nil(t, d.DocsImpact)
	assert.Nil(t, base.Exports[0].Docs, "inputs must not be mutated")
}
