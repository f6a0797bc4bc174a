// Package extract walks the exported declarations of a Go package with the
// type checker and builds its openpkg spec.
package extract

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/tools/go/packages"

	"doccov/internal/adapters"
	"doccov/internal/errors"
	"doccov/internal/openpkg"
	"doccov/internal/paths"
	"doccov/internal/slogutil"
)

// DefaultMaxDepth bounds expansion of anonymous and external types.
const DefaultMaxDepth = 4

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedDeps | packages.NeedTypes | packages.NeedTypesInfo |
	packages.NeedSyntax | packages.NeedModule

// Options configures one extraction.
type Options struct {
	// Entry is a .go file or a package directory.
	Entry string
	// MaxDepth bounds type expansion; beyond it a name-only node is emitted.
	MaxDepth int
	// ResolveExternalTypes expands named types from other packages instead
	// of referencing them by qualified name.
	ResolveExternalTypes bool
	// Version is written to meta.version.
	Version string
	// Exclude holds doublestar globs, relative to the module root, of files
	// whose declarations are skipped.
	Exclude []string
}

// Result is the output of an extraction.
type Result struct {
	Spec        *openpkg.Spec
	Diagnostics []openpkg.Diagnostic
	// SourceFiles lists every analysed file relative to ModuleRoot.
	SourceFiles []string
	ModuleRoot  string
	PackagePath string
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == openpkg.SeverityError {
			return true
		}
	}
	return false
}

// Extractor builds specs. It holds no per-run state and may be reused.
type Extractor struct {
	registry *adapters.Registry
	logger   *slog.Logger
}

// New creates an extractor consulting registry for schema adapters.
// A nil registry disables adapters.
func New(registry *adapters.Registry, logger *slog.Logger) *Extractor {
	return &Extractor{registry: registry, logger: slogutil.OrDiscard(logger)}
}

// Extract loads the package containing opts.Entry and describes its exports.
// Load and type errors are reported as diagnostics; an error is returned only
// when the entry is missing or no package could be loaded at all.
func (x *Extractor) Extract(ctx context.Context, opts Options) (*Result, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	entry, err := filepath.Abs(opts.Entry)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(entry)
	if err != nil {
		return nil, errors.New(errors.EntryNotFound, "entry "+opts.Entry+" not found", err)
	}
	dir := entry
	if !info.IsDir() {
		dir = filepath.Dir(entry)
	}

	mod, err := paths.FindModule(dir)
	if err != nil {
		return nil, errors.New(errors.PackageLoadFailed, "locate go.mod", err)
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     dir,
		Tests:   true,
		Logf: func(format string, args ...any) {
			x.logger.Debug(fmt.Sprintf(format, args...), "component", "packages")
		},
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, errors.New(errors.PackageLoadFailed, "load "+dir, err)
	}

	primary, testFiles := splitVariants(pkgs)
	if primary == nil || primary.Types == nil {
		return nil, errors.New(errors.PackageLoadFailed, "no Go package found in "+dir, nil)
	}
	x.logger.Debug("package loaded",
		"path", primary.PkgPath,
		"files", len(primary.Syntax),
		"testFiles", len(testFiles),
	)

	res := &Result{ModuleRoot: mod.Root, PackagePath: primary.PkgPath}
	for _, pe := range primary.Errors {
		res.Diagnostics = append(res.Diagnostics, loadDiagnostic(pe, mod.Root))
	}

	b := &builder{
		pkg:      primary,
		fset:     primary.Fset,
		root:     mod.Root,
		opts:     opts,
		registry: x.registry,
		logger:   x.logger,
		docs:     indexDocs(primary.Syntax),
		refs:     map[string]bool{},
	}
	spec := b.build(mod.Path, testFiles)
	res.Spec = spec
	res.Diagnostics = append(res.Diagnostics, b.diags...)
	res.SourceFiles = sourceFiles(primary, testFiles, mod.Root, opts)

	x.logger.Info("spec extracted",
		"package", primary.PkgPath,
		"exports", len(spec.Exports),
		"types", len(spec.Types),
		"diagnostics", len(res.Diagnostics),
	)
	return res, nil
}

// splitVariants picks the non-test package and collects the syntax of every
// _test.go file of its test variants, deduplicated by file name.
func splitVariants(pkgs []*packages.Package) (*packages.Package, []*ast.File) {
	var primary *packages.Package
	for _, p := range pkgs {
		if p.ID == p.PkgPath && !strings.HasSuffix(p.PkgPath, "_test") && !strings.HasSuffix(p.PkgPath, ".test") {
			primary = p
			break
		}
	}
	if primary == nil {
		return nil, nil
	}

	seen := map[string]bool{}
	var tests []*ast.File
	for _, p := range pkgs {
		if p.PkgPath != primary.PkgPath && p.PkgPath != primary.PkgPath+"_test" {
			continue
		}
		for _, f := range p.Syntax {
			name := p.Fset.File(f.Pos()).Name()
			if !strings.HasSuffix(name, "_test.go") || seen[name] {
				continue
			}
			seen[name] = true
			tests = append(tests, f)
		}
	}
	return primary, tests
}

func loadDiagnostic(pe packages.Error, root string) openpkg.Diagnostic {
	d := openpkg.Diagnostic{Message: pe.Msg, Severity: openpkg.SeverityError}
	file, line, col := splitPos(pe.Pos)
	if file != "" {
		if rel, err := paths.CanonicalizePath(file, root); err == nil {
			file = rel
		}
	}
	d.File, d.Line, d.Column = file, line, col
	return d
}

// splitPos parses "file:line:col" (line and column optional).
func splitPos(pos string) (string, int, int) {
	if pos == "" || pos == "-" {
		return "", 0, 0
	}
	parts := strings.Split(pos, ":")
	var nums []int
	for len(parts) > 1 {
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			break
		}
		nums = append([]int{n}, nums...)
		parts = parts[:len(parts)-1]
	}
	file := strings.Join(parts, ":")
	switch len(nums) {
	case 0:
		return file, 0, 0
	case 1:
		return file, nums[0], 0
	default:
		return file, nums[0], nums[1]
	}
}

// sourceFiles lists the files whose content the spec depends on.
func sourceFiles(pkg *packages.Package, tests []*ast.File, root string, opts Options) []string {
	set := map[string]bool{}
	add := func(abs string) {
		rel, err := paths.CanonicalizePath(abs, root)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			return
		}
		if excluded(rel, opts.Exclude) {
			return
		}
		set[rel] = true
	}

	dirs := map[string]bool{}
	addPkg := func(p *packages.Package) {
		for _, f := range p.GoFiles {
			add(f)
			dirs[filepath.Dir(f)] = true
		}
		for _, f := range p.IgnoredFiles {
			add(f)
		}
	}

	addPkg(pkg)
	for _, f := range tests {
		add(pkg.Fset.File(f.Pos()).Name())
	}
	if opts.ResolveExternalTypes {
		seen := map[string]bool{}
		var visit func(p *packages.Package)
		visit = func(p *packages.Package) {
			for _, imp := range p.Imports {
				if seen[imp.PkgPath] {
					continue
				}
				seen[imp.PkgPath] = true
				if imp.Module == nil || pkg.Module == nil || imp.Module.Path != pkg.Module.Path {
					continue
				}
				addPkg(imp)
				visit(imp)
			}
		}
		visit(pkg)
	}

	// Every Go file of a covered directory is recorded, including test files
	// and files excluded by build constraints, so a later directory scan
	// only reports files that are new.
	for dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") {
				add(filepath.Join(dir, e.Name()))
			}
		}
	}

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func excluded(rel string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func position(fset *token.FileSet, pos token.Pos, root string) openpkg.Source {
	p := fset.Position(pos)
	file := p.Filename
	if rel, err := paths.CanonicalizePath(file, root); err == nil {
		file = rel
	}
	return openpkg.Source{File: file, Line: p.Line}
}
