package engine

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"

	"doccov/internal/diff"
	"doccov/internal/docs"
	"doccov/internal/errors"
	"doccov/internal/openpkg"
)

// DiffOptions names two spec snapshots and the Markdown files to check
// for references to changed exports.
type DiffOptions struct {
	Base string
	Head string
	// Docs holds doublestar globs resolved against DocsRoot.
	Docs     []string
	DocsRoot string
}

// Diff loads two snapshots (plain or .zst, validated on load) and compares
// them.
func (e *Engine) Diff(ctx context.Context, opts DiffOptions) (*diff.SpecDiffWithDocs, error) {
	base, err := openpkg.Load(opts.Base)
	if err != nil {
		return nil, loadError(opts.Base, err)
	}
	head, err := openpkg.Load(opts.Head)
	if err != nil {
		return nil, loadError(opts.Head, err)
	}

	var results []docs.ScanResult
	if len(opts.Docs) > 0 {
		root := opts.DocsRoot
		if root == "" {
			root = "."
		}
		if results, err = docs.NewScanner(root).ScanGlobs(opts.Docs); err != nil {
			return nil, errors.New(errors.InvalidRequest, "scan docs", err)
		}
	}
	return e.DiffSpecs(ctx, base, head, results), nil
}

// DiffSpecs compares two decoded specs. Specs that were never through the
// drift detector are enriched first, so coverage and drift deltas are
// meaningful for raw extractor output too.
func (e *Engine) DiffSpecs(_ context.Context, base, head *openpkg.Spec, docResults []docs.ScanResult) *diff.SpecDiffWithDocs {
	det := e.detector(false)
	if !enriched(base) {
		base = det.Enrich(base)
	}
	if !enriched(head) {
		head = det.Enrich(head)
	}

	var opts []diff.Option
	if docResults != nil {
		opts = append(opts, diff.WithDocs(docResults))
	}
	d := diff.Diff(base, head, opts...)
	e.logger.Info("specs compared",
		"package", head.Meta.Name,
		"breaking", len(d.Breaking),
		"nonBreaking", len(d.NonBreaking),
		"docsOnly", len(d.DocsOnly),
		"semver", d.SemverAdvice,
	)
	return d
}

// enriched reports whether any export carries docs results.
func enriched(spec *openpkg.Spec) bool {
	for i := range spec.Exports {
		if spec.Exports[i].Docs != nil {
			return true
		}
	}
	return false
}

func loadError(path string, err error) error {
	switch {
	case errors.CodeOf(err) != errors.InternalError:
		return err
	case stderrors.Is(err, fs.ErrNotExist):
		return errors.New(errors.EntryNotFound, "spec "+path+" not found", err)
	default:
		return errors.New(errors.SpecInvalid, "read spec "+filepath.Base(path), err)
	}
}
