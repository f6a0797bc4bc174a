// Package drift compares doc comments with the code they describe. It scores
// documentation coverage and reports drift findings per export.
package drift

import (
	"log/slog"
	"path"
	"strings"

	"doccov/internal/docs"
	"doccov/internal/openpkg"
	"doccov/internal/slogutil"
)

// Options tunes coverage scoring.
type Options struct {
	// RequireExamples makes the examples rule apply to functions and classes.
	RequireExamples bool
}

// Detector finds drift. Detection never fails: problems are findings.
type Detector struct {
	opts   Options
	fences *docs.FenceParser
	logger *slog.Logger
}

// New creates a detector.
func New(opts Options, logger *slog.Logger) *Detector {
	return &Detector{opts: opts, fences: docs.NewFenceParser(), logger: slogutil.OrDiscard(logger)}
}

// Known is the set of names a doc link or example may refer to.
type Known struct {
	Package  string // package name used as the qualifier in examples
	exports  map[string]bool
	resolver *docs.Resolver
}

// NewKnown indexes the exports, members and enum constants of spec.
func NewKnown(spec *openpkg.Spec) *Known {
	k := &Known{Package: path.Base(spec.Meta.Name), exports: map[string]bool{}}
	idx := docs.NewIndex()
	for _, e := range spec.Exports {
		k.exports[e.ID] = true
		idx.Add(e.ID)
		for _, m := range e.Members {
			idx.Add(e.ID + "." + m.Name)
			if m.Kind == openpkg.MemberConstant {
				// Constants live in package scope.
				k.exports[m.Name] = true
				idx.Add(m.Name)
			}
		}
	}
	k.resolver = docs.NewResolver(idx, docs.ResolverConfig{AllowSingleSegment: true})
	return k
}

// IsExport reports whether name is a package-level exported identifier.
func (k *Known) IsExport(name string) bool {
	return k.exports[name]
}

// resolve strips the package qualifier and call syntax from a link target
// and resolves it.
func (k *Known) resolve(target string) docs.Resolution {
	target = strings.TrimPrefix(strings.TrimSpace(target), "*")
	target = strings.TrimPrefix(target, k.Package+".")
	return k.resolver.Resolve(target)
}

// DetectExport returns the drift findings of one export.
func (d *Detector) DetectExport(exp *openpkg.Export, known *Known) []openpkg.Drift {
	var out []openpkg.Drift

	for _, sig := range exp.Signatures {
		out = append(out, checkSignature(exp.Name, exp.Tags, sig)...)
	}
	if len(exp.Signatures) == 0 {
		out = append(out, checkTypeParams(exp.Name, exp.Tags, exp.TypeParameters)...)
	}
	if exp.Kind == openpkg.KindClass {
		out = append(out, checkProperties(exp)...)
	}
	out = append(out, checkSemantics(exp.Name, exp.Description, exp.Tags, exp.Deprecated, known)...)
	out = append(out, d.checkExamples(exp, known)...)

	for _, m := range exp.Members {
		target := exp.Name + "." + m.Name
		for _, sig := range m.Signatures {
			out = append(out, checkSignature(target, m.Tags, sig)...)
		}
		out = append(out, checkSemantics(target, m.Description, m.Tags, m.Deprecated, known)...)
	}
	return dedupe(out)
}

// Enrich returns a copy of spec whose exports carry coverage and drift.
func (d *Detector) Enrich(spec *openpkg.Spec) *openpkg.Spec {
	known := NewKnown(spec)
	exports := spec.CloneExports()
	for i := range exports {
		e := &exports[i]
		score, missing := Coverage(e, d.opts)
		e.Docs = &openpkg.Docs{
			CoverageScore: score,
			Missing:       missing,
			Drift:         d.DetectExport(e, known),
		}
		if e.Docs.Drift == nil {
			e.Docs.Drift = []openpkg.Drift{}
		}
	}
	d.logger.Debug("drift detected", "package", spec.Meta.Name, "exports", len(exports))
	return spec.WithExports(exports)
}

func dedupe(in []openpkg.Drift) []openpkg.Drift {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, d := range in {
		if !seen[d.Key()] {
			seen[d.Key()] = true
			out = append(out, d)
		}
	}
	return out
}
