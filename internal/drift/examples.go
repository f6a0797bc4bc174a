package drift

import (
	"fmt"
	"strings"

	"doccov/internal/docs"
	"doccov/internal/openpkg"
)

// checkExamples flags examples that call pkg.Name where Name is not an
// export of the package. Nothing is executed.
func (d *Detector) checkExamples(exp *openpkg.Export, known *Known) []openpkg.Drift {
	var out []openpkg.Drift
	for i, ex := range exp.Examples {
		ids := d.fences.ExtractIdentifiers(docs.Fence{Language: "go", Content: ex.Code})
		for _, id := range ids {
			parts := strings.Split(id.Name, ".")
			if len(parts) < 2 || parts[0] != known.Package || known.IsExport(parts[1]) {
				continue
			}
			ref := parts[0] + "." + parts[1]
			suggestion := ""
			if s := known.resolver.Suggest(parts[1], 3); len(s) > 0 {
				suggestion = "did you mean " + known.Package + "." + s[0] + "?"
			}
			out = append(out, openpkg.NewDrift(openpkg.DriftExampleDrift, ref,
				fmt.Sprintf("example %d of %s references %s, which is not exported", i+1, exp.Name, ref),
				suggestion, true))
		}
	}
	return out
}

// ExampleFinding is a drift finding produced by running an example.
type ExampleFinding struct {
	ExportID string
	Drift    openpkg.Drift
}

// ApplyExampleResults returns a copy of spec with execution findings added
// to the drift of their exports. Exports without docs get them computed
// empty; repeated findings are kept once.
func ApplyExampleResults(spec *openpkg.Spec, findings []ExampleFinding) *openpkg.Spec {
	if len(findings) == 0 {
		return spec
	}
	byExport := map[string][]openpkg.Drift{}
	for _, f := range findings {
		byExport[f.ExportID] = append(byExport[f.ExportID], f.Drift)
	}

	exports := spec.CloneExports()
	for i := range exports {
		extra, ok := byExport[exports[i].ID]
		if !ok {
			continue
		}
		e := &exports[i]
		next := openpkg.Docs{Missing: []openpkg.MissingDocRule{}, CoverageScore: 100}
		if e.Docs != nil {
			next = *e.Docs
		}
		drift := make([]openpkg.Drift, 0, len(next.Drift)+len(extra))
		drift = append(drift, next.Drift...)
		drift = append(drift, extra...)
		next.Drift = dedupe(drift)
		e.Docs = &next
	}
	return spec.WithExports(exports)
}
