package diff

import (
	"fmt"
	"path"
	"sort"

	"doccov/internal/docs"
	"doccov/internal/drift"
	"doccov/internal/openpkg"
)

// Diff compares base with head. It never fails on well-formed specs and
// Diff(s, s) reports no changes.
func Diff(base, head *openpkg.Spec, opts ...Option) *SpecDiffWithDocs {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d := &SpecDiffWithDocs{
		Breaking:            []string{},
		NonBreaking:         []string{},
		DocsOnly:            []string{},
		DriftIntroduced:     []DriftChange{},
		DriftResolved:       []DriftChange{},
		NewUndocumented:     []string{},
		ImprovedExports:     []string{},
		RegressedExports:    []string{},
		MemberChanges:       []MemberChange{},
		CategorizedBreaking: []CategorizedBreaking{},
		Changes:             []Change{},
	}

	hasher := NewHasher()
	baseMap, headMap := base.ExportMap(), head.ExportMap()
	basePkg, headPkg := packageName(base), packageName(head)

	var added []*openpkg.Export
	for i := range head.Exports {
		if _, ok := baseMap[head.Exports[i].ID]; !ok {
			added = append(added, &head.Exports[i])
		}
	}

	// Keyed by canonical name in base, for the docs impact check.
	impact := map[string]docs.ChangeKind{}

	for i := range base.Exports {
		b := &base.Exports[i]
		h, ok := headMap[b.ID]
		if !ok {
			c := removedExport(hasher, b, added)
			d.record(c, b)
			impact[basePkg+"."+b.ID] = docs.ChangeRemoved
			for _, m := range b.Members {
				impact[basePkg+"."+b.ID+"."+m.Name] = docs.ChangeRemoved
			}
			continue
		}

		c := compareExport(hasher, b, h)
		switch d.record(c, h) {
		case SeverityBreaking, SeverityNonBreaking:
			impact[basePkg+"."+b.ID] = docs.ChangeChanged
		}
		for _, mc := range c.members {
			name := basePkg + "." + b.ID + "." + mc.Member
			switch mc.Change {
			case MemberRemoved:
				impact[name] = docs.ChangeRemoved
			case MemberChanged:
				impact[name] = docs.ChangeChanged
			}
		}

		bs, hs := b.CoverageScore(), h.CoverageScore()
		switch {
		case b.Docs == nil || h.Docs == nil:
		case hs > bs:
			d.ImprovedExports = append(d.ImprovedExports, h.ID)
		case hs < bs:
			d.RegressedExports = append(d.RegressedExports, h.ID)
		}
	}

	var addedNames []string
	for _, e := range added {
		c := &comparison{id: e.ID}
		c.add(ChangeAdded, SeverityNonBreaking, fmt.Sprintf("%s %s was added", e.Kind, e.Name), "", "")
		d.record(c, e)
		if e.Description == "" {
			d.NewUndocumented = append(d.NewUndocumented, e.ID)
		}
		addedNames = append(addedNames, headPkg+"."+e.ID)
	}

	d.OldCoverage = sharedCoverage(base, headMap)
	d.NewCoverage = drift.Summarize(head).CoverageScore
	d.CoverageDelta = d.NewCoverage - d.OldCoverage

	d.diffDrift(baseMap, head)

	if o.docs != nil {
		checker := docs.NewImpactChecker(canonicalIndex(base), canonicalIndex(head), impact)
		d.DocsImpact = checker.Check(o.docs, addedNames)
	}

	d.sort()
	d.SemverAdvice = semverAdvice(d)
	return d
}

// sharedCoverage scores base over the exports head still has, so removing
// an export never moves the delta on its own.
func sharedCoverage(base *openpkg.Spec, headMap map[string]*openpkg.Export) int {
	shared := &openpkg.Spec{}
	for _, e := range base.Exports {
		if _, ok := headMap[e.ID]; ok {
			shared.Exports = append(shared.Exports, e)
		}
	}
	return drift.Summarize(shared).CoverageScore
}

// record files the comparison under its worst severity and returns it.
func (d *SpecDiffWithDocs) record(c *comparison, e *openpkg.Export) Severity {
	d.Changes = append(d.Changes, c.changes...)
	d.MemberChanges = append(d.MemberChanges, c.members...)

	sev, ok := c.severity()
	if !ok {
		return ""
	}
	switch sev {
	case SeverityBreaking:
		d.Breaking = append(d.Breaking, c.id)
		d.CategorizedBreaking = append(d.CategorizedBreaking, CategorizedBreaking{
			ID:       c.id,
			Name:     e.Name,
			Kind:     e.Kind,
			Severity: breakingSeverity(e.Kind),
			Reason:   c.firstReason(SeverityBreaking),
		})
	case SeverityNonBreaking:
		d.NonBreaking = append(d.NonBreaking, c.id)
	case SeverityDocsOnly:
		d.DocsOnly = append(d.DocsOnly, c.id)
	}
	return sev
}

// diffDrift computes per-export set differences of drift findings.
// Findings of removed exports are not counted as resolved.
func (d *SpecDiffWithDocs) diffDrift(baseMap map[string]*openpkg.Export, head *openpkg.Spec) {
	for i := range head.Exports {
		h := &head.Exports[i]
		b := baseMap[h.ID]
		before, after := driftKeys(b), driftKeys(h)
		for _, f := range driftOf(h) {
			if !before[f.Key()] {
				d.DriftIntroduced = append(d.DriftIntroduced, DriftChange{ExportID: h.ID, Name: h.Name, Drift: f})
			}
		}
		for _, f := range driftOf(b) {
			if !after[f.Key()] {
				d.DriftResolved = append(d.DriftResolved, DriftChange{ExportID: h.ID, Name: h.Name, Drift: f})
			}
		}
	}
}

func (d *SpecDiffWithDocs) sort() {
	sort.Strings(d.Breaking)
	sort.Strings(d.NonBreaking)
	sort.Strings(d.DocsOnly)
	sort.Strings(d.NewUndocumented)
	sort.Strings(d.ImprovedExports)
	sort.Strings(d.RegressedExports)

	// Sort changes by severity, then by export id
	sort.SliceStable(d.Changes, func(i, j int) bool {
		a, b := d.Changes[i], d.Changes[j]
		if a.Severity != b.Severity {
			return severityOrder(a.Severity) < severityOrder(b.Severity)
		}
		return a.ExportID < b.ExportID
	})
	sort.SliceStable(d.MemberChanges, func(i, j int) bool {
		a, b := d.MemberChanges[i], d.MemberChanges[j]
		if a.ExportID != b.ExportID {
			return a.ExportID < b.ExportID
		}
		return a.Member < b.Member
	})
	sort.SliceStable(d.CategorizedBreaking, func(i, j int) bool {
		a, b := d.CategorizedBreaking[i], d.CategorizedBreaking[j]
		if a.Severity != b.Severity {
			return breakingOrder(a.Severity) < breakingOrder(b.Severity)
		}
		return a.ID < b.ID
	})
	sort.SliceStable(d.DriftIntroduced, func(i, j int) bool { return d.DriftIntroduced[i].ExportID < d.DriftIntroduced[j].ExportID })
	sort.SliceStable(d.DriftResolved, func(i, j int) bool { return d.DriftResolved[i].ExportID < d.DriftResolved[j].ExportID })
}

func severityOrder(s Severity) int {
	switch s {
	case SeverityBreaking:
		return 0
	case SeverityNonBreaking:
		return 1
	case SeverityDocsOnly:
		return 2
	default:
		return 3
	}
}

func breakingOrder(s BreakingSeverity) int {
	switch s {
	case BreakingHigh:
		return 0
	case BreakingMedium:
		return 1
	default:
		return 2
	}
}

// breakingSeverity ranks functions and classes highest since callers use
// them directly.
func breakingSeverity(k openpkg.Kind) BreakingSeverity {
	switch k {
	case openpkg.KindFunction, openpkg.KindClass:
		return BreakingHigh
	case openpkg.KindInterface, openpkg.KindType:
		return BreakingMedium
	default:
		return BreakingLow
	}
}

// semverAdvice suggests the appropriate version bump
func semverAdvice(d *SpecDiffWithDocs) string {
	if len(d.Breaking) > 0 {
		return "major"
	}
	if len(d.NonBreaking) > 0 {
		return "minor"
	}
	return "patch"
}

func driftOf(e *openpkg.Export) []openpkg.Drift {
	if e == nil || e.Docs == nil {
		return nil
	}
	return e.Docs.Drift
}

func driftKeys(e *openpkg.Export) map[string]bool {
	keys := map[string]bool{}
	for _, f := range driftOf(e) {
		keys[f.Key()] = true
	}
	return keys
}

func packageName(s *openpkg.Spec) string {
	return path.Base(s.Meta.Name)
}

// canonicalIndex indexes "<pkg>.<id>" and "<pkg>.<id>.<member>" names.
func canonicalIndex(s *openpkg.Spec) *docs.Index {
	pkg := packageName(s)
	idx := docs.NewIndex()
	for _, e := range s.Exports {
		idx.Add(pkg + "." + e.ID)
		for _, m := range e.Members {
			idx.Add(pkg + "." + e.ID + "." + m.Name)
		}
	}
	return idx
}
