package docs

import "sort"

// ChangeKind classifies a changed API name.
type ChangeKind string

const (
	ChangeChanged ChangeKind = "changed"
	ChangeRemoved ChangeKind = "removed"
)

// ImpactedReference is a mention of a name that changed or disappeared.
type ImpactedReference struct {
	RawText     string          `json:"rawText"`
	Line        int             `json:"line"`
	Column      int             `json:"column,omitempty"`
	Name        string          `json:"name"`
	Change      ChangeKind      `json:"change"`
	Method      DetectionMethod `json:"method"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

// FileImpact lists the impacted references of one document.
type FileImpact struct {
	Path       string              `json:"path"`
	References []ImpactedReference `json:"references"`
}

// ImpactReport describes how a spec change affects a set of documents.
type ImpactReport struct {
	Files                 []FileImpact `json:"files"`
	UnmentionedNewExports []string     `json:"unmentionedNewExports"`
	TotalMentions         int          `json:"totalMentions"`
}

// ImpactChecker matches document mentions against the names of a change.
// Mentions resolve against the old names to find what changed, and against
// the new names to find which new exports are documented.
type ImpactChecker struct {
	base    *Resolver
	head    *Resolver
	changes map[string]ChangeKind
	fences  *FenceParser
}

// NewImpactChecker creates a checker. changes is keyed by canonical name as
// indexed in base.
func NewImpactChecker(base, head *Index, changes map[string]ChangeKind) *ImpactChecker {
	cfg := DefaultResolverConfig()
	return &ImpactChecker{
		base:    NewResolver(base, cfg),
		head:    NewResolver(head, cfg),
		changes: changes,
		fences:  NewFenceParser(),
	}
}

// Check reports impacted references per document and the added names that
// no document mentions. Files without impacted references are omitted.
func (c *ImpactChecker) Check(results []ScanResult, added []string) *ImpactReport {
	report := &ImpactReport{Files: []FileImpact{}, UnmentionedNewExports: []string{}}
	mentioned := map[string]bool{}

	for _, res := range results {
		impact := FileImpact{Path: res.Path}
		for _, m := range c.mentions(res) {
			report.TotalMentions++
			if r := c.head.Resolve(m.RawText); r.Resolved() {
				mentioned[r.Name] = true
			}
			r := c.base.Resolve(m.RawText)
			if !r.Resolved() {
				continue
			}
			kind, ok := c.changes[r.Name]
			if !ok {
				continue
			}
			ref := ImpactedReference{
				RawText: m.RawText,
				Line:    m.Line,
				Column:  m.Column,
				Name:    r.Name,
				Change:  kind,
				Method:  m.Method,
			}
			if kind == ChangeRemoved {
				ref.Suggestions = c.head.Suggest(m.RawText, 5)
			}
			impact.References = append(impact.References, ref)
		}
		if len(impact.References) > 0 {
			report.Files = append(report.Files, impact)
		}
	}

	for _, name := range added {
		if !mentioned[Normalize(name)] {
			report.UnmentionedNewExports = append(report.UnmentionedNewExports, name)
		}
	}
	sort.Strings(report.UnmentionedNewExports)
	return report
}

// mentions returns the scanned mentions plus identifiers found in fences,
// with fence lines mapped back to document lines.
func (c *ImpactChecker) mentions(res ScanResult) []Mention {
	out := append([]Mention(nil), res.Mentions...)
	for _, f := range res.Fences {
		for _, id := range c.fences.ExtractIdentifiers(f) {
			out = append(out, Mention{
				RawText: id.Name,
				Line:    f.StartLine + id.Line,
				Method:  DetectFence,
			})
		}
	}
	return out
}
