// Package diff compares two openpkg specs and classifies every export change
// as breaking, non-breaking or documentation-only.
package diff

import (
	"doccov/internal/docs"
	"doccov/internal/openpkg"
)

// ChangeKind is the kind of one detected change
type ChangeKind string

const (
	ChangeAdded            ChangeKind = "added"
	ChangeRemoved          ChangeKind = "removed"
	ChangeKindChanged      ChangeKind = "kind_changed"
	ChangeSignatureChanged ChangeKind = "signature_changed"
	ChangeTypeChanged      ChangeKind = "type_changed"
	ChangeMemberChanged    ChangeKind = "member_changed"
	ChangeDeprecated       ChangeKind = "deprecated"
	ChangeDocs             ChangeKind = "docs"
)

// Severity of a change
type Severity string

const (
	SeverityBreaking    Severity = "breaking"
	SeverityNonBreaking Severity = "non_breaking"
	SeverityDocsOnly    Severity = "docs_only"
)

// Change is one difference found on an export.
type Change struct {
	ExportID    string     `json:"exportId"`
	Kind        ChangeKind `json:"kind"`
	Severity    Severity   `json:"severity"`
	Description string     `json:"description"`
	OldValue    string     `json:"oldValue,omitempty"`
	NewValue    string     `json:"newValue,omitempty"`
	Suggestion  string     `json:"suggestion,omitempty"`
}

// MemberChangeKind is added, removed or changed.
type MemberChangeKind string

const (
	MemberAdded   MemberChangeKind = "added"
	MemberRemoved MemberChangeKind = "removed"
	MemberChanged MemberChangeKind = "changed"
)

// MemberChange describes a field, method or constant that changed.
type MemberChange struct {
	ExportID     string           `json:"exportId"`
	Member       string           `json:"member"`
	Change       MemberChangeKind `json:"change"`
	OldSignature string           `json:"oldSignature,omitempty"`
	NewSignature string           `json:"newSignature,omitempty"`
	Suggestion   string           `json:"suggestion,omitempty"`
}

// BreakingSeverity ranks breaking exports by how widely they are used.
type BreakingSeverity string

const (
	BreakingHigh   BreakingSeverity = "high"
	BreakingMedium BreakingSeverity = "medium"
	BreakingLow    BreakingSeverity = "low"
)

// CategorizedBreaking is one breaking export with its first reason.
type CategorizedBreaking struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Kind     openpkg.Kind     `json:"kind"`
	Severity BreakingSeverity `json:"severity"`
	Reason   string           `json:"reason"`
}

// DriftChange is a drift finding that appeared or went away.
type DriftChange struct {
	ExportID string        `json:"exportId"`
	Name     string        `json:"name"`
	Drift    openpkg.Drift `json:"drift"`
}

// SpecDiffWithDocs is the result of comparing two specs. It is a pure value;
// export id lists are sorted.
type SpecDiffWithDocs struct {
	Breaking            []string              `json:"breaking"`
	NonBreaking         []string              `json:"nonBreaking"`
	DocsOnly            []string              `json:"docsOnly"`
	CoverageDelta       int                   `json:"coverageDelta"`
	OldCoverage         int                   `json:"oldCoverage"`
	NewCoverage         int                   `json:"newCoverage"`
	DriftIntroduced     []DriftChange         `json:"driftIntroduced"`
	DriftResolved       []DriftChange         `json:"driftResolved"`
	NewUndocumented     []string              `json:"newUndocumented"`
	ImprovedExports     []string              `json:"improvedExports"`
	RegressedExports    []string              `json:"regressedExports"`
	MemberChanges       []MemberChange        `json:"memberChanges"`
	CategorizedBreaking []CategorizedBreaking `json:"categorizedBreaking"`
	DocsImpact          *docs.ImpactReport    `json:"docsImpact,omitempty"`
	Changes             []Change              `json:"changes"`
	SemverAdvice        string                `json:"semverAdvice"`
}

// HasBreakingChanges returns true if any export changed incompatibly
func (d *SpecDiffWithDocs) HasBreakingChanges() bool {
	return d != nil && len(d.Breaking) > 0
}

// Option configures Diff.
type Option func(*options)

type options struct {
	docs []docs.ScanResult
}

// WithDocs adds scanned Markdown files; their mentions of changed and
// removed exports are reported in DocsImpact.
func WithDocs(results []docs.ScanResult) Option {
	return func(o *options) { o.docs = results }
}
