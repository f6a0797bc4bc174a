package openpkg

// DriftType is the closed set of documentation drift findings.
type DriftType string

const (
	DriftParamMismatch             DriftType = "param-mismatch"
	DriftParamTypeMismatch         DriftType = "param-type-mismatch"
	DriftReturnTypeMismatch        DriftType = "return-type-mismatch"
	DriftGenericConstraintMismatch DriftType = "generic-constraint-mismatch"
	DriftOptionalityMismatch       DriftType = "optionality-mismatch"
	DriftDeprecatedMismatch        DriftType = "deprecated-mismatch"
	DriftVisibilityMismatch        DriftType = "visibility-mismatch"
	DriftAsyncMismatch             DriftType = "async-mismatch"
	DriftPropertyTypeDrift         DriftType = "property-type-drift"
	DriftExampleDrift              DriftType = "example-drift"
	DriftExampleSyntaxError        DriftType = "example-syntax-error"
	DriftExampleRuntimeError       DriftType = "example-runtime-error"
	DriftExampleAssertionFailed    DriftType = "example-assertion-failed"
	DriftBrokenLink                DriftType = "broken-link"
)

// DriftCategory groups drift types.
type DriftCategory string

const (
	CategoryStructural DriftCategory = "structural"
	CategorySemantic   DriftCategory = "semantic"
	CategoryExample    DriftCategory = "example"
)

// AllDriftTypes lists every drift type.
var AllDriftTypes = []DriftType{
	DriftParamMismatch,
	DriftParamTypeMismatch,
	DriftReturnTypeMismatch,
	DriftGenericConstraintMismatch,
	DriftOptionalityMismatch,
	DriftDeprecatedMismatch,
	DriftVisibilityMismatch,
	DriftAsyncMismatch,
	DriftPropertyTypeDrift,
	DriftExampleDrift,
	DriftExampleSyntaxError,
	DriftExampleRuntimeError,
	DriftExampleAssertionFailed,
	DriftBrokenLink,
}

var driftCategories = map[DriftType]DriftCategory{
	DriftParamMismatch:             CategoryStructural,
	DriftParamTypeMismatch:         CategoryStructural,
	DriftReturnTypeMismatch:        CategoryStructural,
	DriftGenericConstraintMismatch: CategoryStructural,
	DriftOptionalityMismatch:       CategoryStructural,
	DriftAsyncMismatch:             CategoryStructural,
	DriftPropertyTypeDrift:         CategoryStructural,
	DriftDeprecatedMismatch:        CategorySemantic,
	DriftVisibilityMismatch:        CategorySemantic,
	DriftBrokenLink:                CategorySemantic,
	DriftExampleDrift:              CategoryExample,
	DriftExampleSyntaxError:        CategoryExample,
	DriftExampleRuntimeError:       CategoryExample,
	DriftExampleAssertionFailed:    CategoryExample,
}

// CategoryOf returns the category of t. Unknown types are structural so
// the function stays total over arbitrary input.
func CategoryOf(t DriftType) DriftCategory {
	if c, ok := driftCategories[t]; ok {
		return c
	}
	return CategoryStructural
}

// Valid reports whether t is one of the known drift types.
func (t DriftType) Valid() bool {
	_, ok := driftCategories[t]
	return ok
}

// Drift is one detected mismatch between documentation and code.
type Drift struct {
	Type       DriftType     `json:"type"`
	Category   DriftCategory `json:"category"`
	Target     string        `json:"target,omitempty"`
	Issue      string        `json:"issue"`
	Suggestion string        `json:"suggestion,omitempty"`
	Fixable    bool          `json:"fixable"`
}

// NewDrift builds a finding with its category filled in.
func NewDrift(t DriftType, target, issue, suggestion string, fixable bool) Drift {
	return Drift{
		Type:       t,
		Category:   CategoryOf(t),
		Target:     target,
		Issue:      issue,
		Suggestion: suggestion,
		Fixable:    fixable,
	}
}

// Key identifies a finding for set comparisons across snapshots.
func (d Drift) Key() string {
	return string(d.Type) + "\x00" + d.Target + "\x00" + d.Issue
}
