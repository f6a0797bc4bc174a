// Package docs links prose to API names: it scans Markdown files for
// mentions of exported identifiers, pulls qualified identifiers out of code
// fences, resolves mentions against a name index, and reports which
// documents a spec change touches.
package docs

// DetectionMethod records how a mention was found.
type DetectionMethod string

const (
	DetectBacktick  DetectionMethod = "backtick"  // `pkg.Name`
	DetectDirective DetectionMethod = "directive" // <!-- doccov:symbol pkg.Name -->
	DetectFence     DetectionMethod = "fence"     // identifier inside a fenced code block
)

// ResolutionStatus is the outcome of resolving a mention.
type ResolutionStatus string

const (
	ResolutionExact      ResolutionStatus = "exact"
	ResolutionSuffix     ResolutionStatus = "suffix"
	ResolutionAmbiguous  ResolutionStatus = "ambiguous"
	ResolutionMissing    ResolutionStatus = "missing"
	ResolutionIneligible ResolutionStatus = "ineligible"
)

// Mention is a raw reference found in a document.
type Mention struct {
	RawText string          `json:"rawText"`
	Line    int             `json:"line"`
	Column  int             `json:"column"`
	Context string          `json:"context,omitempty"`
	Method  DetectionMethod `json:"method"`
}

// Fence is a fenced code block.
type Fence struct {
	Language  string `json:"language,omitempty"`
	StartLine int    `json:"startLine"` // 1-indexed line of the opening delimiter
	EndLine   int    `json:"endLine"`
	Content   string `json:"content"`
}

// FenceIdentifier is a qualified identifier found in fence content.
type FenceIdentifier struct {
	Name string `json:"name"`
	Line int    `json:"line"` // 1-indexed within the fence content
}

// ScanResult holds everything found in one document.
type ScanResult struct {
	Path     string    `json:"path"`
	Title    string    `json:"title,omitempty"`
	Mentions []Mention `json:"mentions"`
	Fences   []Fence   `json:"fences,omitempty"`
	Error    error     `json:"-"`
}

// Resolution is the result of resolving one mention.
type Resolution struct {
	Status     ResolutionStatus `json:"status"`
	Name       string           `json:"name,omitempty"`
	Candidates []string         `json:"candidates,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// Resolved reports whether the mention names exactly one entry.
func (r Resolution) Resolved() bool {
	return r.Status == ResolutionExact || r.Status == ResolutionSuffix
}
