// Package openpkg defines the normalized, versioned description of a Go
// package's exported API surface and its on-disk encoding.
package openpkg

// Kind classifies an export.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindEnum      Kind = "enum"
	KindVariable  Kind = "variable"
)

// MemberKind classifies a member of a class, interface or enum.
type MemberKind string

const (
	MemberField    MemberKind = "field"
	MemberMethod   MemberKind = "method"
	MemberConstant MemberKind = "constant"
)

// Ecosystem is the value of Meta.Ecosystem for every spec this module writes.
const Ecosystem = "go"

// Spec is the root object. Once produced it is treated as immutable; every
// transformation returns a new value.
type Spec struct {
	OpenPkg string   `json:"openpkg"`
	Meta    Meta     `json:"meta"`
	Exports []Export `json:"exports"`
	Types   []Type   `json:"types"`
}

// Meta identifies the described package.
type Meta struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Ecosystem   string `json:"ecosystem"`
	Description string `json:"description,omitempty"`
	Module      string `json:"module,omitempty"`
}

// Export is one package-level exported declaration.
type Export struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Kind           Kind            `json:"kind"`
	Description    string          `json:"description,omitempty"`
	Signatures     []Signature     `json:"signatures,omitempty"`
	Schema         *Schema         `json:"schema,omitempty"`
	Members        []Member        `json:"members,omitempty"`
	Examples       []Example       `json:"examples,omitempty"`
	Deprecated     bool            `json:"deprecated,omitempty"`
	Tags           []Tag           `json:"tags"`
	TypeParameters []TypeParameter `json:"typeParameters,omitempty"`
	Source         Source          `json:"source"`
	Docs           *Docs           `json:"docs,omitempty"`
}

// Type is a named type referenced through "#/types/<id>".
type Type struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Kind        Kind    `json:"kind"`
	Description string  `json:"description,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
	Source      Source  `json:"source"`
}

// Source locates a declaration relative to the module root.
type Source struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Signature describes one callable form of a function or method.
type Signature struct {
	Parameters     []Parameter     `json:"parameters"`
	Returns        *Returns        `json:"returns,omitempty"`
	TypeParameters []TypeParameter `json:"typeParameters,omitempty"`
	Async          bool            `json:"async,omitempty"`
}

// Parameter is one declared parameter. Required is false only for a
// variadic parameter.
type Parameter struct {
	Name        string  `json:"name"`
	Schema      *Schema `json:"schema"`
	Required    bool    `json:"required"`
	Variadic    bool    `json:"variadic,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Returns describes the results of a signature. Schema covers the value
// results (a tuple when there are several) and is nil when the only result
// is an error; Error is set when the last result is the error interface.
type Returns struct {
	Schema      *Schema `json:"schema,omitempty"`
	Error       bool    `json:"error,omitempty"`
	Description string  `json:"description,omitempty"`
}

// TypeParameter is a generic type parameter and its constraint rendering.
type TypeParameter struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint,omitempty"`
}

// Member is a field, method or enum constant.
type Member struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Kind        MemberKind  `json:"kind"`
	Schema      *Schema     `json:"schema,omitempty"`
	Signatures  []Signature `json:"signatures,omitempty"`
	Description string      `json:"description,omitempty"`
	Tags        []Tag       `json:"tags,omitempty"`
	Deprecated  bool        `json:"deprecated,omitempty"`
	Embedded    bool        `json:"embedded,omitempty"`
	Value       string      `json:"value,omitempty"`
}

// Example is a documented code sample.
type Example struct {
	Title     string `json:"title,omitempty"`
	Code      string `json:"code"`
	Output    string `json:"output,omitempty"`
	Unordered bool   `json:"unordered,omitempty"`
	Source    string `json:"source"`
}

// Example sources.
const (
	ExampleFromDoc  = "doc"
	ExampleFromTest = "test"
)

// Tag is one parsed doc-comment tag.
type Tag struct {
	Name     string `json:"name"`
	Text     string `json:"text,omitempty"`
	Type     string `json:"type,omitempty"`
	Param    string `json:"param,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Docs holds the coverage and drift results for one export.
type Docs struct {
	CoverageScore int              `json:"coverageScore"`
	Missing       []MissingDocRule `json:"missing"`
	Drift         []Drift          `json:"drift"`
}

// MissingDocRule names a documentation rule that an export does not satisfy.
type MissingDocRule string

const (
	RuleDescription MissingDocRule = "description"
	RuleParams      MissingDocRule = "params"
	RuleReturns     MissingDocRule = "returns"
	RuleExamples    MissingDocRule = "examples"
	RuleThrows      MissingDocRule = "throws"
)

// AllRules lists the rules in evaluation order.
var AllRules = []MissingDocRule{RuleDescription, RuleParams, RuleReturns, RuleExamples, RuleThrows}

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is a non-fatal problem found while extracting.
type Diagnostic struct {
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
	Severity Severity `json:"severity"`
	Export   string   `json:"export,omitempty"`
}

// ExampleExecutionResult is the outcome of running one example.
// Duration is in milliseconds.
type ExampleExecutionResult struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	Duration int64  `json:"duration"`
}

// Export returns the export with the given id.
func (s *Spec) Export(id string) (*Export, bool) {
	for i := range s.Exports {
		if s.Exports[i].ID == id {
			return &s.Exports[i], true
		}
	}
	return nil, false
}

// ExportMap indexes exports by id.
func (s *Spec) ExportMap() map[string]*Export {
	m := make(map[string]*Export, len(s.Exports))
	for i := range s.Exports {
		m[s.Exports[i].ID] = &s.Exports[i]
	}
	return m
}

// WithExports returns a copy of s whose export slice is exports. Nested
// values are shared with s and must not be mutated.
func (s *Spec) WithExports(exports []Export) *Spec {
	clone := *s
	clone.Exports = exports
	return &clone
}

// CloneExports returns a shallow copy of the export slice.
func (s *Spec) CloneExports() []Export {
	out := make([]Export, len(s.Exports))
	copy(out, s.Exports)
	return out
}

// Member returns the member with the given name.
func (e *Export) Member(name string) (*Member, bool) {
	for i := range e.Members {
		if e.Members[i].Name == name {
			return &e.Members[i], true
		}
	}
	return nil, false
}

// TagsNamed returns the tags with the given name, in order.
func (e *Export) TagsNamed(name string) []Tag {
	var out []Tag
	for _, t := range e.Tags {
		if t.Name == name {
			out = append(out, t)
		}
	}
	return out
}

// HasTag reports whether a tag with the given name is present.
func (e *Export) HasTag(name string) bool {
	for _, t := range e.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// IsCallable reports whether the export has call signatures.
func (e *Export) IsCallable() bool {
	return e.Kind == KindFunction && len(e.Signatures) > 0
}

// CoverageScore returns the export's score, or 0 when docs were never computed.
func (e *Export) CoverageScore() int {
	if e.Docs == nil {
		return 0
	}
	return e.Docs.CoverageScore
}

// IsMissing reports whether the export fails the given rule.
func (e *Export) IsMissing(rule MissingDocRule) bool {
	if e.Docs == nil {
		return false
	}
	for _, m := range e.Docs.Missing {
		if m == rule {
			return true
		}
	}
	return false
}
