// Package report builds the doccov coverage and drift artifact for an
// enriched spec and renders it as JSON, YAML or plain text.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"doccov/internal/drift"
	"doccov/internal/openpkg"
	"doccov/internal/schema"
	"doccov/internal/version"
)

// Report is the doccov artifact.
type Report struct {
	Doccov      string               `json:"doccov"`
	GeneratedAt string               `json:"generatedAt,omitempty"`
	Package     Package              `json:"package"`
	Summary     drift.Summary        `json:"summary"`
	Exports     []ExportReport       `json:"exports"`
	Examples    []ExampleRun         `json:"examples,omitempty"`
	Diagnostics []openpkg.Diagnostic `json:"diagnostics,omitempty"`
}

// Package identifies the reported package.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Module  string `json:"module,omitempty"`
}

// ExportReport is the coverage and drift of one export.
type ExportReport struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Kind          openpkg.Kind             `json:"kind"`
	CoverageScore int                      `json:"coverageScore"`
	Missing       []openpkg.MissingDocRule `json:"missing"`
	Drift         []openpkg.Drift          `json:"drift"`
	Source        *openpkg.Source          `json:"source,omitempty"`
}

// ExampleRun records one executed example.
type ExampleRun struct {
	ExportID string                         `json:"exportId"`
	Index    int                            `json:"index"`
	Title    string                         `json:"title,omitempty"`
	Result   openpkg.ExampleExecutionResult `json:"result"`
	Drift    *openpkg.Drift                 `json:"drift,omitempty"`
}

// Option configures Build.
type Option func(*options)

type options struct {
	examples    []ExampleRun
	diagnostics []openpkg.Diagnostic
	generatedAt time.Time
}

// WithExamples attaches executed examples.
func WithExamples(runs []ExampleRun) Option {
	return func(o *options) { o.examples = runs }
}

// WithDiagnostics attaches extraction diagnostics.
func WithDiagnostics(diags []openpkg.Diagnostic) Option {
	return func(o *options) { o.diagnostics = diags }
}

// WithGeneratedAt stamps the report. Reports are unstamped by default so
// identical inputs produce identical bytes.
func WithGeneratedAt(t time.Time) Option {
	return func(o *options) { o.generatedAt = t }
}

// Build assembles the report for a spec that has been through the drift
// detector. Exports without docs are reported with a zero score.
func Build(spec *openpkg.Spec, opts ...Option) *Report {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &Report{
		Doccov: version.DoccovFormat,
		Package: Package{
			Name:    spec.Meta.Name,
			Version: spec.Meta.Version,
			Module:  spec.Meta.Module,
		},
		Summary:     drift.Summarize(spec),
		Exports:     make([]ExportReport, 0, len(spec.Exports)),
		Examples:    o.examples,
		Diagnostics: o.diagnostics,
	}
	if !o.generatedAt.IsZero() {
		r.GeneratedAt = o.generatedAt.UTC().Format(time.RFC3339)
	}

	for i := range spec.Exports {
		e := &spec.Exports[i]
		er := ExportReport{
			ID:            e.ID,
			Name:          e.Name,
			Kind:          e.Kind,
			CoverageScore: e.CoverageScore(),
			Missing:       []openpkg.MissingDocRule{},
			Drift:         []openpkg.Drift{},
		}
		if e.Docs != nil {
			er.Missing = append(er.Missing, e.Docs.Missing...)
			er.Drift = append(er.Drift, e.Docs.Drift...)
		}
		if e.Source.File != "" {
			src := e.Source
			er.Source = &src
		}
		r.Exports = append(r.Exports, er)
	}
	return r
}

// MeetsCoverage reports whether the package score reaches min.
func (r *Report) MeetsCoverage(min int) bool {
	return r.Summary.CoverageScore >= min
}

// Failed returns the example runs that did not succeed.
func (r *Report) Failed() []ExampleRun {
	var out []ExampleRun
	for _, run := range r.Examples {
		if !run.Result.Success || run.Drift != nil {
			out = append(out, run)
		}
	}
	return out
}

// Encode renders the report as indented JSON and checks it against the
// doccov schema.
func Encode(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := schema.Validate(schema.KindDoccov, buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode validates data against the doccov schema and decodes it.
func Decode(data []byte) (*Report, error) {
	if err := schema.Validate(schema.KindDoccov, data); err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
