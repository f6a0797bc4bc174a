package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"doccov/internal/openpkg"
)

// Format selects a rendering.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatHuman, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatHuman, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want human, json or yaml)", s)
	}
}

// Write renders v in the given format. Reports get the human layout of
// WriteHuman; other values fall back to JSON for the human format.
func Write(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatYAML:
		return writeYAML(w, v)
	case FormatHuman, "":
		if r, ok := v.(*Report); ok {
			return WriteHuman(w, r)
		}
		return writeJSON(w, v)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	if r, ok := v.(*Report); ok {
		data, err := Encode(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML goes through the JSON encoding so field names and order match
// the JSON artifact.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// blockStyle clears the flow and quoting styles the JSON input carries.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && needsQuotes(n.Value) {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// needsQuotes reports strings that would read back as another scalar type.
func needsQuotes(s string) bool {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return true
	}
	_, isString := v.(string)
	return !isString || v.(string) != s
}

// WriteHuman renders a report for terminals.
func WriteHuman(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "doccov report for %s@%s\n", r.Package.Name, r.Package.Version)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	s := r.Summary
	fmt.Fprintf(&b, "Coverage: %d%% (%d of %d exports fully documented)\n", s.CoverageScore, s.FullyDocumented, s.TotalExports)
	fmt.Fprintf(&b, "Drift: %d findings (structural %d, semantic %d, example %d)\n\n", s.DriftCount,
		s.DriftByCategory[openpkg.CategoryStructural],
		s.DriftByCategory[openpkg.CategorySemantic],
		s.DriftByCategory[openpkg.CategoryExample])

	var rules []string
	for _, rule := range openpkg.AllRules {
		if n := s.MissingByRule[rule]; n > 0 {
			rules = append(rules, fmt.Sprintf("  %s: %d\n", rule, n))
		}
	}
	if len(rules) > 0 {
		b.WriteString("Missing documentation:\n")
		for _, l := range rules {
			b.WriteString(l)
		}
		b.WriteString("\n")
	}

	var flagged []ExportReport
	for _, e := range r.Exports {
		if e.CoverageScore < 100 || len(e.Drift) > 0 {
			flagged = append(flagged, e)
		}
	}
	if len(flagged) > 0 {
		b.WriteString("Exports needing attention:\n")
		sort.SliceStable(flagged, func(i, j int) bool { return flagged[i].CoverageScore < flagged[j].CoverageScore })
		for _, e := range flagged {
			fmt.Fprintf(&b, "  %s (%s) %d%%", e.Name, e.Kind, e.CoverageScore)
			if e.Source != nil {
				fmt.Fprintf(&b, "  %s:%d", e.Source.File, e.Source.Line)
			}
			b.WriteString("\n")
			if len(e.Missing) > 0 {
				missing := make([]string, len(e.Missing))
				for i, m := range e.Missing {
					missing[i] = string(m)
				}
				fmt.Fprintf(&b, "    missing: %s\n", strings.Join(missing, ", "))
			}
			for _, d := range e.Drift {
				writeDrift(&b, d, "    ")
			}
		}
		b.WriteString("\n")
	}

	if len(r.Examples) > 0 {
		fmt.Fprintf(&b, "Examples: %d run, %d failed\n", len(r.Examples), len(r.Failed()))
		for _, run := range r.Examples {
			status := "ok"
			if run.Drift != nil || !run.Result.Success {
				status = "FAIL"
			}
			fmt.Fprintf(&b, "  %-4s %s #%d (%dms)\n", status, run.ExportID, run.Index+1, run.Result.Duration)
			if run.Drift != nil {
				writeDrift(&b, *run.Drift, "       ")
			}
		}
		b.WriteString("\n")
	}

	if len(r.Diagnostics) > 0 {
		b.WriteString("Diagnostics:\n")
		for _, d := range r.Diagnostics {
			loc := ""
			if d.File != "" {
				loc = fmt.Sprintf("%s:%d: ", d.File, d.Line)
			}
			fmt.Fprintf(&b, "  [%s] %s%s\n", d.Severity, loc, d.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDrift(b *strings.Builder, d openpkg.Drift, indent string) {
	fmt.Fprintf(b, "%s! %s: %s\n", indent, d.Type, d.Issue)
	if d.Suggestion != "" {
		fmt.Fprintf(b, "%s  suggestion: %s\n", indent, d.Suggestion)
	}
}
