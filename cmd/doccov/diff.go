package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"doccov/internal/diff"
	"doccov/internal/engine"
	"doccov/internal/report"
)

var (
	diffDocs           []string
	diffDocsRoot       string
	diffFormat         string
	diffOutput         string
	diffFailOnBreaking bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <base> <head>",
	Short: "Compare two spec snapshots",
	Long: `Compare two openpkg spec files (plain JSON or .zst) and classify every
export change as breaking, non-breaking or documentation-only.

With --docs, Markdown files matching the globs are checked for references
to removed or changed exports.

Examples:
  doccov diff v1.json v2.json
  doccov diff v1.json.zst v2.json.zst --docs 'docs/**/*.md' --docs README.md
  doccov diff base.json head.json --fail-on-breaking --format json`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringArrayVar(&diffDocs, "docs", nil, "Markdown glob to check for impacted references (repeatable)")
	diffCmd.Flags().StringVar(&diffDocsRoot, "docs-root", ".", "Directory the --docs globs are resolved against")
	diffCmd.Flags().StringVar(&diffFormat, "format", "human", "Output format (human, json, yaml)")
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "", "Write the diff to a file instead of stdout")
	diffCmd.Flags().BoolVar(&diffFailOnBreaking, "fail-on-breaking", false, "Exit 1 when a breaking change is found")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(diffFormat)
	if err != nil {
		return err
	}
	eng, _, err := setup(".")
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	d, err := eng.Diff(ctx, engine.DiffOptions{
		Base:     args[0],
		Head:     args[1],
		Docs:     diffDocs,
		DocsRoot: diffDocsRoot,
	})
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(diffOutput)
	if err != nil {
		return err
	}
	if format == report.FormatHuman {
		err = writeDiffHuman(w, d)
	} else {
		err = report.Write(w, d, format)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if diffFailOnBreaking && d.HasBreakingChanges() {
		return &gateError{msg: fmt.Sprintf("%d breaking changes (semver advice: %s)", len(d.Breaking), d.SemverAdvice)}
	}
	return nil
}

// writeDiffHuman renders a diff for the terminal.
func writeDiffHuman(w io.Writer, d *diff.SpecDiffWithDocs) error {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Spec diff (semver advice: %s)\n", d.SemverAdvice))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Breaking: %d  Non-breaking: %d  Docs only: %d\n",
		len(d.Breaking), len(d.NonBreaking), len(d.DocsOnly)))
	b.WriteString(fmt.Sprintf("Coverage: %d%% -> %d%% (%+d)\n\n", d.OldCoverage, d.NewCoverage, d.CoverageDelta))

	if len(d.CategorizedBreaking) > 0 {
		b.WriteString("Breaking changes:\n")
		for _, c := range d.CategorizedBreaking {
			b.WriteString(fmt.Sprintf("  [%s] %s (%s): %s\n", c.Severity, c.Name, c.Kind, c.Reason))
		}
		b.WriteString("\n")
	}

	var other []diff.Change
	for _, c := range d.Changes {
		if c.Severity != diff.SeverityBreaking {
			other = append(other, c)
		}
	}
	if len(other) > 0 {
		b.WriteString("Other changes:\n")
		for _, c := range other {
			b.WriteString(fmt.Sprintf("  %s: %s\n", c.ExportID, c.Description))
		}
		b.WriteString("\n")
	}

	if len(d.MemberChanges) > 0 {
		b.WriteString("Member changes:\n")
		for _, m := range d.MemberChanges {
			b.WriteString(fmt.Sprintf("  %s.%s %s\n", m.ExportID, m.Member, m.Change))
			if m.Suggestion != "" {
				b.WriteString(fmt.Sprintf("    suggestion: %s\n", m.Suggestion))
			}
		}
		b.WriteString("\n")
	}

	if len(d.DriftIntroduced) > 0 || len(d.DriftResolved) > 0 {
		b.WriteString(fmt.Sprintf("Drift: %d introduced, %d resolved\n", len(d.DriftIntroduced), len(d.DriftResolved)))
		for _, c := range d.DriftIntroduced {
			b.WriteString(fmt.Sprintf("  + %s: %s\n", c.Name, c.Drift.Issue))
		}
		for _, c := range d.DriftResolved {
			b.WriteString(fmt.Sprintf("  - %s: %s\n", c.Name, c.Drift.Issue))
		}
		b.WriteString("\n")
	}

	if len(d.NewUndocumented) > 0 {
		b.WriteString(fmt.Sprintf("New undocumented exports: %s\n\n", strings.Join(d.NewUndocumented, ", ")))
	}

	if d.DocsImpact != nil {
		b.WriteString(fmt.Sprintf("Docs impact (%d mentions scanned):\n", d.DocsImpact.TotalMentions))
		for _, f := range d.DocsImpact.Files {
			for _, ref := range f.References {
				b.WriteString(fmt.Sprintf("  %s:%d %s (%s)\n", f.Path, ref.Line, ref.RawText, ref.Change))
				if len(ref.Suggestions) > 0 {
					b.WriteString(fmt.Sprintf("    did you mean: %s\n", strings.Join(ref.Suggestions, ", ")))
				}
			}
		}
		if len(d.DocsImpact.UnmentionedNewExports) > 0 {
			b.WriteString(fmt.Sprintf("  not yet documented: %s\n", strings.Join(d.DocsImpact.UnmentionedNewExports, ", ")))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
