package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"doccov/internal/engine"
	"doccov/internal/report"
)

var (
	checkRunExamples     bool
	checkRequireExamples bool
	checkBackend         string
	checkMinCoverage     int
	checkFormat          string
	checkOutput          string
	checkNoCache         bool
)

var checkCmd = &cobra.Command{
	Use:   "check [entry]",
	Short: "Score documentation coverage and detect drift",
	Long: `Extract the package at entry, score the documentation of every export and
report drift between doc comments and code.

With --run-examples every documented example is executed in the sandbox
and failures are reported as example drift. The command exits 1 when the
coverage score is below --min-coverage or an executed example fails.

Examples:
  doccov check
  doccov check ./pkg/calc --min-coverage 80
  doccov check --run-examples --backend container --format json -o report.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkRunExamples, "run-examples", false, "Execute documented examples in the sandbox")
	checkCmd.Flags().BoolVar(&checkRequireExamples, "require-examples", false, "Count a missing example against coverage")
	checkCmd.Flags().StringVar(&checkBackend, "backend", "", "Sandbox backend: local or container (default from config)")
	checkCmd.Flags().IntVar(&checkMinCoverage, "min-coverage", 0, "Fail below this coverage score (default from config)")
	checkCmd.Flags().StringVar(&checkFormat, "format", "human", "Output format (human, json, yaml)")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Write the report to a file instead of stdout")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "Bypass the spec cache")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(checkFormat)
	if err != nil {
		return err
	}
	entry := firstArg(args)
	eng, _, err := setup(entryDir(entry))
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	res, err := eng.Check(ctx, engine.CheckOptions{
		SpecOptions:     engine.SpecOptions{Entry: entry, NoCache: checkNoCache},
		RequireExamples: checkRequireExamples,
		RunExamples:     checkRunExamples,
		Backend:         checkBackend,
	})
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(checkOutput)
	if err != nil {
		return err
	}
	if err := report.Write(w, res.Report, format); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	minScore := eng.Config().Coverage.MinScore
	if cmd.Flags().Changed("min-coverage") {
		minScore = checkMinCoverage
	}
	return checkGate(res.Report, minScore)
}

// checkGate fails a report below minScore or with failed example runs.
func checkGate(r *report.Report, minScore int) error {
	if !r.MeetsCoverage(minScore) {
		return &gateError{msg: fmt.Sprintf("coverage %d%% is below the required %d%%", r.Summary.CoverageScore, minScore)}
	}
	if failed := r.Failed(); len(failed) > 0 {
		return &gateError{msg: fmt.Sprintf("%d of %d examples failed", len(failed), len(r.Examples))}
	}
	return nil
}
