package engine

import (
	"context"

	"doccov/internal/drift"
	"doccov/internal/openpkg"
	"doccov/internal/report"
	"doccov/internal/sandbox"
)

// CheckOptions configures a coverage and drift check.
type CheckOptions struct {
	SpecOptions
	RequireExamples bool
	// RunExamples executes every documented example in the sandbox and adds
	// the example-* findings to the report.
	RunExamples bool
	// Backend overrides sandbox.backend for this check.
	Backend string
}

// CheckResult is the enriched spec and the report built from it.
type CheckResult struct {
	Spec      *openpkg.Spec
	Report    *report.Report
	FromCache bool
}

// Check extracts the package, scores its documentation and detects drift.
// Example execution failures are findings; only extraction and sandbox
// selection errors are returned.
func (e *Engine) Check(ctx context.Context, opts CheckOptions) (*CheckResult, error) {
	res, err := e.Spec(ctx, opts.SpecOptions)
	if err != nil {
		return nil, err
	}

	enriched := e.detector(opts.RequireExamples).Enrich(res.Spec)

	var runs []report.ExampleRun
	if opts.RunExamples {
		var findings []drift.ExampleFinding
		runs, findings, err = e.runExamples(ctx, enriched, res.ModuleRoot, opts.Backend)
		if err != nil {
			return nil, err
		}
		enriched = drift.ApplyExampleResults(enriched, findings)
	}

	r := report.Build(enriched,
		report.WithExamples(runs),
		report.WithDiagnostics(res.Diagnostics),
		report.WithGeneratedAt(e.now()),
	)
	e.logger.Info("check complete",
		"package", enriched.Meta.Name,
		"coverage", r.Summary.CoverageScore,
		"drift", r.Summary.DriftCount,
		"examples", len(runs),
	)
	return &CheckResult{Spec: enriched, Report: r, FromCache: res.FromCache}, nil
}

// runExamples executes the examples of spec. With the local backend the
// workspace replaces the package's module with moduleRoot, so examples run
// against the code on disk rather than a published release.
func (e *Engine) runExamples(ctx context.Context, spec *openpkg.Spec, moduleRoot, backendName string) ([]report.ExampleRun, []drift.ExampleFinding, error) {
	runner, name, err := e.runner(backendName)
	if err != nil {
		return nil, nil, err
	}

	base := sandbox.Request{PackageVersion: "latest"}
	if name == sandbox.BackendLocal && moduleRoot != "" && spec.Meta.Module != "" {
		base.ModulePath = spec.Meta.Module
		base.ModuleDir = moduleRoot
	}
	jobs := sandbox.Jobs(spec, base)
	e.logger.Debug("running examples", "backend", name, "jobs", len(jobs))

	results := runner.RunAll(ctx, jobs)
	runs := make([]report.ExampleRun, 0, len(results))
	var findings []drift.ExampleFinding
	for _, jr := range results {
		runs = append(runs, report.ExampleRun{
			ExportID: jr.Job.ExportID,
			Index:    jr.Job.Index,
			Title:    jr.Job.Example.Title,
			Result:   jr.Result,
			Drift:    jr.Drift,
		})
		if jr.Drift != nil {
			findings = append(findings, drift.ExampleFinding{ExportID: jr.Job.ExportID, Drift: *jr.Drift})
		}
	}
	return runs, findings, nil
}

// RunExample executes a single example request.
func (e *Engine) RunExample(ctx context.Context, req sandbox.Request, backendName string) (openpkg.ExampleExecutionResult, error) {
	runner, _, err := e.runner(backendName)
	if err != nil {
		return openpkg.ExampleExecutionResult{}, err
	}
	return runner.Run(ctx, req), nil
}
