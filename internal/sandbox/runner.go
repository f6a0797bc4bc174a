package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"doccov/internal/config"
	"doccov/internal/openpkg"
	"doccov/internal/slogutil"
)

// exampleModule is the module path of every synthesized workspace.
const exampleModule = "doccov.example/run"

// NewBackend builds the backend named by cfg.Backend.
func NewBackend(cfg config.SandboxConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalBackend(cfg.GoBinary, logger), nil
	case BackendContainer:
		return NewContainerBackend(cfg.Image, logger), nil
	default:
		return nil, fmt.Errorf("unknown sandbox backend %q", cfg.Backend)
	}
}

// Runner executes examples. Each run provisions its own workspace and tears
// it down before returning, whatever the outcome.
type Runner struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// NewRunner creates a runner.
func NewRunner(backend Backend, opts Options, logger *slog.Logger) *Runner {
	def := DefaultOptions()
	if opts.InstallTimeout <= 0 {
		opts.InstallTimeout = def.InstallTimeout
	}
	if opts.ExecTimeout <= 0 {
		opts.ExecTimeout = def.ExecTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	return &Runner{backend: backend, opts: opts, logger: slogutil.OrDiscard(logger), now: time.Now}
}

// Run executes one example. Failures of any kind, including provisioning
// and install failures, are reported as an unsuccessful result.
func (r *Runner) Run(ctx context.Context, req Request) openpkg.ExampleExecutionResult {
	start := r.now()
	res := r.run(ctx, req)
	res.Duration = r.now().Sub(start).Milliseconds()
	r.logger.Debug("example executed",
		"backend", r.backend.Name(),
		"package", req.PackageName,
		"success", res.Success,
		"exitCode", res.ExitCode,
		"durationMs", res.Duration,
	)
	return res
}

func (r *Runner) run(ctx context.Context, req Request) openpkg.ExampleExecutionResult {
	version := req.PackageVersion
	if version == "" {
		version = "latest"
	}
	if version != "latest" && !semver.IsValid(version) {
		return failure(-1, fmt.Sprintf("invalid package version %q: want a semantic version such as v1.2.3", version))
	}

	ws, err := r.backend.Provision(ctx)
	if err != nil {
		return failure(-1, "provision workspace: "+err.Error())
	}
	defer func() {
		if err := ws.Close(); err != nil {
			r.logger.Warn("workspace teardown failed", "backend", r.backend.Name(), "error", err)
		}
	}()

	if err := ws.WriteFile(ctx, "main.go", Synthesize(req)); err != nil {
		return failure(-1, "write example: "+err.Error())
	}

	installCtx, cancelInstall := context.WithTimeout(ctx, r.opts.InstallTimeout)
	defer cancelInstall()
	for _, step := range r.installSteps(req, version) {
		res, err := ws.Exec(installCtx, step...)
		if timedOut(installCtx) {
			return failure(-1, fmt.Sprintf("go %s timed out after %s\n%s", step[0], r.opts.InstallTimeout, res.Stderr))
		}
		if err != nil {
			return failure(-1, fmt.Sprintf("go %s: %v", step[0], err))
		}
		if res.ExitCode != 0 {
			return failure(res.ExitCode, fmt.Sprintf("go %s failed:\n%s", strings.Join(step, " "), res.Stderr))
		}
	}
	cancelInstall()

	execCtx, cancelExec := context.WithTimeout(ctx, r.opts.ExecTimeout)
	defer cancelExec()
	res, err := ws.Exec(execCtx, "run", ".")
	if timedOut(execCtx) {
		out := failure(-1, fmt.Sprintf("example timed out after %s and was killed\n%s", r.opts.ExecTimeout, res.Stderr))
		out.Stdout = res.Stdout
		return out
	}
	if err != nil {
		return failure(-1, "go run: "+err.Error())
	}
	return openpkg.ExampleExecutionResult{
		Success:  res.ExitCode == 0,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
	}
}

// installSteps lists the go commands that prepare a workspace: module init,
// an optional replace for a local module, and fetching the target package.
// Standard library packages need no fetch.
func (r *Runner) installSteps(req Request, version string) [][]string {
	steps := [][]string{{"mod", "init", exampleModule}}
	if req.PackageName == "" || IsStdlib(req.PackageName) {
		return append(steps, []string{"mod", "tidy"})
	}
	target := req.PackageName + "@" + version
	if req.ModuleDir != "" && req.ModulePath != "" {
		steps = append(steps, []string{"mod", "edit", "-replace", req.ModulePath + "=" + req.ModuleDir})
		target = req.PackageName
	}
	return append(steps, []string{"get", target}, []string{"mod", "tidy"})
}

func timedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func failure(exitCode int, stderr string) openpkg.ExampleExecutionResult {
	if exitCode == 0 {
		exitCode = -1
	}
	return openpkg.ExampleExecutionResult{Success: false, Stderr: stderr, ExitCode: exitCode}
}

// Job is one example of one export.
type Job struct {
	ExportID string
	Index    int
	Example  openpkg.Example
	Request  Request
}

// JobResult pairs a job with its execution result and the finding it maps
// to, if any.
type JobResult struct {
	Job    Job
	Result openpkg.ExampleExecutionResult
	Drift  *openpkg.Drift
}

// Jobs lists one job per example in spec. Examples from test files are
// complete programs; doc examples are statement lists.
func Jobs(spec *openpkg.Spec, base Request) []Job {
	var jobs []Job
	for _, e := range spec.Exports {
		for i, ex := range e.Examples {
			req := base
			req.PackageName = spec.Meta.Name
			req.Code = ex.Code
			jobs = append(jobs, Job{ExportID: e.ID, Index: i, Example: ex, Request: req})
		}
	}
	return jobs
}

// RunAll runs jobs with at most Options.Concurrency in flight. Results are
// in job order. Jobs that never started because ctx was cancelled are
// reported as failures.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, job := range jobs {
		results[i].Job = job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Result = failure(-1, "not started: "+err.Error())
			} else {
				results[i].Result = r.Run(gctx, job.Request)
			}
			results[i].Drift = Classify(job.ExportID, job.Index, job.Example, results[i].Result)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
