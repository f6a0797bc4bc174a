// Package engine wires the extractor, spec cache, drift detector, sandbox
// runner and differ into the operations the CLI and HTTP API expose.
package engine

import (
	"log/slog"
	"time"

	"doccov/internal/adapters"
	"doccov/internal/config"
	"doccov/internal/drift"
	"doccov/internal/errors"
	"doccov/internal/extract"
	"doccov/internal/sandbox"
	"doccov/internal/slogutil"
)

// Engine coordinates one configuration's worth of doccov operations. It is
// safe for concurrent use; every operation builds its own per-run state.
type Engine struct {
	cfg       *config.Config
	extractor *extract.Extractor
	logger    *slog.Logger
	now       func() time.Time
	backend   sandbox.Backend
}

// Option customizes an Engine.
type Option func(*Engine)

// WithBackend fixes the sandbox backend instead of building one from
// configuration for every run.
func WithBackend(b sandbox.Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// WithClock replaces time.Now for report stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRegistry replaces the default schema adapter registry.
func WithRegistry(r *adapters.Registry) Option {
	return func(e *Engine) { e.extractor = extract.New(r, e.logger) }
}

// New creates an engine. A nil cfg means the defaults.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger = slogutil.OrDiscard(logger)
	e := &Engine{
		cfg:       cfg,
		extractor: extract.New(adapters.DefaultRegistry(), logger),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

func (e *Engine) detector(requireExamples bool) *drift.Detector {
	return drift.New(drift.Options{RequireExamples: requireExamples || e.cfg.Coverage.RequireExamples}, e.logger)
}

// runner builds a sandbox runner; backendName overrides sandbox.backend.
func (e *Engine) runner(backendName string) (*sandbox.Runner, string, error) {
	sc := e.cfg.Sandbox
	if backendName != "" {
		sc.Backend = backendName
	}
	b := e.backend
	if b == nil {
		var err error
		if b, err = sandbox.NewBackend(sc, e.logger); err != nil {
			return nil, "", errors.New(errors.SandboxUnavailable, "select sandbox backend", err)
		}
	}
	return sandbox.NewRunner(b, sandbox.OptionsFromConfig(sc), e.logger), b.Name(), nil
}
