package engine

import (
	"context"
	"os"
	"path/filepath"

	"doccov/internal/errors"
	"doccov/internal/extract"
	"doccov/internal/openpkg"
	"doccov/internal/paths"
	"doccov/internal/speccache"
)

// SpecOptions selects the package to describe. Zero values fall back to
// the configuration.
type SpecOptions struct {
	Entry                string
	MaxDepth             int
	ResolveExternalTypes bool
	Version              string
	NoCache              bool
}

// SpecResult is an extracted (or cached) spec.
type SpecResult struct {
	Spec        *openpkg.Spec        `json:"spec"`
	Diagnostics []openpkg.Diagnostic `json:"diagnostics,omitempty"`
	ModuleRoot  string               `json:"moduleRoot"`
	FromCache   bool                 `json:"fromCache"`
	// Cache is the validation of the previous cache entry; empty when the
	// cache was not consulted.
	Cache speccache.Validation `json:"cache"`
}

// Spec extracts the package at opts.Entry, serving it from the spec cache
// when every input is unchanged. A cache that cannot be written only costs
// a warning.
func (e *Engine) Spec(ctx context.Context, opts SpecOptions) (*SpecResult, error) {
	if opts.Entry == "" {
		opts.Entry = e.cfg.Entry
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = e.cfg.Extraction.MaxDepth
	}
	opts.ResolveExternalTypes = opts.ResolveExternalTypes || e.cfg.Extraction.ResolveExternalTypes

	entry, err := filepath.Abs(opts.Entry)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(entry)
	if err != nil {
		return nil, errors.New(errors.EntryNotFound, "entry "+opts.Entry+" not found", err)
	}
	dir := entry
	if !info.IsDir() {
		dir = filepath.Dir(entry)
	}
	mod, err := paths.FindModule(dir)
	if err != nil {
		return nil, errors.New(errors.PackageLoadFailed, "locate go.mod", err)
	}
	rel, err := paths.CanonicalizePath(entry, mod.Root)
	if err != nil {
		return nil, err
	}

	useCache := e.cfg.Cache.Enabled && !opts.NoCache
	store := speccache.New(mod.Root, e.logger)
	cctx := speccache.Context{
		Root:      mod.Root,
		EntryFile: rel,
		Config: speccache.Settings{
			MaxDepth:             opts.MaxDepth,
			ResolveExternalTypes: opts.ResolveExternalTypes,
			Exclude:              e.cfg.Extraction.Exclude,
		},
	}

	var validation speccache.Validation
	if useCache {
		cached := store.Load()
		validation = store.Validate(cached, cctx)
		if validation.Valid {
			e.logger.Debug("spec served from cache", "entry", rel, "exports", len(cached.Spec.Exports))
			spec := cached.Spec
			if opts.Version != "" && spec.Meta.Version != opts.Version {
				clone := *spec
				clone.Meta.Version = opts.Version
				spec = &clone
			}
			return &SpecResult{
				Spec:        spec,
				Diagnostics: cached.Diagnostics,
				ModuleRoot:  mod.Root,
				FromCache:   true,
				Cache:       validation,
			}, nil
		}
		e.logger.Debug("spec cache miss", "reason", validation.Reason, "changedFiles", len(validation.ChangedFiles))
	}

	res, err := e.extractor.Extract(ctx, extract.Options{
		Entry:                entry,
		MaxDepth:             opts.MaxDepth,
		ResolveExternalTypes: opts.ResolveExternalTypes,
		Version:              opts.Version,
		Exclude:              e.cfg.Extraction.Exclude,
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		cctx.SourceFiles = res.SourceFiles
		if err := store.Save(res.Spec, res.Diagnostics, cctx); err != nil {
			e.logger.Warn("spec cache not written", "path", store.Path(), "error", err)
		}
	}
	return &SpecResult{
		Spec:        res.Spec,
		Diagnostics: res.Diagnostics,
		ModuleRoot:  res.ModuleRoot,
		Cache:       validation,
	}, nil
}
