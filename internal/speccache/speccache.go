// Package speccache stores the last extracted spec next to the content
// hashes of everything it was derived from, so unchanged packages skip
// extraction.
package speccache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"doccov/internal/errors"
	"doccov/internal/openpkg"
	"doccov/internal/paths"
	"doccov/internal/slogutil"
	"doccov/internal/version"
)

// hashLen is the number of hex characters kept from a SHA-256 digest.
const hashLen = 16

// Reason explains why a cache entry is stale.
type Reason string

const (
	ReasonVersionMismatch    Reason = "cache-version-mismatch"
	ReasonEntryFileChanged   Reason = "entry-file-changed"
	ReasonConfigChanged      Reason = "config-changed"
	ReasonBuildConfigChanged Reason = "build-config-changed"
	ReasonManifestChanged    Reason = "manifest-changed"
	ReasonSourceFilesChanged Reason = "source-files-changed"
)

// Hashes fingerprints the inputs of an extraction.
type Hashes struct {
	BuildConfig     *string           `json:"buildConfig"`
	PackageManifest string            `json:"packageManifest"`
	SourceFiles     map[string]string `json:"sourceFiles"`
}

// Settings is the part of the configuration that changes extraction output.
type Settings struct {
	MaxDepth             int      `json:"maxDepth"`
	ResolveExternalTypes bool     `json:"resolveExternalTypes"`
	Exclude              []string `json:"exclude"`
}

func (s Settings) equal(o Settings) bool {
	return s.MaxDepth == o.MaxDepth &&
		s.ResolveExternalTypes == o.ResolveExternalTypes &&
		slices.Equal(normalizeGlobs(s.Exclude), normalizeGlobs(o.Exclude))
}

// SpecCache is the on-disk cache record.
type SpecCache struct {
	CacheVersion string        `json:"cacheVersion"`
	GeneratedAt  string        `json:"generatedAt"`
	SpecVersion  string        `json:"specVersion"`
	EntryFile    string        `json:"entryFile"`
	Hashes       Hashes        `json:"hashes"`
	Config       Settings      `json:"config"`
	Spec         *openpkg.Spec `json:"spec"`
	// Diagnostics are those of the extraction that produced Spec.
	Diagnostics []openpkg.Diagnostic `json:"diagnostics,omitempty"`
}

// Context describes the extraction a cache entry is checked against.
// Paths are relative to Root.
type Context struct {
	Root        string
	EntryFile   string
	SourceFiles []string
	Config      Settings
}

// Validation is the outcome of Validate.
type Validation struct {
	Valid        bool     `json:"valid"`
	Reason       Reason   `json:"reason,omitempty"`
	ChangedFiles []string `json:"changedFiles,omitempty"`
}

// Status describes the cache file for the CLI.
type Status struct {
	Path        string `json:"path"`
	Exists      bool   `json:"exists"`
	Size        int64  `json:"size,omitempty"`
	GeneratedAt string `json:"generatedAt,omitempty"`
	EntryFile   string `json:"entryFile,omitempty"`
	Files       int    `json:"files,omitempty"`
	Exports     int    `json:"exports,omitempty"`
}

// Store reads and writes the cache of one module root.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// New returns the store for the module at root.
func New(root string, logger *slog.Logger) *Store {
	return &Store{root: root, logger: slogutil.OrDiscard(logger), now: time.Now}
}

// Path returns the cache file location.
func (s *Store) Path() string {
	return paths.CacheFile(s.root)
}

// Load reads the cache. A missing or unreadable cache yields nil.
func (s *Store) Load() *SpecCache {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache unreadable", "path", s.Path(), "error", err)
		}
		return nil
	}
	var c SpecCache
	if err := json.Unmarshal(data, &c); err != nil || c.Spec == nil {
		s.logger.Warn("cache corrupt, ignoring", "path", s.Path(), "error", err)
		return nil
	}
	return &c
}

// Save hashes the inputs named by ctx and writes spec, with the
// diagnostics of its extraction, atomically.
func (s *Store) Save(spec *openpkg.Spec, diags []openpkg.Diagnostic, ctx Context) error {
	hashes, err := s.hashInputs(ctx.SourceFiles)
	if err != nil {
		return errors.New(errors.CacheIO, "hash cache inputs", err)
	}
	c := SpecCache{
		CacheVersion: version.CacheFormat,
		GeneratedAt:  s.now().UTC().Format(time.RFC3339),
		SpecVersion:  spec.OpenPkg,
		EntryFile:    filepath.ToSlash(ctx.EntryFile),
		Hashes:       hashes,
		Config:       ctx.Config,
		Spec:         spec,
		Diagnostics:  diags,
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CacheIO, "encode cache", err)
	}
	if err := writeAtomic(s.Path(), data); err != nil {
		return errors.New(errors.CacheIO, "write cache", err)
	}
	s.logger.Debug("cache saved", "path", s.Path(), "files", len(hashes.SourceFiles))
	return nil
}

// Validate checks c against the current state of the module. Checks run
// from cheapest to most expensive and the first failure is reported.
func (s *Store) Validate(c *SpecCache, ctx Context) Validation {
	if c == nil || c.CacheVersion != version.CacheFormat {
		return Validation{Reason: ReasonVersionMismatch}
	}
	if c.EntryFile != filepath.ToSlash(ctx.EntryFile) {
		return Validation{Reason: ReasonEntryFileChanged}
	}
	if !c.Config.equal(ctx.Config) {
		return Validation{Reason: ReasonConfigChanged}
	}
	if !sameHash(c.Hashes.BuildConfig, s.buildConfigHash()) {
		return Validation{Reason: ReasonBuildConfigChanged}
	}
	manifest, err := HashFile(filepath.Join(s.root, "go.mod"))
	if err != nil || manifest != c.Hashes.PackageManifest {
		return Validation{Reason: ReasonManifestChanged}
	}
	if changed := s.changedFiles(c, ctx.Config.Exclude); len(changed) > 0 {
		return Validation{Reason: ReasonSourceFilesChanged, ChangedFiles: changed}
	}
	return Validation{Valid: true}
}

// Clear removes the cache file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return errors.New(errors.CacheIO, "remove cache", err)
	}
	return nil
}

// Status reports on the cache file without validating it.
func (s *Store) Status() Status {
	st := Status{Path: s.Path()}
	info, err := os.Stat(st.Path)
	if err != nil {
		return st
	}
	st.Exists = true
	st.Size = info.Size()
	if c := s.Load(); c != nil {
		st.GeneratedAt = c.GeneratedAt
		st.EntryFile = c.EntryFile
		st.Files = len(c.Hashes.SourceFiles)
		st.Exports = len(c.Spec.Exports)
	}
	return st
}

func (s *Store) hashInputs(files []string) (Hashes, error) {
	h := Hashes{BuildConfig: s.buildConfigHash(), SourceFiles: map[string]string{}}
	manifest, err := HashFile(filepath.Join(s.root, "go.mod"))
	if err != nil {
		return h, err
	}
	h.PackageManifest = manifest
	for _, rel := range files {
		sum, err := HashFile(paths.JoinRepoPath(s.root, rel))
		if err != nil {
			return h, fmt.Errorf("hash %s: %w", rel, err)
		}
		h.SourceFiles[filepath.ToSlash(rel)] = sum
	}
	return h, nil
}

func (s *Store) buildConfigHash() *string {
	work := paths.FindWorkFile(s.root)
	if work == "" {
		return nil
	}
	sum, err := HashFile(work)
	if err != nil {
		return nil
	}
	return &sum
}

// changedFiles returns modified, removed and added files, sorted. Added
// files are Go files in a directory the cache already covers.
func (s *Store) changedFiles(c *SpecCache, exclude []string) []string {
	var changed []string
	dirs := map[string]bool{}
	for rel, want := range c.Hashes.SourceFiles {
		dirs[filepath.Dir(filepath.FromSlash(rel))] = true
		got, err := HashFile(paths.JoinRepoPath(s.root, rel))
		if err != nil || got != want {
			changed = append(changed, rel)
		}
	}

	for dir := range dirs {
		entries, err := os.ReadDir(filepath.Join(s.root, dir))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
				continue
			}
			rel := filepath.ToSlash(filepath.Join(dir, e.Name()))
			if _, known := c.Hashes.SourceFiles[rel]; known || isExcluded(rel, exclude) {
				continue
			}
			changed = append(changed, rel)
		}
	}
	sort.Strings(changed)
	return changed
}

// HashBytes returns the truncated SHA-256 hex digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLen]
}

// HashFile hashes the content of path.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

func sameHash(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func isExcluded(rel string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func normalizeGlobs(globs []string) []string {
	out := append([]string(nil), globs...)
	sort.Strings(out)
	return out
}

// writeAtomic writes data to a temp file beside path and renames it over
// path, so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".spec.cache-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
