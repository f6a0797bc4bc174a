package docs

import (
	"sort"
	"strings"
)

// ResolverConfig controls which mentions are eligible for resolution.
type ResolverConfig struct {
	MinSegments        int  // minimum segments for suffix match
	AllowSingleSegment bool // resolve bare names like "Add"
}

// DefaultResolverConfig suits Markdown prose, where single words are too
// noisy to treat as references.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{MinSegments: 2}
}

// Index is an in-memory name table with a suffix lookup.
type Index struct {
	names    map[string]bool
	suffixes map[string][]string
}

// NewIndex indexes dot-separated canonical names such as "calc.Node.Len".
func NewIndex(names ...string) *Index {
	idx := &Index{names: map[string]bool{}, suffixes: map[string][]string{}}
	for _, n := range names {
		idx.Add(n)
	}
	return idx
}

// Add indexes one name. Adding a name twice is a no-op.
func (idx *Index) Add(name string) {
	name = Normalize(name)
	if name == "" || idx.names[name] {
		return
	}
	idx.names[name] = true
	parts := strings.Split(name, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		suffix := strings.Join(parts[i:], ".")
		idx.suffixes[suffix] = append(idx.suffixes[suffix], name)
	}
}

// Len returns the number of indexed names.
func (idx *Index) Len() int {
	return len(idx.names)
}

// Contains reports whether name is indexed exactly.
func (idx *Index) Contains(name string) bool {
	return idx.names[Normalize(name)]
}

// Resolver resolves raw mentions against an Index.
type Resolver struct {
	index  *Index
	config ResolverConfig
}

// NewResolver creates a resolver over index.
func NewResolver(index *Index, config ResolverConfig) *Resolver {
	return &Resolver{index: index, config: config}
}

// Resolve tries an exact match, then a unique suffix match.
func (r *Resolver) Resolve(raw string) Resolution {
	normalized := Normalize(raw)
	if normalized == "" {
		return Resolution{Status: ResolutionIneligible, Message: "empty reference"}
	}
	if CountSegments(normalized) < r.config.MinSegments && !r.config.AllowSingleSegment {
		return Resolution{
			Status:  ResolutionIneligible,
			Message: "single-segment names need a <!-- doccov:symbol pkg.Name --> directive",
		}
	}

	if r.index.names[normalized] {
		return Resolution{Status: ResolutionExact, Name: normalized}
	}

	candidates := r.index.suffixes[normalized]
	switch len(candidates) {
	case 0:
		return Resolution{Status: ResolutionMissing, Message: "no export named " + normalized}
	case 1:
		return Resolution{Status: ResolutionSuffix, Name: candidates[0]}
	default:
		sorted := append([]string(nil), candidates...)
		sort.Strings(sorted)
		return Resolution{
			Status:     ResolutionAmbiguous,
			Candidates: sorted,
			Message:    "matches " + strings.Join(sorted, ", "),
		}
	}
}

// Suggest returns up to limit indexed names sharing the last segment of raw.
func (r *Resolver) Suggest(raw string, limit int) []string {
	normalized := Normalize(raw)
	last := normalized[strings.LastIndex(normalized, ".")+1:]
	var out []string
	for name := range r.index.names {
		if strings.EqualFold(name[strings.LastIndex(name, ".")+1:], last) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
