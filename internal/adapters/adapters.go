// Package adapters recognizes values built with runtime validation libraries
// and recovers the Go types they validate into.
//
// An adapter claims a named type only when both its name pattern and its
// marker (a method or field) are present. Adapters live in an explicit
// Registry; the first registered adapter that claims a type wins.
package adapters

import (
	"go/types"
	"regexp"
)

// MarkerKind says whether a marker is a method or a struct field.
type MarkerKind string

const (
	MarkerMethod MarkerKind = "method"
	MarkerField  MarkerKind = "field"
)

// Marker is the characteristic member a library leaves on its schema types.
type Marker struct {
	Kind MarkerKind
	Name string
}

// TypeExtractor recovers a type from a claimed schema type, or returns nil.
type TypeExtractor func(t types.Type) types.Type

// Adapter describes one validation library convention.
type Adapter struct {
	ID      string
	Library string
	Pattern *regexp.Regexp // matched against "importpath.Name"
	Marker  Marker
	Output  TypeExtractor
	Input   TypeExtractor // nil when only an output shape is exposed
}

// Matches reports whether the adapter claims t.
func (a *Adapter) Matches(t types.Type) bool {
	named := namedOf(t)
	if named == nil || !a.Pattern.MatchString(QualifiedName(named)) {
		return false
	}
	return a.marker(t) != nil
}

// ExtractOutputType returns the validated output type, or nil.
func (a *Adapter) ExtractOutputType(t types.Type) types.Type {
	if a.Output == nil || !a.Matches(t) {
		return nil
	}
	return a.Output(t)
}

// ExtractInputType returns the accepted input type. The second result is
// false when the adapter does not expose inputs or recovers nothing.
func (a *Adapter) ExtractInputType(t types.Type) (types.Type, bool) {
	if a.Input == nil || !a.Matches(t) {
		return nil, false
	}
	in := a.Input(t)
	return in, in != nil
}

func (a *Adapter) marker(t types.Type) types.Object {
	return lookup(t, a.Marker)
}

// Registry is an ordered list of adapters.
type Registry struct {
	adapters []*Adapter
}

// NewRegistry returns a registry trying adapters in the given order.
func NewRegistry(adapters ...*Adapter) *Registry {
	r := &Registry{}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// DefaultRegistry returns a registry with the built-in adapters, ordered
// from the most specific marker to the least specific one.
func DefaultRegistry() *Registry {
	return NewRegistry(StandardSchema(), ParseSchema(), StaticField())
}

// Register appends a to the registry. Later adapters lose ties.
func (r *Registry) Register(a *Adapter) {
	r.adapters = append(r.adapters, a)
}

// Adapters returns the adapters in registration order.
func (r *Registry) Adapters() []*Adapter {
	out := make([]*Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Match returns the first adapter claiming t, or nil.
func (r *Registry) Match(t types.Type) *Adapter {
	if r == nil {
		return nil
	}
	for _, a := range r.adapters {
		if a.Matches(t) {
			return a
		}
	}
	return nil
}

// Resolution is a successful adapter claim.
type Resolution struct {
	Adapter *Adapter
	Output  types.Type
	Input   types.Type
}

// Resolve applies the first matching adapter. It returns nil when no adapter
// claims t or the claiming adapter recovers no output type; callers then
// fall back to the declared type.
func (r *Registry) Resolve(t types.Type) *Resolution {
	a := r.Match(t)
	if a == nil {
		return nil
	}
	out := a.Output(t)
	if out == nil {
		return nil
	}
	res := &Resolution{Adapter: a, Output: out}
	if a.Input != nil {
		res.Input = a.Input(t)
	}
	return res
}

// QualifiedName renders a named type as "importpath.Name", ignoring type arguments.
func QualifiedName(named *types.Named) string {
	obj := named.Origin().Obj()
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func namedOf(t types.Type) *types.Named {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, _ := types.Unalias(t).(*types.Named)
	return named
}

func lookup(t types.Type, m Marker) types.Object {
	named := namedOf(t)
	if named == nil {
		return nil
	}
	obj, _, _ := types.LookupFieldOrMethod(named, true, named.Obj().Pkg(), m.Name)
	switch o := obj.(type) {
	case *types.Func:
		if m.Kind == MarkerMethod {
			return o
		}
	case *types.Var:
		if m.Kind == MarkerField && o.IsField() {
			return o
		}
	}
	return nil
}
