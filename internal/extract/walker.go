package extract

import (
	"go/types"
	"reflect"
	"sort"
	"strings"

	"doccov/internal/adapters"
	"doccov/internal/openpkg"
)

// schema describes t starting at depth zero.
func (b *builder) schema(t types.Type) *openpkg.Schema {
	return b.walk(t, 0, nil)
}

// walk maps a Go type to a schema node. path holds the external named types
// currently being expanded; meeting one of them again, or going deeper than
// MaxDepth, yields a name-only node.
func (b *builder) walk(t types.Type, depth int, path []*types.TypeName) *openpkg.Schema {
	if depth > b.opts.MaxDepth {
		return b.nameOnly(t)
	}

	switch t := t.(type) {
	case *types.Alias:
		return b.walk(types.Unalias(t), depth, path)
	case *types.Basic:
		return basic(t)
	case *types.Pointer:
		return openpkg.Nullable(b.walk(t.Elem(), depth+1, path))
	case *types.Slice:
		return openpkg.ArrayOf(b.walk(t.Elem(), depth+1, path), -1)
	case *types.Array:
		return openpkg.ArrayOf(b.walk(t.Elem(), depth+1, path), int(t.Len()))
	case *types.Map:
		s := &openpkg.Schema{
			Type:                 openpkg.TypeObject,
			AdditionalProperties: b.walk(t.Elem(), depth+1, path),
		}
		if k, ok := t.Key().Underlying().(*types.Basic); !ok || k.Info()&types.IsString == 0 {
			s.GoType = types.TypeString(t, b.qualifier())
		}
		return s
	case *types.Struct:
		return b.object(t, depth, path)
	case *types.Interface:
		if t.Empty() {
			return openpkg.Primitive(openpkg.TypeAny)
		}
		return &openpkg.Schema{GoType: types.TypeString(t, b.qualifier())}
	case *types.Tuple:
		items := make([]*openpkg.Schema, t.Len())
		for i := range items {
			items[i] = b.walk(t.At(i).Type(), depth+1, path)
		}
		return openpkg.Tuple(items...)
	case *types.TypeParam:
		return &openpkg.Schema{GoType: t.Obj().Name()}
	case *types.Named:
		return b.named(t, depth, path)
	}
	// Chans, funcs and constraint unions.
	return &openpkg.Schema{GoType: types.TypeString(t, b.qualifier())}
}

func (b *builder) named(t *types.Named, depth int, path []*types.TypeName) *openpkg.Schema {
	obj := t.Obj()
	if obj.Pkg() == nil {
		return &openpkg.Schema{GoType: obj.Name()}
	}
	if res := b.registry.Resolve(t); res != nil {
		s := *b.walk(res.Output, depth+1, path)
		s.Adapter = res.Adapter.ID
		return &s
	}
	if s := wellKnown(t); s != nil {
		return s
	}

	if obj.Pkg() == b.pkg.Types {
		if obj.Parent() != b.pkg.Types.Scope() {
			// Declared inside a function body.
			return &openpkg.Schema{GoType: types.TypeString(t, b.qualifier())}
		}
		return b.localRef(t)
	}

	if !b.opts.ResolveExternalTypes || onPath(path, obj) {
		return externalRef(t, b.qualifier())
	}
	return b.walk(t.Underlying(), depth+1, append(path[:len(path):len(path)], obj))
}

func (b *builder) object(st *types.Struct, depth int, path []*types.TypeName) *openpkg.Schema {
	s := &openpkg.Schema{Type: openpkg.TypeObject, Properties: map[string]*openpkg.Schema{}}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Exported() {
			continue
		}
		name, omitempty, skip := jsonField(st.Tag(i), f.Name())
		if skip {
			continue
		}
		s.Properties[name] = b.walk(f.Type(), depth+1, path)
		if _, ptr := f.Type().Underlying().(*types.Pointer); !omitempty && !ptr {
			s.Required = append(s.Required, name)
		}
	}
	sort.Strings(s.Required)
	return s
}

func (b *builder) localRef(t *types.Named) *openpkg.Schema {
	b.refs[t.Obj().Name()] = true
	s := openpkg.Ref(t.Obj().Name())
	if t.TypeArgs().Len() > 0 {
		s.GoType = types.TypeString(t, b.qualifier())
	}
	return s
}

func externalRef(t *types.Named, q types.Qualifier) *openpkg.Schema {
	s := openpkg.Ref(adapters.QualifiedName(t))
	if t.TypeArgs().Len() > 0 {
		s.GoType = types.TypeString(t, q)
	}
	return s
}

// nameOnly is the node emitted once the depth limit is reached.
func (b *builder) nameOnly(t types.Type) *openpkg.Schema {
	if named, ok := types.Unalias(t).(*types.Named); ok && named.Obj().Pkg() != nil {
		if named.Obj().Pkg() == b.pkg.Types && named.Obj().Parent() == b.pkg.Types.Scope() {
			return b.localRef(named)
		}
		return externalRef(named, b.qualifier())
	}
	return &openpkg.Schema{GoType: types.TypeString(t, b.qualifier())}
}

func (b *builder) qualifier() types.Qualifier {
	return types.RelativeTo(b.pkg.Types)
}

func onPath(path []*types.TypeName, obj *types.TypeName) bool {
	for _, p := range path {
		if p == obj {
			return true
		}
	}
	return false
}

func basic(t *types.Basic) *openpkg.Schema {
	switch {
	case t.Kind() == types.UntypedNil:
		return openpkg.Primitive(openpkg.TypeNull)
	case t.Kind() == types.UnsafePointer, t.Kind() == types.Invalid:
		return &openpkg.Schema{Type: openpkg.TypeUnknown, GoType: t.Name()}
	case t.Info()&types.IsBoolean != 0:
		return openpkg.Primitive(openpkg.TypeBoolean)
	case t.Info()&types.IsString != 0:
		return openpkg.Primitive(openpkg.TypeString)
	case t.Info()&types.IsInteger != 0:
		s := openpkg.Primitive(openpkg.TypeInteger)
		if t.Info()&types.IsUntyped == 0 {
			s.Format = t.Name()
		}
		return s
	case t.Info()&(types.IsFloat|types.IsComplex) != 0:
		s := openpkg.Primitive(openpkg.TypeNumber)
		if t.Info()&types.IsUntyped == 0 {
			s.Format = t.Name()
		}
		return s
	}
	return &openpkg.Schema{Type: openpkg.TypeUnknown, GoType: t.Name()}
}

// wellKnown maps standard library types that have a natural JSON shape.
func wellKnown(t *types.Named) *openpkg.Schema {
	obj := t.Obj()
	switch obj.Pkg().Path() + "." + obj.Name() {
	case "time.Time":
		return &openpkg.Schema{Type: openpkg.TypeString, Format: "date-time"}
	case "time.Duration":
		return &openpkg.Schema{Type: openpkg.TypeInteger, Format: "duration"}
	case "encoding/json.RawMessage":
		return openpkg.Primitive(openpkg.TypeAny)
	}
	return nil
}

// jsonField applies the encoding/json naming rules of a struct tag.
func jsonField(tag, name string) (key string, omitempty, skip bool) {
	v, ok := reflect.StructTag(tag).Lookup("json")
	if !ok {
		return name, false, false
	}
	if v == "-" {
		return "", false, true
	}
	parts := strings.Split(v, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitempty = true
		}
	}
	return name, omitempty, false
}
