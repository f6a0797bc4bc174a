package adapters

import (
	"go/types"
	"regexp"
)

// ParseSchema claims "*Schema" types with a Parse method, the shape used by
// parse-then-validate libraries:
//
//	func (s UserSchema) Parse(v any) (User, error)
//	func (s *UserSchema) Parse(data []byte, dst *User) error
func ParseSchema() *Adapter {
	m := Marker{Kind: MarkerMethod, Name: "Parse"}
	return &Adapter{
		ID:      "parse-schema",
		Library: "parse/validate schemas",
		Pattern: regexp.MustCompile(`\.\w*Schema$`),
		Marker:  m,
		Output: func(t types.Type) types.Type {
			sig := methodSig(t, m.Name)
			if sig == nil {
				return nil
			}
			for i := 0; i < sig.Results().Len(); i++ {
				rt := sig.Results().At(i).Type()
				if !isError(rt) && !isEmptyInterface(rt) {
					return rt
				}
			}
			// Fall back to a pointer destination parameter.
			for i := sig.Params().Len() - 1; i >= 0; i-- {
				if p, ok := sig.Params().At(i).Type().(*types.Pointer); ok {
					return p.Elem()
				}
			}
			return nil
		},
		Input: func(t types.Type) types.Type {
			sig := methodSig(t, m.Name)
			if sig == nil || sig.Params().Len() == 0 {
				return nil
			}
			in := sig.Params().At(0).Type()
			if isEmptyInterface(in) {
				return nil
			}
			return in
		},
	}
}

// StandardSchema claims "*Schema" or "*Validator" types exposing a
// StandardSchema method whose result is generic over [Input, Output].
func StandardSchema() *Adapter {
	m := Marker{Kind: MarkerMethod, Name: "StandardSchema"}
	typeArg := func(i int) TypeExtractor {
		return func(t types.Type) types.Type {
			sig := methodSig(t, m.Name)
			if sig == nil || sig.Results().Len() == 0 {
				return nil
			}
			props := namedOf(sig.Results().At(0).Type())
			if props == nil || props.TypeArgs().Len() != 2 {
				return nil
			}
			return props.TypeArgs().At(i)
		}
	}
	return &Adapter{
		ID:      "standard-schema",
		Library: "standard schema interface",
		Pattern: regexp.MustCompile(`\.\w*(Schema|Validator)$`),
		Marker:  m,
		Output:  typeArg(1),
		Input:   typeArg(0),
	}
}

// StaticField claims generic wrapper types such as TObject[T] or
// Typed[T] that carry their static shape in a Static field.
func StaticField() *Adapter {
	m := Marker{Kind: MarkerField, Name: "Static"}
	return &Adapter{
		ID:      "static-field",
		Library: "static type wrappers",
		Pattern: regexp.MustCompile(`\.(T[A-Z]\w*|Typed\w*)$`),
		Marker:  m,
		Output: func(t types.Type) types.Type {
			if v, ok := lookup(t, m).(*types.Var); ok {
				return v.Type()
			}
			return nil
		},
	}
}

func methodSig(t types.Type, name string) *types.Signature {
	fn, ok := lookup(t, Marker{Kind: MarkerMethod, Name: name}).(*types.Func)
	if !ok {
		return nil
	}
	sig, _ := fn.Type().(*types.Signature)
	return sig
}

var errorType = types.Universe.Lookup("error").Type()

func isError(t types.Type) bool {
	return types.Identical(t, errorType)
}

func isEmptyInterface(t types.Type) bool {
	iface, ok := t.Underlying().(*types.Interface)
	return ok && iface.Empty()
}
