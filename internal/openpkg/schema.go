package openpkg

import (
	"sort"
	"strconv"
	"strings"
)

// Primitive schema type names.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeNull    = "null"
	TypeAny     = "any"
	TypeUnknown = "unknown"
	TypeNever   = "never"
	TypeVoid    = "void"
	TypeArray   = "array"
	TypeObject  = "object"
)

// RefPrefix prefixes references to entries of Spec.Types.
const RefPrefix = "#/types/"

// Schema is a recursive type description. Exactly one shape is used per
// node: a primitive Type, a Ref, a union (AnyOf), a tuple (array with
// PrefixItems), an array (Items), an object, or a GoType fallback.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	AnyOf                []*Schema          `json:"anyOf,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	PrefixItems          []*Schema          `json:"prefixItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	GoType               string             `json:"goType,omitempty"`
	Adapter              string             `json:"x-adapter,omitempty"`
}

// Primitive returns a leaf node.
func Primitive(name string) *Schema {
	return &Schema{Type: name}
}

// Ref returns a reference node. Local names are prefixed with RefPrefix;
// qualified external names are kept as is.
func Ref(name string) *Schema {
	if strings.Contains(name, "/") || strings.Contains(name, ".") {
		return &Schema{Ref: name}
	}
	return &Schema{Ref: RefPrefix + name}
}

// Nullable wraps s in a union with null.
func Nullable(s *Schema) *Schema {
	return &Schema{AnyOf: []*Schema{s, Primitive(TypeNull)}}
}

// ArrayOf returns an array of items; a non-negative length fixes maxItems.
func ArrayOf(items *Schema, length int) *Schema {
	s := &Schema{Type: TypeArray, Items: items}
	if length >= 0 {
		n := length
		s.MaxItems = &n
	}
	return s
}

// Tuple returns a fixed-length heterogeneous array.
func Tuple(items ...*Schema) *Schema {
	return &Schema{Type: TypeArray, PrefixItems: items}
}

// RefName returns the referenced type name with the local prefix removed.
func (s *Schema) RefName() string {
	return strings.TrimPrefix(s.Ref, RefPrefix)
}

// IsLocalRef reports whether s references an entry of Spec.Types.
func (s *Schema) IsLocalRef() bool {
	return s != nil && strings.HasPrefix(s.Ref, RefPrefix)
}

// String renders s as a compact type expression. The rendering is stable and
// is used both in messages and as a comparison key.
func (s *Schema) String() string {
	if s == nil {
		return TypeVoid
	}
	switch {
	case s.Ref != "":
		return s.RefName()
	case len(s.AnyOf) > 0:
		parts := make([]string, len(s.AnyOf))
		for i, a := range s.AnyOf {
			parts[i] = a.String()
		}
		return strings.Join(parts, " | ")
	case s.Type == TypeArray && len(s.PrefixItems) > 0:
		parts := make([]string, len(s.PrefixItems))
		for i, a := range s.PrefixItems {
			parts[i] = a.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case s.Type == TypeArray:
		prefix := "[]"
		if s.MaxItems != nil {
			prefix = "[" + strconv.Itoa(*s.MaxItems) + "]"
		}
		return prefix + s.Items.String()
	case s.Type == TypeObject && s.AdditionalProperties != nil:
		return "map[string]" + s.AdditionalProperties.String()
	case s.Type == TypeObject && len(s.Properties) > 0:
		names := make([]string, 0, len(s.Properties))
		for n := range s.Properties {
			names = append(names, n)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = n + ": " + s.Properties[n].String()
		}
		return "{" + strings.Join(parts, "; ") + "}"
	case s.Type != "":
		return s.Type
	case s.GoType != "":
		return s.GoType
	default:
		return TypeUnknown
	}
}

// Equal reports structural equality through the canonical rendering plus
// format and adapter annotations.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.String() == o.String() && s.Format == o.Format && s.GoType == o.GoType
}

// Accepts reports whether a value described by o can be used where s is
// expected without a conversion. Numeric kinds only accept their own format
// and anything that cannot be shown assignable is reported as not accepted.
func (s *Schema) Accepts(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Equal(o) {
		return true
	}
	if s.Type == TypeAny || s.Type == TypeUnknown {
		return true
	}
	if o.Type == TypeNever {
		return true
	}
	if len(o.AnyOf) > 0 {
		for _, member := range o.AnyOf {
			if !s.Accepts(member) {
				return false
			}
		}
		return true
	}
	if len(s.AnyOf) > 0 {
		// A nullable (pointer) slot does not accept a bare value.
		if s.hasNull() {
			return false
		}
		for _, member := range s.AnyOf {
			if member.Accepts(o) {
				return true
			}
		}
		return false
	}
	if s.Ref != "" || o.Ref != "" {
		return s.Ref == o.Ref
	}
	// Result tuples compare element-wise. Slices, arrays, maps and struct
	// literals are only assignable when identical, which Equal ruled out.
	if len(s.PrefixItems) == 0 || len(s.PrefixItems) != len(o.PrefixItems) {
		return false
	}
	for i := range s.PrefixItems {
		if !s.PrefixItems[i].Accepts(o.PrefixItems[i]) {
			return false
		}
	}
	return true
}

func (s *Schema) hasNull() bool {
	for _, m := range s.AnyOf {
		if m.Type == TypeNull {
			return true
		}
	}
	return false
}
