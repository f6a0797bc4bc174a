package drift

import (
	"regexp"
	"strings"

	"doccov/internal/openpkg"
)

var (
	// importPath matches the directory part of a qualified name.
	importPath = regexp.MustCompile(`[A-Za-z0-9_.\-]+/`)
	// qualifier matches a package qualifier such as "calc." or "v2.".
	qualifier = regexp.MustCompile(`\b[a-z_][A-Za-z0-9_]*\.`)
)

// normalizeType canonicalizes a type token for comparison.
func normalizeType(s string) string {
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, "interface{}", "any")
	s = importPath.ReplaceAllString(s, "")
	s = qualifier.ReplaceAllString(s, "")
	return s
}

// typeMatches reports whether a documented type token names schema.
func typeMatches(documented string, schema *openpkg.Schema) bool {
	want := normalizeType(documented)
	if want == "" {
		return true
	}
	for _, r := range renderings(schema) {
		if r == want {
			return true
		}
	}
	return false
}

// renderings lists the spellings a schema is accepted under: its schema
// rendering, its Go spelling and, for primitives, the schema type name.
func renderings(s *openpkg.Schema) []string {
	if s == nil {
		return []string{"void"}
	}
	var out []string
	add := func(v string) {
		if v != "" {
			out = append(out, normalizeType(v))
		}
	}
	add(s.String())
	add(s.Format)
	add(s.GoType)

	switch s.Type {
	case openpkg.TypeBoolean:
		add("bool")
	case openpkg.TypeInteger:
		add("number")
	case openpkg.TypeAny:
		add("any")
	}

	if len(s.AnyOf) == 2 && s.AnyOf[1].Type == openpkg.TypeNull {
		for _, r := range renderings(s.AnyOf[0]) {
			add("*" + r)
			add(r + "|null")
		}
	}
	if s.Type == openpkg.TypeArray && s.Items != nil {
		for _, r := range renderings(s.Items) {
			if s.MaxItems == nil {
				add("[]" + r)
			}
			add(r + "[]")
		}
	}
	if s.Type == openpkg.TypeObject && s.AdditionalProperties != nil && s.GoType == "" {
		for _, r := range renderings(s.AdditionalProperties) {
			add("map[string]" + r)
		}
	}
	return out
}

// stripErrorResult turns "(int, error)" into "int" when the signature has a
// trailing error, since Returns.Schema excludes it.
func stripErrorResult(documented string, hasError bool) string {
	t := strings.TrimSpace(documented)
	if !hasError || !strings.HasPrefix(t, "(") || !strings.HasSuffix(t, ")") {
		return t
	}
	parts := strings.Split(t[1:len(t)-1], ",")
	if len(parts) < 2 || strings.TrimSpace(parts[len(parts)-1]) != "error" {
		return t
	}
	values := parts[:len(parts)-1]
	if len(values) == 1 {
		return strings.TrimSpace(values[0])
	}
	return "[" + strings.Join(values, ",") + "]"
}

func isVoid(t string) bool {
	switch normalizeType(t) {
	case "", "void", "nothing":
		return true
	}
	return false
}
