package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"doccov/internal/openpkg"
)

// Hasher fingerprints exports so unchanged ones skip the detailed comparison.
// Uses length-prefixed encoding to avoid delimiter ambiguity.
// Format: ${len}:${value}${len}:${value}...
type Hasher struct{}

// NewHasher creates a new hasher instance
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashAPI hashes everything a caller can observe: kind, types, signatures,
// type parameters, members and the deprecation flag. Source positions and
// documentation are excluded.
func (h *Hasher) HashAPI(e *openpkg.Export) string {
	fields := []string{string(e.Kind), schemaKey(e.Schema), strconv.FormatBool(e.Deprecated)}
	fields = append(fields, typeParamFields(e.TypeParameters)...)
	for _, sig := range e.Signatures {
		fields = append(fields, "sig", signatureKey(sig))
	}
	for _, m := range e.Members {
		fields = append(fields, "member", m.Name, string(m.Kind), schemaKey(m.Schema),
			m.Value, strconv.FormatBool(m.Embedded), strconv.FormatBool(m.Deprecated))
		for _, sig := range m.Signatures {
			fields = append(fields, signatureKey(sig))
		}
	}
	return h.hashFields(fields)
}

// HashDocs hashes the documentation of an export and its members along with
// computed coverage and drift.
func (h *Hasher) HashDocs(e *openpkg.Export) string {
	fields := []string{e.Description}
	fields = append(fields, tagFields(e.Tags)...)
	for _, ex := range e.Examples {
		fields = append(fields, "example", ex.Title, ex.Code, ex.Output, strconv.FormatBool(ex.Unordered))
	}
	for _, m := range e.Members {
		fields = append(fields, "member", m.Name, m.Description)
		fields = append(fields, tagFields(m.Tags)...)
	}
	for _, sig := range e.Signatures {
		for _, p := range sig.Parameters {
			fields = append(fields, p.Description)
		}
		if sig.Returns != nil {
			fields = append(fields, sig.Returns.Description)
		}
	}
	if e.Docs != nil {
		fields = append(fields, "docs", strconv.Itoa(e.Docs.CoverageScore))
		for _, m := range e.Docs.Missing {
			fields = append(fields, string(m))
		}
		for _, d := range e.Docs.Drift {
			fields = append(fields, d.Key())
		}
	}
	return h.hashFields(fields)
}

// hashFields computes SHA-256 of length-prefixed fields
func (h *Hasher) hashFields(fields []string) string {
	var builder strings.Builder
	for _, field := range fields {
		builder.WriteString(strconv.Itoa(len(field)))
		builder.WriteByte(':')
		builder.WriteString(field)
	}
	hash := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}

func tagFields(tags []openpkg.Tag) []string {
	var out []string
	for _, t := range tags {
		out = append(out, "tag", t.Name, t.Param, t.Type, t.Text, strconv.FormatBool(t.Optional))
	}
	return out
}

func typeParamFields(tps []openpkg.TypeParameter) []string {
	var out []string
	for _, tp := range tps {
		out = append(out, "tp", tp.Name, tp.Constraint)
	}
	return out
}

func schemaKey(s *openpkg.Schema) string {
	if s == nil {
		return ""
	}
	return s.String() + "|" + s.Format + "|" + s.GoType + "|" + s.Adapter
}

func signatureKey(sig openpkg.Signature) string {
	var b strings.Builder
	for _, p := range sig.Parameters {
		b.WriteString(p.Name)
		b.WriteByte(' ')
		b.WriteString(schemaKey(p.Schema))
		if p.Variadic {
			b.WriteString("...")
		}
		b.WriteByte(',')
	}
	if sig.Returns != nil {
		b.WriteString("->")
		b.WriteString(schemaKey(sig.Returns.Schema))
		if sig.Returns.Error {
			b.WriteString(",error")
		}
	}
	if sig.Async {
		b.WriteString(" async")
	}
	for _, tp := range sig.TypeParameters {
		b.WriteString(" [" + tp.Name + " " + tp.Constraint + "]")
	}
	return b.String()
}
