package diff

import (
	"fmt"
	"strings"

	"doccov/internal/openpkg"
)

// comparison collects the changes found on one export.
type comparison struct {
	id      string
	changes []Change
	members []MemberChange
}

func (c *comparison) add(kind ChangeKind, sev Severity, desc, oldValue, newValue string) {
	c.changes = append(c.changes, Change{
		ExportID:    c.id,
		Kind:        kind,
		Severity:    sev,
		Description: desc,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

func (c *comparison) member(kind MemberChangeKind, name, oldSig, newSig, suggestion string) {
	c.members = append(c.members, MemberChange{
		ExportID:     c.id,
		Member:       name,
		Change:       kind,
		OldSignature: oldSig,
		NewSignature: newSig,
		Suggestion:   suggestion,
	})
}

// severity returns the worst severity recorded, and false when nothing changed.
func (c *comparison) severity() (Severity, bool) {
	if len(c.changes) == 0 {
		return "", false
	}
	worst := c.changes[0].Severity
	for _, ch := range c.changes[1:] {
		if severityOrder(ch.Severity) < severityOrder(worst) {
			worst = ch.Severity
		}
	}
	return worst, true
}

func (c *comparison) firstReason(sev Severity) string {
	for _, ch := range c.changes {
		if ch.Severity == sev {
			return ch.Description
		}
	}
	return ""
}

// removedExport reports a removed export, pointing at an added export with
// the same API as a likely rename.
func removedExport(h *Hasher, b *openpkg.Export, added []*openpkg.Export) *comparison {
	c := &comparison{id: b.ID}
	c.add(ChangeRemoved, SeverityBreaking, fmt.Sprintf("%s %s was removed", b.Kind, b.Name), "", "")
	if rename := findPotentialRename(h, b, added); rename != "" {
		c.changes[0].Description = fmt.Sprintf("%s %s was renamed to %s", b.Kind, b.Name, rename)
		c.changes[0].NewValue = rename
		c.changes[0].Suggestion = "replace uses of " + b.Name + " with " + rename
	}
	return c
}

// findPotentialRename looks for an added export with an identical API
func findPotentialRename(h *Hasher, b *openpkg.Export, added []*openpkg.Export) string {
	want := h.HashAPI(b)
	for _, e := range added {
		if e.Kind == b.Kind && h.HashAPI(e) == want {
			return e.Name
		}
	}
	return ""
}

// compareExport classifies the changes between two versions of an export.
func compareExport(h *Hasher, b, hd *openpkg.Export) *comparison {
	c := &comparison{id: b.ID}
	apiChanged := h.HashAPI(b) != h.HashAPI(hd)
	docsChanged := h.HashDocs(b) != h.HashDocs(hd)

	if apiChanged {
		compareAPI(c, b, hd)
		if len(c.changes) == 0 {
			c.add(ChangeSignatureChanged, SeverityNonBreaking,
				fmt.Sprintf("declaration of %s changed compatibly", hd.Name), "", "")
		}
	}
	if docsChanged {
		c.add(ChangeDocs, SeverityDocsOnly, fmt.Sprintf("documentation of %s changed", hd.Name), "", "")
	}
	return c
}

func compareAPI(c *comparison, b, h *openpkg.Export) {
	if b.Kind != h.Kind {
		c.add(ChangeKindChanged, SeverityBreaking,
			fmt.Sprintf("%s changed from %s to %s", h.Name, b.Kind, h.Kind), string(b.Kind), string(h.Kind))
		return
	}

	compareSignatures(c, h.Name, b.Signatures, h.Signatures)
	compareTypeParams(c, h.Name, b.TypeParameters, h.TypeParameters)
	if !b.Schema.Equal(h.Schema) {
		c.add(ChangeTypeChanged, SeverityBreaking,
			fmt.Sprintf("type of %s changed", h.Name), b.Schema.String(), h.Schema.String())
	}
	compareMembers(c, b, h)
	compareDeprecation(c, h.Name, b.Deprecated, h.Deprecated)
}

func compareDeprecation(c *comparison, name string, before, after bool) {
	switch {
	case !before && after:
		c.add(ChangeDeprecated, SeverityNonBreaking, name+" is now deprecated", "", "")
	case before && !after:
		c.add(ChangeDeprecated, SeverityNonBreaking, name+" is no longer deprecated", "", "")
	}
}

func compareSignatures(c *comparison, target string, base, head []openpkg.Signature) {
	if len(base) != len(head) {
		c.add(ChangeSignatureChanged, SeverityBreaking,
			fmt.Sprintf("%s changed from %d to %d call signatures", target, len(base), len(head)), "", "")
	}
	for i := 0; i < len(base) && i < len(head); i++ {
		compareSignature(c, target, base[i], head[i])
	}
}

func compareSignature(c *comparison, target string, b, h openpkg.Signature) {
	for i, bp := range b.Parameters {
		if i >= len(h.Parameters) {
			c.add(ChangeSignatureChanged, SeverityBreaking,
				fmt.Sprintf("parameter %s of %s was removed", bp.Name, target), RenderSignature(b), RenderSignature(h))
			continue
		}
		hp := h.Parameters[i]
		switch {
		case bp.Variadic && !hp.Variadic:
			c.add(ChangeSignatureChanged, SeverityBreaking,
				fmt.Sprintf("parameter %s of %s is now required", hp.Name, target), RenderSignature(b), RenderSignature(h))
		case !bp.Variadic && hp.Variadic:
			c.add(ChangeSignatureChanged, SeverityNonBreaking,
				fmt.Sprintf("parameter %s of %s is now variadic", hp.Name, target), RenderSignature(b), RenderSignature(h))
		}
		switch {
		case bp.Schema.Equal(hp.Schema):
		case hp.Schema.Accepts(bp.Schema):
			c.add(ChangeSignatureChanged, SeverityNonBreaking,
				fmt.Sprintf("parameter %s of %s widened from %s to %s", hp.Name, target, bp.Schema, hp.Schema),
				bp.Schema.String(), hp.Schema.String())
		default:
			c.add(ChangeSignatureChanged, SeverityBreaking,
				fmt.Sprintf("parameter %s of %s changed from %s to %s", hp.Name, target, bp.Schema, hp.Schema),
				bp.Schema.String(), hp.Schema.String())
		}
		if bp.Name != hp.Name {
			c.add(ChangeSignatureChanged, SeverityNonBreaking,
				fmt.Sprintf("parameter %s of %s was renamed to %s", bp.Name, target, hp.Name), bp.Name, hp.Name)
		}
	}
	if len(h.Parameters) > len(b.Parameters) {
		for _, hp := range h.Parameters[len(b.Parameters):] {
			if hp.Variadic || !hp.Required {
				c.add(ChangeSignatureChanged, SeverityNonBreaking,
					fmt.Sprintf("optional parameter %s was added to %s", hp.Name, target), RenderSignature(b), RenderSignature(h))
				continue
			}
			c.add(ChangeSignatureChanged, SeverityBreaking,
				fmt.Sprintf("required parameter %s was added to %s", hp.Name, target), RenderSignature(b), RenderSignature(h))
		}
	}

	compareReturns(c, target, b.Returns, h.Returns)
	compareTypeParams(c, target, b.TypeParameters, h.TypeParameters)
}

func compareReturns(c *comparison, target string, b, h *openpkg.Returns) {
	bs, hs := returnSchema(b), returnSchema(h)
	bn, hn := resultCount(b), resultCount(h)
	oldValue, newValue := renderResults(b), renderResults(h)
	switch {
	case bn != hn:
		c.add(ChangeSignatureChanged, SeverityBreaking,
			fmt.Sprintf("%s now returns %d values instead of %d", target, hn, bn), oldValue, newValue)
	case hasError(b) != hasError(h):
		c.add(ChangeSignatureChanged, SeverityBreaking,
			fmt.Sprintf("results of %s changed from %s to %s", target, oldValue, newValue), oldValue, newValue)
	case bs.Equal(hs):
	case bs.Accepts(hs):
		c.add(ChangeSignatureChanged, SeverityNonBreaking,
			fmt.Sprintf("return type of %s narrowed from %s to %s", target, bs, hs), oldValue, newValue)
	default:
		c.add(ChangeSignatureChanged, SeverityBreaking,
			fmt.Sprintf("return type of %s changed from %s to %s", target, bs, hs), oldValue, newValue)
	}
}

func compareTypeParams(c *comparison, target string, base, head []openpkg.TypeParameter) {
	headByName := map[string]openpkg.TypeParameter{}
	for _, tp := range head {
		headByName[tp.Name] = tp
	}
	baseByName := map[string]bool{}
	for _, bt := range base {
		baseByName[bt.Name] = true
		ht, ok := headByName[bt.Name]
		switch {
		case !ok:
			c.add(ChangeSignatureChanged, SeverityBreaking,
				fmt.Sprintf("type parameter %s of %s was removed", bt.Name, target), bt.Constraint, "")
		case bt.Constraint == ht.Constraint:
		case isAnyConstraint(ht.Constraint):
			c.add(ChangeSignatureChanged, SeverityNonBreaking,
				fmt.Sprintf("constraint of %s in %s widened to %s", bt.Name, target, ht.Constraint), bt.Constraint, ht.Constraint)
		default:
			c.add(ChangeSignatureChanged, SeverityBreaking,
				fmt.Sprintf("constraint of %s in %s changed from %s to %s", bt.Name, target, bt.Constraint, ht.Constraint),
				bt.Constraint, ht.Constraint)
		}
	}
	for _, ht := range head {
		if !baseByName[ht.Name] {
			c.add(ChangeSignatureChanged, SeverityBreaking,
				fmt.Sprintf("type parameter %s was added to %s", ht.Name, target), "", ht.Constraint)
		}
	}
}

func compareMembers(c *comparison, b, h *openpkg.Export) {
	for i := range b.Members {
		bm := &b.Members[i]
		hm, ok := h.Member(bm.Name)
		if !ok {
			suggestion := renamedMember(bm, h, b)
			c.add(ChangeMemberChanged, SeverityBreaking,
				fmt.Sprintf("%s %s.%s was removed", bm.Kind, h.Name, bm.Name), memberSignature(bm), "")
			c.changes[len(c.changes)-1].Suggestion = suggestion
			c.member(MemberRemoved, bm.Name, memberSignature(bm), "", suggestion)
			continue
		}
		compareMember(c, h, bm, hm)
	}

	for i := range h.Members {
		hm := &h.Members[i]
		if _, ok := b.Member(hm.Name); ok {
			continue
		}
		if h.Kind == openpkg.KindInterface && hm.Kind == openpkg.MemberMethod {
			c.add(ChangeMemberChanged, SeverityBreaking,
				fmt.Sprintf("method %s was added to interface %s; existing implementations no longer satisfy it", hm.Name, h.Name),
				"", memberSignature(hm))
		} else {
			c.add(ChangeMemberChanged, SeverityNonBreaking,
				fmt.Sprintf("%s %s.%s was added", hm.Kind, h.Name, hm.Name), "", memberSignature(hm))
		}
		c.member(MemberAdded, hm.Name, "", memberSignature(hm), "")
	}
}

func compareMember(c *comparison, h *openpkg.Export, bm, hm *openpkg.Member) {
	before := len(c.changes)
	target := h.Name + "." + hm.Name

	switch {
	case bm.Kind != hm.Kind:
		c.add(ChangeMemberChanged, SeverityBreaking,
			fmt.Sprintf("%s changed from %s to %s", target, bm.Kind, hm.Kind), string(bm.Kind), string(hm.Kind))
	case bm.Kind == openpkg.MemberMethod:
		compareSignatures(c, target, bm.Signatures, hm.Signatures)
	default:
		if !bm.Schema.Equal(hm.Schema) {
			c.add(ChangeMemberChanged, SeverityBreaking,
				fmt.Sprintf("type of %s changed from %s to %s", target, bm.Schema, hm.Schema),
				bm.Schema.String(), hm.Schema.String())
		}
		if bm.Value != hm.Value {
			c.add(ChangeMemberChanged, SeverityNonBreaking,
				fmt.Sprintf("value of %s changed from %s to %s", target, bm.Value, hm.Value), bm.Value, hm.Value)
		}
	}
	if bm.Embedded != hm.Embedded {
		c.add(ChangeMemberChanged, SeverityBreaking,
			fmt.Sprintf("embedding of %s changed", target), "", "")
	}

	// Any change to an interface method breaks either callers or implementers.
	if h.Kind == openpkg.KindInterface {
		for i := before; i < len(c.changes); i++ {
			c.changes[i].Severity = SeverityBreaking
		}
	}
	compareDeprecation(c, target, bm.Deprecated, hm.Deprecated)

	if len(c.changes) > before {
		c.member(MemberChanged, hm.Name, memberSignature(bm), memberSignature(hm), c.changes[before].Suggestion)
	}
}

// renamedMember suggests a member of head with the same shape as the
// removed one that base did not have.
func renamedMember(removed *openpkg.Member, head, base *openpkg.Export) string {
	want := memberSignature(removed)
	for i := range head.Members {
		m := &head.Members[i]
		if _, existed := base.Member(m.Name); existed || m.Kind != removed.Kind {
			continue
		}
		if memberSignature(m) == want {
			return "use " + head.Name + "." + m.Name
		}
	}
	return ""
}

// memberSignature renders a member for display.
func memberSignature(m *openpkg.Member) string {
	switch {
	case m.Kind == openpkg.MemberMethod && len(m.Signatures) > 0:
		return RenderSignature(m.Signatures[0])
	case m.Value != "":
		return m.Schema.String() + " = " + m.Value
	default:
		return m.Schema.String()
	}
}

// RenderSignature renders a signature as "(a integer, b integer) (integer, error)".
func RenderSignature(sig openpkg.Signature) string {
	params := make([]string, len(sig.Parameters))
	for i, p := range sig.Parameters {
		t := p.Schema.String()
		if p.Variadic {
			t = "..." + strings.TrimPrefix(t, "[]")
		}
		params[i] = p.Name + " " + t
	}
	out := "(" + strings.Join(params, ", ") + ")"
	if r := renderResults(sig.Returns); r != "" {
		out += " " + r
	}
	return out
}

func renderResults(r *openpkg.Returns) string {
	if r == nil {
		return ""
	}
	var parts []string
	if r.Schema != nil {
		if len(r.Schema.PrefixItems) > 0 {
			for _, item := range r.Schema.PrefixItems {
				parts = append(parts, item.String())
			}
		} else {
			parts = append(parts, r.Schema.String())
		}
	}
	if r.Error {
		parts = append(parts, "error")
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func returnSchema(r *openpkg.Returns) *openpkg.Schema {
	if r == nil {
		return nil
	}
	return r.Schema
}

func hasError(r *openpkg.Returns) bool {
	return r != nil && r.Error
}

func resultCount(r *openpkg.Returns) int {
	if r == nil {
		return 0
	}
	n := 0
	if r.Schema != nil {
		n = 1
		if r.Schema.Type == openpkg.TypeArray && len(r.Schema.PrefixItems) > 0 {
			n = len(r.Schema.PrefixItems)
		}
	}
	if r.Error {
		n++
	}
	return n
}

func isAnyConstraint(c string) bool {
	switch strings.Join(strings.Fields(c), "") {
	case "any", "interface{}":
		return true
	}
	return false
}
