package drift

import (
	"math"

	"doccov/internal/openpkg"
)

// Coverage scores one export. Each rule that applies to the export's kind
// is checked independently; the score is the rounded share of satisfied
// rules, and 100 when no rule applies.
func Coverage(exp *openpkg.Export, opts Options) (int, []openpkg.MissingDocRule) {
	missing := []openpkg.MissingDocRule{}
	applicable, satisfied := 0, 0
	check := func(rule openpkg.MissingDocRule, applies, ok bool) {
		if !applies {
			return
		}
		applicable++
		if ok {
			satisfied++
			return
		}
		missing = append(missing, rule)
	}

	var sig *openpkg.Signature
	if exp.IsCallable() {
		sig = &exp.Signatures[0]
	}

	for _, rule := range openpkg.AllRules {
		switch rule {
		case openpkg.RuleDescription:
			check(rule, true, exp.Description != "")
		case openpkg.RuleParams:
			check(rule, sig != nil && len(sig.Parameters) > 0, sig != nil && paramsDocumented(exp, sig))
		case openpkg.RuleReturns:
			applies := sig != nil && sig.Returns != nil && sig.Returns.Schema != nil
			check(rule, applies, exp.HasTag("returns"))
		case openpkg.RuleExamples:
			applies := opts.RequireExamples && (exp.Kind == openpkg.KindFunction || exp.Kind == openpkg.KindClass)
			check(rule, applies, len(exp.Examples) > 0)
		case openpkg.RuleThrows:
			check(rule, sig != nil && sig.Returns != nil && sig.Returns.Error, exp.HasTag("throws"))
		}
	}

	if applicable == 0 {
		return 100, missing
	}
	return int(math.Round(100 * float64(satisfied) / float64(applicable))), missing
}

// paramsDocumented reports whether every parameter has an @param tag.
func paramsDocumented(exp *openpkg.Export, sig *openpkg.Signature) bool {
	documented := map[string]bool{}
	for _, t := range exp.TagsNamed("param") {
		documented[paramName(t.Param)] = true
	}
	for _, p := range sig.Parameters {
		if !documented[p.Name] {
			return false
		}
	}
	return true
}
