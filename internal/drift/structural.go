package drift

import (
	"fmt"
	"strings"

	"doccov/internal/openpkg"
)

// checkSignature compares @param, @returns, @typeParam and @async tags with
// one signature.
func checkSignature(target string, tags []openpkg.Tag, sig openpkg.Signature) []openpkg.Drift {
	var out []openpkg.Drift

	params := map[string]openpkg.Parameter{}
	documented := map[string]bool{}
	for _, p := range sig.Parameters {
		params[p.Name] = p
	}
	var paramTags []openpkg.Tag
	for _, t := range tags {
		if t.Name == "param" && t.Param != "" {
			paramTags = append(paramTags, t)
			documented[paramName(t.Param)] = true
		}
	}

	for i, t := range paramTags {
		name := paramName(t.Param)
		p, ok := params[name]
		if !ok {
			out = append(out, openpkg.NewDrift(openpkg.DriftParamMismatch, name,
				fmt.Sprintf("@param %s does not name a parameter of %s", name, target),
				positionalSuggestion(i, sig.Parameters, documented), true))
			continue
		}
		if t.Type != "" && !typeMatches(t.Type, p.Schema) {
			out = append(out, openpkg.NewDrift(openpkg.DriftParamTypeMismatch, name,
				fmt.Sprintf("@param %s is documented as %s but declared as %s", name, t.Type, p.Schema),
				"document the type as "+p.Schema.String(), true))
		}
		switch {
		case t.Optional && !p.Variadic:
			out = append(out, openpkg.NewDrift(openpkg.DriftOptionalityMismatch, name,
				fmt.Sprintf("@param %s is documented as optional but is required", name),
				"remove the brackets around "+name, true))
		case !t.Optional && p.Variadic:
			out = append(out, openpkg.NewDrift(openpkg.DriftOptionalityMismatch, name,
				fmt.Sprintf("@param %s is documented as required but is variadic", name),
				"write the parameter as ["+name+"]", true))
		}
	}

	for _, t := range tags {
		switch t.Name {
		case "returns":
			if d, ok := checkReturns(target, t, sig.Returns); ok {
				out = append(out, d)
			}
		case "async":
			if !sig.Async {
				out = append(out, openpkg.NewDrift(openpkg.DriftAsyncMismatch, target,
					target+" is documented as asynchronous but returns no channel",
					"remove the @async tag", true))
			}
		}
	}

	out = append(out, checkTypeParams(target, tags, sig.TypeParameters)...)
	return out
}

func checkReturns(target string, tag openpkg.Tag, ret *openpkg.Returns) (openpkg.Drift, bool) {
	if tag.Type == "" {
		return openpkg.Drift{}, false
	}
	documented := stripErrorResult(tag.Type, ret != nil && ret.Error)
	switch {
	case ret == nil:
		if isVoid(documented) {
			return openpkg.Drift{}, false
		}
		return openpkg.NewDrift(openpkg.DriftReturnTypeMismatch, target,
			fmt.Sprintf("@returns documents %s but %s returns nothing", tag.Type, target),
			"remove the @returns tag", true), true
	case ret.Schema == nil:
		if isVoid(documented) || normalizeType(documented) == "error" {
			return openpkg.Drift{}, false
		}
		return openpkg.NewDrift(openpkg.DriftReturnTypeMismatch, target,
			fmt.Sprintf("@returns documents %s but %s only returns an error", tag.Type, target),
			"document the return type as error", true), true
	case !typeMatches(documented, ret.Schema):
		return openpkg.NewDrift(openpkg.DriftReturnTypeMismatch, target,
			fmt.Sprintf("@returns documents %s but %s returns %s", tag.Type, target, ret.Schema),
			"document the return type as "+ret.Schema.String(), true), true
	}
	return openpkg.Drift{}, false
}

func checkTypeParams(target string, tags []openpkg.Tag, tps []openpkg.TypeParameter) []openpkg.Drift {
	var out []openpkg.Drift
	byName := map[string]openpkg.TypeParameter{}
	for _, tp := range tps {
		byName[tp.Name] = tp
	}
	for _, t := range tags {
		if t.Name != "typeParam" || t.Param == "" {
			continue
		}
		tp, ok := byName[t.Param]
		if !ok {
			out = append(out, openpkg.NewDrift(openpkg.DriftGenericConstraintMismatch, t.Param,
				fmt.Sprintf("@typeParam %s does not name a type parameter of %s", t.Param, target),
				"", true))
			continue
		}
		if t.Type != "" && normalizeType(t.Type) != normalizeType(tp.Constraint) {
			out = append(out, openpkg.NewDrift(openpkg.DriftGenericConstraintMismatch, t.Param,
				fmt.Sprintf("@typeParam %s is documented with constraint %s but declared with %s", t.Param, t.Type, tp.Constraint),
				"document the constraint as "+tp.Constraint, true))
		}
	}
	return out
}

// checkProperties compares @property tags with struct fields.
func checkProperties(exp *openpkg.Export) []openpkg.Drift {
	var out []openpkg.Drift
	for _, t := range exp.Tags {
		if t.Name != "property" || t.Param == "" {
			continue
		}
		m, ok := exp.Member(t.Param)
		if !ok || m.Kind != openpkg.MemberField {
			out = append(out, openpkg.NewDrift(openpkg.DriftPropertyTypeDrift, t.Param,
				fmt.Sprintf("@property %s does not name a field of %s", t.Param, exp.Name),
				"", true))
			continue
		}
		if t.Type != "" && !typeMatches(t.Type, m.Schema) {
			out = append(out, openpkg.NewDrift(openpkg.DriftPropertyTypeDrift, t.Param,
				fmt.Sprintf("@property %s is documented as %s but declared as %s", t.Param, t.Type, m.Schema),
				"document the type as "+m.Schema.String(), true))
		}
	}
	return out
}

// paramName reduces "opts.Timeout" and "...values" to the parameter name.
func paramName(name string) string {
	name = strings.TrimPrefix(name, "...")
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

// positionalSuggestion proposes the undocumented parameter at the same
// position as the stray tag.
func positionalSuggestion(i int, params []openpkg.Parameter, documented map[string]bool) string {
	if i < len(params) && !documented[params[i].Name] {
		return "did you mean " + params[i].Name + "?"
	}
	for _, p := range params {
		if !documented[p.Name] {
			return "did you mean " + p.Name + "?"
		}
	}
	return ""
}
