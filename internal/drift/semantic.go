package drift

import (
	"fmt"
	"regexp"
	"strings"

	"doccov/internal/docs"
	"doccov/internal/doctags"
	"doccov/internal/openpkg"
)

var deprecatedProse = regexp.MustCompile(`(?i)\bdeprecated\b`)

// checkSemantics covers deprecation, visibility and cross-references.
func checkSemantics(target, description string, tags []openpkg.Tag, deprecated bool, known *Known) []openpkg.Drift {
	var out []openpkg.Drift

	if !deprecated && (hasTag(tags, "deprecated") || deprecatedProse.MatchString(description)) {
		out = append(out, openpkg.NewDrift(openpkg.DriftDeprecatedMismatch, target,
			target+" is described as deprecated but has no \"Deprecated:\" paragraph",
			"add a paragraph starting with \"Deprecated:\" so tools recognise it", true))
	}

	if hasTag(tags, "internal") {
		out = append(out, openpkg.NewDrift(openpkg.DriftVisibilityMismatch, target,
			target+" is marked @internal but is exported",
			"unexport "+target+" or move it to an internal package", false))
	}

	for _, link := range linksOf(description, tags) {
		if link.ImportPath != "" {
			continue
		}
		res := known.resolve(link.Target)
		switch res.Status {
		case docs.ResolutionExact, docs.ResolutionSuffix, docs.ResolutionIneligible:
			continue
		case docs.ResolutionAmbiguous:
			out = append(out, openpkg.NewDrift(openpkg.DriftBrokenLink, link.Target,
				fmt.Sprintf("link %s in %s is ambiguous", link.Target, target),
				"qualify the link as one of "+strings.Join(res.Candidates, ", "), false))
		default:
			suggestion := ""
			if s := known.resolver.Suggest(link.Target, 3); len(s) > 0 {
				suggestion = "did you mean " + strings.Join(s, ", ") + "?"
			}
			out = append(out, openpkg.NewDrift(openpkg.DriftBrokenLink, link.Target,
				fmt.Sprintf("link %s in %s does not resolve to an export", link.Target, target),
				suggestion, false))
		}
	}
	return out
}

// linksOf gathers doc links and {@link} targets from the description, @see
// targets, and {@link} targets inside tag text.
func linksOf(description string, tags []openpkg.Tag) []doctags.Link {
	links := doctags.Parse(description).Links
	for _, t := range tags {
		if t.Name == "see" {
			target := firstWord(t.Text)
			if target != "" && !strings.Contains(target, "://") {
				links = append(links, doctags.Link{Target: strings.Trim(target, "[]"), Source: doctags.LinkSee})
			}
			continue
		}
		for _, l := range doctags.Parse(t.Text).Links {
			if l.Source == doctags.LinkInline {
				links = append(links, l)
			}
		}
	}
	return links
}

func hasTag(tags []openpkg.Tag, name string) bool {
	for _, t := range tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ".,;:")
}
