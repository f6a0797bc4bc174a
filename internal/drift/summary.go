package drift

import (
	"math"

	"doccov/internal/openpkg"
)

// Summary aggregates coverage and drift over an enriched spec.
type Summary struct {
	CoverageScore   int                            `json:"coverageScore"`
	TotalExports    int                            `json:"totalExports"`
	FullyDocumented int                            `json:"fullyDocumented"`
	MissingByRule   map[openpkg.MissingDocRule]int `json:"missingByRule"`
	DriftCount      int                            `json:"driftCount"`
	DriftByCategory map[openpkg.DriftCategory]int  `json:"driftByCategory"`
	DriftByType     map[openpkg.DriftType]int      `json:"driftByType"`
}

// Summarize computes the summary. The package score is the rounded mean of
// export scores; a package without exports scores 100.
func Summarize(spec *openpkg.Spec) Summary {
	s := Summary{
		TotalExports:    len(spec.Exports),
		MissingByRule:   map[openpkg.MissingDocRule]int{},
		DriftByCategory: map[openpkg.DriftCategory]int{},
		DriftByType:     map[openpkg.DriftType]int{},
	}
	for _, r := range openpkg.AllRules {
		s.MissingByRule[r] = 0
	}
	for _, c := range []openpkg.DriftCategory{openpkg.CategoryStructural, openpkg.CategorySemantic, openpkg.CategoryExample} {
		s.DriftByCategory[c] = 0
	}

	total := 0
	for i := range spec.Exports {
		e := &spec.Exports[i]
		score := e.CoverageScore()
		total += score
		if e.Docs == nil {
			continue
		}
		if len(e.Docs.Missing) == 0 {
			s.FullyDocumented++
		}
		for _, m := range e.Docs.Missing {
			s.MissingByRule[m]++
		}
		for _, d := range e.Docs.Drift {
			s.DriftCount++
			s.DriftByCategory[openpkg.CategoryOf(d.Type)]++
			s.DriftByType[d.Type]++
		}
	}

	s.CoverageScore = 100
	if s.TotalExports > 0 {
		s.CoverageScore = int(math.Round(float64(total) / float64(s.TotalExports)))
	}
	return s
}
