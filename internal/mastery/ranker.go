package mastery

import (
	"sort"

	"github.com/eslsoft/gapmap/internal/entity"
)

// Thresholds bucket mastery scores for gap severity labels.
type Thresholds struct {
	Critical float64
	Weak     float64
	Strong   float64
}

// DefaultThresholds returns the stock severity cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 50, Weak: 70, Strong: 80}
}

// Rank orders covered concepts by remediation priority: lowest mastery
// first, then least stable, then largest due backlog. Concepts with zero
// attempts are not yet a measured gap and are excluded; collect them via
// Uncovered for diagnostic selection instead.
func Rank(states []entity.MasteryState) []entity.MasteryState {
	ranked := make([]entity.MasteryState, 0, len(states))
	for _, st := range states {
		if st.Covered() {
			ranked = append(ranked, st)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.MasteryScore != b.MasteryScore {
			return a.MasteryScore < b.MasteryScore
		}
		if a.Stability != b.Stability {
			return a.Stability < b.Stability
		}
		if a.DueBacklog != b.DueBacklog {
			return a.DueBacklog > b.DueBacklog
		}
		return a.ConceptID < b.ConceptID
	})
	return ranked
}

// Uncovered returns the concepts with no recorded evidence, ordered by
// concept ID for determinism.
func Uncovered(states []entity.MasteryState) []entity.MasteryState {
	out := make([]entity.MasteryState, 0)
	for _, st := range states {
		if !st.Covered() {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConceptID < out[j].ConceptID })
	return out
}

// TopGaps projects the fixed-size prefix of the ranking into summaries.
func TopGaps(states []entity.MasteryState, limit int, th Thresholds) []entity.GapSummary {
	ranked := Rank(states)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	gaps := make([]entity.GapSummary, 0, len(ranked))
	for _, st := range ranked {
		gaps = append(gaps, entity.GapSummary{
			ConceptID:    st.ConceptID,
			ConceptName:  st.ConceptName,
			Domain:       st.Domain,
			MasteryScore: st.MasteryScore,
			Stability:    st.Stability,
			DueBacklog:   st.DueBacklog,
			Trend:        st.Trend,
			Severity:     entity.SeverityFor(st.MasteryScore, th.Critical, th.Weak, th.Strong),
		})
	}
	return gaps
}
