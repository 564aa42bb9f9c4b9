// Package planner assembles the bounded daily study plan. Given an
// immutable snapshot of concepts, items, memory states and mastery
// states, BuildPlan is deterministic: identical inputs produce an
// identical ordered plan.
package planner

import (
	"math"
	"sort"
	"time"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/fsrs"
)

// Snapshot is the read-only state a plan is computed over. Callers must
// capture it before computing so a half-applied submission is never
// observed.
type Snapshot struct {
	Concepts      []entity.Concept
	Items         []entity.Item
	MemoryStates  []entity.MemoryState
	MasteryStates []entity.MasteryState
}

// Config holds plan-shaping tunables.
type Config struct {
	// CoverageMinAttempts is the attempt count below which a concept is
	// still diagnostic-eligible.
	CoverageMinAttempts int32
}

// DefaultConfig returns the stock plan tunables.
func DefaultConfig() Config {
	return Config{CoverageMinAttempts: 2}
}

// Builder produces daily plans.
type Builder struct {
	sched *fsrs.Scheduler
	cfg   Config
}

// NewBuilder constructs a plan builder over the given scheduler.
func NewBuilder(sched *fsrs.Scheduler, cfg Config) *Builder {
	if cfg.CoverageMinAttempts <= 0 {
		cfg.CoverageMinAttempts = 2
	}
	return &Builder{sched: sched, cfg: cfg}
}

type reviewCandidate struct {
	state          entity.MemoryState
	retrievability float64
	itemType       entity.ItemType
}

type diagnosticCandidate struct {
	itemID    string
	conceptID string
	domain    string
	reason    entity.PlanReason
	itemType  entity.ItemType
}

// BuildPlan fills the plan greedily: due reviews first (most at risk of
// forgetting first) up to the review sub-budget, then diagnostics for
// under-covered concepts balanced across domains, until the item budget
// or the time budget is exhausted, whichever triggers first.
func (b *Builder) BuildPlan(date time.Time, snap Snapshot, budget entity.PlanBudget) entity.DailyPlan {
	if budget.MaxItems <= 0 {
		budget.MaxItems = 15
	}
	if budget.MaxMinutes <= 0 {
		budget.MaxMinutes = 30
	}
	if budget.ReviewShare <= 0 || budget.ReviewShare > 1 {
		budget.ReviewShare = 0.7
	}

	itemsByID := make(map[string]entity.Item, len(snap.Items))
	for _, it := range snap.Items {
		itemsByID[it.ID] = it
	}

	reviews := b.collectReviews(date, snap, itemsByID)
	diagnostics := b.collectDiagnostics(snap)

	plan := entity.DailyPlan{Date: date}
	var minutes float64
	reviewBudget := int32(math.Ceil(float64(budget.MaxItems) * budget.ReviewShare))

	priority := int32(1)
	for _, rc := range reviews {
		if plan.TotalItems >= reviewBudget || plan.TotalItems >= budget.MaxItems {
			break
		}
		cost := rc.itemType.EstimatedMinutes()
		if minutes+cost > float64(budget.MaxMinutes) && plan.TotalItems > 0 {
			break
		}
		plan.Reviews = append(plan.Reviews, entity.PlannedItem{
			ItemID:    rc.state.ItemID,
			ConceptID: rc.state.ConceptID,
			Reason:    entity.ReasonDueReview,
			Priority:  priority,
		})
		plan.TotalItems++
		minutes += cost
		priority++
	}

	for _, dc := range diagnostics {
		if plan.TotalItems >= budget.MaxItems {
			break
		}
		cost := dc.itemType.EstimatedMinutes()
		if minutes+cost > float64(budget.MaxMinutes) && plan.TotalItems > 0 {
			break
		}
		plan.Diagnostics = append(plan.Diagnostics, entity.PlannedItem{
			ItemID:    dc.itemID,
			ConceptID: dc.conceptID,
			Reason:    dc.reason,
			Priority:  priority,
		})
		plan.TotalItems++
		minutes += cost
		priority++
	}

	plan.EstimatedTimeMinutes = int32(math.Round(minutes))
	plan.CoveragePercent = coveragePercent(snap.Concepts, snap.MasteryStates)
	return plan
}

// collectReviews gathers every due (concept,item) pair ordered by
// ascending retrievability at the plan date.
func (b *Builder) collectReviews(date time.Time, snap Snapshot, itemsByID map[string]entity.Item) []reviewCandidate {
	candidates := make([]reviewCandidate, 0)
	for _, st := range snap.MemoryStates {
		if !b.sched.IsDue(&st, date) {
			continue
		}
		item, ok := itemsByID[st.ItemID]
		if !ok {
			// Item deleted since the state was written; history stays,
			// but nothing concrete remains to review.
			continue
		}
		candidates = append(candidates, reviewCandidate{
			state:          st,
			retrievability: b.sched.RetrievabilityAt(&st, date),
			itemType:       item.Type,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, c := candidates[i], candidates[j]
		if a.retrievability != c.retrievability {
			return a.retrievability < c.retrievability
		}
		if a.state.ItemID != c.state.ItemID {
			return a.state.ItemID < c.state.ItemID
		}
		return a.state.ConceptID < c.state.ConceptID
	})
	return candidates
}

// collectDiagnostics selects probe items for uncovered and low-coverage
// concepts, round-robin across domains so one domain cannot monopolize
// the plan.
func (b *Builder) collectDiagnostics(snap Snapshot) []diagnosticCandidate {
	eligible := make([]entity.MasteryState, 0)
	for _, st := range snap.MasteryStates {
		if st.Attempts < b.cfg.CoverageMinAttempts {
			eligible = append(eligible, st)
		}
	}
	// Uncovered concepts first, then thin ones by ascending attempt
	// count; concept ID breaks every tie.
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Attempts != eligible[j].Attempts {
			return eligible[i].Attempts < eligible[j].Attempts
		}
		return eligible[i].ConceptID < eligible[j].ConceptID
	})

	domainFor := make(map[string]string, len(snap.Concepts))
	for _, c := range snap.Concepts {
		domainFor[c.ID] = c.Domain
	}

	// One probe item per eligible concept: the lowest-ID item targeting it.
	perConcept := make([]diagnosticCandidate, 0, len(eligible))
	for _, st := range eligible {
		var probe *entity.Item
		for i := range snap.Items {
			it := &snap.Items[i]
			if !it.TargetsConcept(st.ConceptID) {
				continue
			}
			if probe == nil || it.ID < probe.ID {
				probe = it
			}
		}
		if probe == nil {
			continue
		}
		reason := entity.ReasonDiagnosticGap
		if st.Attempts == 0 {
			reason = entity.ReasonDiagnosticUncovered
		}
		perConcept = append(perConcept, diagnosticCandidate{
			itemID:    probe.ID,
			conceptID: st.ConceptID,
			domain:    domainFor[st.ConceptID],
			reason:    reason,
			itemType:  probe.Type,
		})
	}

	return roundRobinByDomain(perConcept)
}

// roundRobinByDomain interleaves candidates across domains, preserving
// the per-domain priority order.
func roundRobinByDomain(candidates []diagnosticCandidate) []diagnosticCandidate {
	byDomain := make(map[string][]diagnosticCandidate)
	domains := make([]string, 0)
	for _, c := range candidates {
		if _, seen := byDomain[c.domain]; !seen {
			domains = append(domains, c.domain)
		}
		byDomain[c.domain] = append(byDomain[c.domain], c)
	}
	sort.Strings(domains)

	out := make([]diagnosticCandidate, 0, len(candidates))
	for len(out) < len(candidates) {
		for _, d := range domains {
			if queue := byDomain[d]; len(queue) > 0 {
				out = append(out, queue[0])
				byDomain[d] = queue[1:]
			}
		}
	}
	return out
}

// coveragePercent is the share of concepts with at least one attempt.
func coveragePercent(concepts []entity.Concept, states []entity.MasteryState) int32 {
	if len(concepts) == 0 {
		return 0
	}
	covered := make(map[string]bool, len(states))
	for _, st := range states {
		if st.Covered() {
			covered[st.ConceptID] = true
		}
	}
	n := 0
	for _, c := range concepts {
		if covered[c.ID] {
			n++
		}
	}
	return int32(math.Round(float64(n) / float64(len(concepts)) * 100))
}
