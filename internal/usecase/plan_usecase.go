package usecase

import (
	"context"
	"time"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/planner"
	"github.com/eslsoft/gapmap/internal/repository"
)

// PlanUsecase produces the bounded daily study plan.
type PlanUsecase interface {
	GetDailyPlan(ctx context.Context, date time.Time, budget entity.PlanBudget) (*entity.DailyPlan, error)
}

// NewPlanUsecase wires the repositories with the plan builder.
func NewPlanUsecase(
	concepts repository.ConceptRepository,
	items repository.ItemRepository,
	memories repository.MemoryStateRepository,
	masteries repository.MasteryStateRepository,
	builder *planner.Builder,
	defaults entity.PlanBudget,
) PlanUsecase {
	return &planUsecase{
		concepts:  concepts,
		items:     items,
		memories:  memories,
		masteries: masteries,
		builder:   builder,
		defaults:  defaults,
	}
}

type planUsecase struct {
	concepts  repository.ConceptRepository
	items     repository.ItemRepository
	memories  repository.MemoryStateRepository
	masteries repository.MasteryStateRepository
	builder   *planner.Builder
	defaults  entity.PlanBudget
}

// GetDailyPlan snapshots state before computing so the plan never
// observes a half-applied submission, then runs the pure builder.
func (u *planUsecase) GetDailyPlan(ctx context.Context, date time.Time, budget entity.PlanBudget) (*entity.DailyPlan, error) {
	if budget.MaxItems <= 0 {
		budget.MaxItems = u.defaults.MaxItems
	}
	if budget.MaxMinutes <= 0 {
		budget.MaxMinutes = u.defaults.MaxMinutes
	}
	if budget.ReviewShare <= 0 {
		budget.ReviewShare = u.defaults.ReviewShare
	}

	snap, err := u.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	plan := u.builder.BuildPlan(date, snap, budget)
	return &plan, nil
}

func (u *planUsecase) snapshot(ctx context.Context) (planner.Snapshot, error) {
	var snap planner.Snapshot
	var err error

	if snap.Concepts, err = u.concepts.ListAll(ctx); err != nil {
		return snap, err
	}
	if snap.Items, err = u.items.ListAll(ctx); err != nil {
		return snap, err
	}
	if snap.MemoryStates, err = u.memories.ListAll(ctx); err != nil {
		return snap, err
	}

	stored, err := u.masteries.ListAll(ctx)
	if err != nil {
		return snap, err
	}
	byConcept := make(map[string]entity.MasteryState, len(stored))
	for _, st := range stored {
		byConcept[st.ConceptID] = st
	}
	snap.MasteryStates = make([]entity.MasteryState, 0, len(snap.Concepts))
	for _, c := range snap.Concepts {
		if st, ok := byConcept[c.ID]; ok {
			snap.MasteryStates = append(snap.MasteryStates, st)
			continue
		}
		snap.MasteryStates = append(snap.MasteryStates, entity.MasteryState{
			ConceptID: c.ID, Trend: entity.TrendStable,
		})
	}
	return snap, nil
}
