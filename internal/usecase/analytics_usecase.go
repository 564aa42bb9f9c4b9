package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/mastery"
	"github.com/eslsoft/gapmap/internal/repository"
)

// AnalyticsUsecase serves derived mastery views: the per-concept mastery
// list, the ranked gap summaries and the session performance timeline.
type AnalyticsUsecase interface {
	GetConceptMastery(ctx context.Context) ([]entity.MasteryState, error)
	GetTopGaps(ctx context.Context, limit int) ([]entity.GapSummary, error)
	GetPerformanceTrends(ctx context.Context) ([]entity.PerformanceTrend, error)
}

// NewAnalyticsUsecase wires the repositories with the gap thresholds.
func NewAnalyticsUsecase(
	concepts repository.ConceptRepository,
	masteries repository.MasteryStateRepository,
	sessions repository.SessionRepository,
	thresholds mastery.Thresholds,
) AnalyticsUsecase {
	return &analyticsUsecase{
		concepts:   concepts,
		masteries:  masteries,
		sessions:   sessions,
		thresholds: thresholds,
	}
}

type analyticsUsecase struct {
	concepts   repository.ConceptRepository
	masteries  repository.MasteryStateRepository
	sessions   repository.SessionRepository
	thresholds mastery.Thresholds
}

// GetConceptMastery returns one MasteryState per concept. Concepts with
// no recorded attempts appear with a zero state so the caller can tell
// "uncovered" apart from "absent".
func (u *analyticsUsecase) GetConceptMastery(ctx context.Context) ([]entity.MasteryState, error) {
	states, err := u.mergedStates(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ConceptID < states[j].ConceptID })
	return states, nil
}

// GetTopGaps returns the worst measured gaps; uncovered concepts are not
// gaps and never appear here.
func (u *analyticsUsecase) GetTopGaps(ctx context.Context, limit int) ([]entity.GapSummary, error) {
	if limit <= 0 {
		limit = 5
	}
	states, err := u.mergedStates(ctx)
	if err != nil {
		return nil, err
	}
	return mastery.TopGaps(states, limit, u.thresholds), nil
}

func (u *analyticsUsecase) GetPerformanceTrends(ctx context.Context) ([]entity.PerformanceTrend, error) {
	sessions, err := u.sessions.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	trends := make([]entity.PerformanceTrend, 0, len(sessions))
	for _, s := range sessions {
		if !s.Completed() {
			continue
		}
		trends = append(trends, entity.PerformanceTrend{
			Date:           s.StartedAt,
			Accuracy:       s.Accuracy,
			ItemsCompleted: s.CompletedItems,
			AvgConfidence:  s.AvgConfidence,
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Date.Before(trends[j].Date) })
	return trends, nil
}

// mergedStates joins stored mastery states with the concept catalog,
// synthesizing zero states for concepts that have never been attempted.
func (u *analyticsUsecase) mergedStates(ctx context.Context) ([]entity.MasteryState, error) {
	concepts, err := u.concepts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := u.masteries.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byConcept := make(map[string]entity.MasteryState, len(stored))
	for _, st := range stored {
		byConcept[st.ConceptID] = st
	}

	states := make([]entity.MasteryState, 0, len(concepts))
	for _, c := range concepts {
		if st, ok := byConcept[c.ID]; ok {
			st.ConceptName = c.Name
			st.Domain = c.Domain
			states = append(states, st)
			continue
		}
		states = append(states, entity.MasteryState{
			ConceptID:   c.ID,
			ConceptName: c.Name,
			Domain:      c.Domain,
			Trend:       entity.TrendStable,
			UpdatedAt:   time.Time{},
		})
	}
	return states, nil
}
