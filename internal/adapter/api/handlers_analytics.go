package api

import (
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/usecase"
)

// AnalyticsHandler serves mastery, gap and trend views.
type AnalyticsHandler struct {
	uc usecase.AnalyticsUsecase
}

func NewAnalyticsHandler(uc usecase.AnalyticsUsecase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

func (h *AnalyticsHandler) ConceptMastery(w http.ResponseWriter, r *http.Request) {
	states, err := h.uc.GetConceptMastery(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mastery": lo.Map(states, func(m entity.MasteryState, _ int) masteryDTO { return toMasteryDTO(m) }),
	})
}

func (h *AnalyticsHandler) TopGaps(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	gaps, err := h.uc.GetTopGaps(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gaps": lo.Map(gaps, func(g entity.GapSummary, _ int) gapDTO { return toGapDTO(g) }),
	})
}

func (h *AnalyticsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.uc.GetPerformanceTrends(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trends": lo.Map(trends, func(t entity.PerformanceTrend, _ int) trendDTO { return toTrendDTO(t) }),
	})
}
