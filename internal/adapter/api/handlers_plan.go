package api

import (
	"net/http"
	"time"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/usecase"
)

// PlanHandler serves the daily plan.
type PlanHandler struct {
	uc usecase.PlanUsecase
}

func NewPlanHandler(uc usecase.PlanUsecase) *PlanHandler {
	return &PlanHandler{uc: uc}
}

func (h *PlanHandler) DailyPlan(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	budget := entity.PlanBudget{
		MaxItems:   queryInt32(r, "items"),
		MaxMinutes: queryInt32(r, "minutes"),
	}
	plan, err := h.uc.GetDailyPlan(r.Context(), date, budget)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(*plan))
}
