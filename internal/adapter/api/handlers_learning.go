package api

import (
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
	"github.com/eslsoft/gapmap/internal/usecase"
)

// LearningHandler serves attempt ingestion and the review queue.
type LearningHandler struct {
	uc       usecase.LearningUsecase
	attempts repository.AttemptRepository
}

func NewLearningHandler(uc usecase.LearningUsecase, attempts repository.AttemptRepository) *LearningHandler {
	return &LearningHandler{uc: uc, attempts: attempts}
}

type submitAttemptRequest struct {
	ItemID      string `json:"item_id"`
	SessionID   string `json:"session_id"`
	UserAnswer  string `json:"user_answer"`
	IsCorrect   bool   `json:"is_correct"`
	Confidence  int32  `json:"confidence"`
	TimeSpentMS int64  `json:"time_spent_ms"`
}

func (h *LearningHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitAttemptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	attempt, err := h.uc.SubmitAttempt(r.Context(), usecase.SubmitAttemptInput{
		ItemID:      req.ItemID,
		SessionID:   req.SessionID,
		UserAnswer:  req.UserAnswer,
		IsCorrect:   req.IsCorrect,
		Confidence:  req.Confidence,
		TimeSpentMS: req.TimeSpentMS,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttemptDTO(*attempt))
}

func (h *LearningHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	query := &repository.ListAttemptQuery{}
	query.Filter = r.URL.Query().Get("filter")
	query.OrderBy = r.URL.Query().Get("order_by")
	query.PageNo = queryInt32(r, "page_no")
	query.PageSize = queryInt32(r, "page_size")

	attempts, total, err := h.attempts.List(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempts": lo.Map(attempts, func(a entity.Attempt, _ int) attemptDTO { return toAttemptDTO(a) }),
		"total":    total,
	})
}

func (h *LearningHandler) NextReviewItem(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryTime(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.uc.NextReviewItem(r.Context(), asOf)
	if err != nil {
		respondError(w, err)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusOK, map[string]any{"item": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": toItemDTO(*item)})
}

func (h *LearningHandler) CountDue(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryTime(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.uc.CountDue(r.Context(), asOf)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"due_count": n})
}

// queryTime parses an RFC3339 query parameter, defaulting to now.
func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
