package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/usecase"
)

// SessionHandler serves practice sessions.
type SessionHandler struct {
	uc usecase.SessionUsecase
}

func NewSessionHandler(uc usecase.SessionUsecase) *SessionHandler {
	return &SessionHandler{uc: uc}
}

type createSessionRequest struct {
	Type           string `json:"type"`
	FocusConceptID string `json:"focus_concept_id"`
	TimeLimitMS    int64  `json:"time_limit_ms"`
	TotalItems     int32  `json:"total_items"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := h.uc.CreateSession(r.Context(), &entity.Session{
		Type:           entity.SessionType(req.Type),
		FocusConceptID: req.FocusConceptID,
		TimeLimitMS:    req.TimeLimitMS,
		TotalItems:     req.TotalItems,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(*session))
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.uc.ListSessions(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": lo.Map(sessions, func(s entity.Session, _ int) sessionDTO { return toSessionDTO(s) }),
	})
}

type completeSessionRequest struct {
	CompletedItems int32   `json:"completed_items"`
	Accuracy       float64 `json:"accuracy"`
	AvgConfidence  float64 `json:"avg_confidence"`
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := h.uc.CompleteSession(r.Context(), usecase.CompleteSessionInput{
		SessionID:      chi.URLParam(r, "id"),
		CompletedItems: req.CompletedItems,
		Accuracy:       req.Accuracy,
		AvgConfidence:  req.AvgConfidence,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*session))
}
