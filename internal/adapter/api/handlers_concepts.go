package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
	"github.com/eslsoft/gapmap/internal/usecase"
)

// ConceptHandler serves the concept catalog.
type ConceptHandler struct {
	uc usecase.ConceptUsecase
}

func NewConceptHandler(uc usecase.ConceptUsecase) *ConceptHandler {
	return &ConceptHandler{uc: uc}
}

func (h *ConceptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req conceptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	concept, err := h.uc.CreateConcept(r.Context(), req.toEntity(""))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConceptDTO(*concept))
}

func (h *ConceptHandler) List(w http.ResponseWriter, r *http.Request) {
	query := &repository.ListConceptQuery{}
	query.Filter = r.URL.Query().Get("filter")
	query.OrderBy = r.URL.Query().Get("order_by")
	query.PageNo = queryInt32(r, "page_no")
	query.PageSize = queryInt32(r, "page_size")

	concepts, total, err := h.uc.ListConcepts(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"concepts": lo.Map(concepts, func(c entity.Concept, _ int) conceptDTO { return toConceptDTO(c) }),
		"total":    total,
	})
}

func (h *ConceptHandler) Get(w http.ResponseWriter, r *http.Request) {
	concept, err := h.uc.GetConcept(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConceptDTO(*concept))
}

func (h *ConceptHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req conceptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	concept, err := h.uc.UpdateConcept(r.Context(), req.toEntity(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConceptDTO(*concept))
}

func (h *ConceptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteConcept(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
