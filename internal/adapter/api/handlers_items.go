package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
	"github.com/eslsoft/gapmap/internal/usecase"
)

// ItemHandler serves the practice item catalog.
type ItemHandler struct {
	uc usecase.ItemUsecase
}

func NewItemHandler(uc usecase.ItemUsecase) *ItemHandler {
	return &ItemHandler{uc: uc}
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.uc.CreateItem(r.Context(), req.toEntity(""))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(*item))
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	query := &repository.ListItemQuery{}
	query.Filter = r.URL.Query().Get("filter")
	query.OrderBy = r.URL.Query().Get("order_by")
	query.PageNo = queryInt32(r, "page_no")
	query.PageSize = queryInt32(r, "page_size")

	items, total, err := h.uc.ListItems(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": lo.Map(items, func(it entity.Item, _ int) itemDTO { return toItemDTO(it) }),
		"total": total,
	})
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.uc.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(*item))
}

// Update edits metadata only; stem, type and variant content are fixed
// once attempts may reference them.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.uc.UpdateItemMetadata(r.Context(), req.toEntity(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(*item))
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
