// Package api exposes the engine over HTTP with a chi router.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/eslsoft/gapmap/internal/entity"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func queryInt32(r *http.Request, key string) int32 {
	n, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

// respondError maps the entity error categories onto HTTP statuses:
// validation 400, not found 404, anything else (including invariant
// violations) 500.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
