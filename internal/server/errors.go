package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

type errorResponse struct {
	Error *domain.APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a JSON error envelope. Store misses become 404
// and unclassified errors become 500 without leaking their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	var apiErr *domain.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, domain.ErrNotFound):
		apiErr = domain.NewAPIError(domain.ErrorTypeNotFound, err.Error())
	default:
		apiErr = domain.ErrServer("internal error")
	}
	writeJSON(w, apiErr.HTTPStatusCode(), errorResponse{Error: apiErr})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}
