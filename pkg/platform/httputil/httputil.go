// Package httputil writes JSON responses and maps errors to status codes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"salgsmotor/pkg/domain"
	"salgsmotor/pkg/platform/sentinel"
)

// ErrorBody is the JSON error shape.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and error code. Descriptions of internal
// errors are not exposed.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := ErrorBody{Error: code}
	if status < http.StatusInternalServerError {
		body.Description = err.Error()
	}
	WriteJSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrgNumber):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
