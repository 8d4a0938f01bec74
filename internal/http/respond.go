// Package http provides the FinanceBro JSON API server.
//
// This file implements response helpers: JSON encoding and the mapping from
// domain errors to HTTP statuses. Ownership violations and missing entities
// share one external message so the API never confirms the existence of
// another user's data.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financebro/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeDomainError translates core errors into API responses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrNotOwner):
		// Indistinguishable from not-found externally; the internal log
		// already recorded the ownership violation.
		writeError(w, http.StatusNotFound, "not found")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidFrequency,
		core.ErrInvalidDirection,
		core.ErrEmptyDescription,
		core.ErrEmptyName,
		core.ErrTooLong,
		core.ErrMissingReference,
		core.ErrNotTemplate,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// decodeJSON decodes a request body into v, rejecting unknown fields and
// oversized payloads.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
