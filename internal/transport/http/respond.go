package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finquiz-service/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors onto HTTP statuses. Bad input is the client's
// fault, missing ledgers and locked levels read as not-found, everything else
// is a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidScore),
		errors.Is(err, domain.ErrUnknownLevel),
		errors.Is(err, domain.ErrInsufficientQuestions),
		errors.Is(err, domain.ErrPoolNotFound):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrLevelNotUnlocked):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
