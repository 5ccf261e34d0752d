package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/fundcompare/backend/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps the error taxonomy onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrAlreadySelected):
		return http.StatusConflict
	case errors.Is(err, contracts.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contracts.ErrEmptySelection):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrFetchFailure), errors.Is(err, contracts.ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
