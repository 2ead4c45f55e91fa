package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/schemalens/schemalens/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps application errors to HTTP status codes and writes the
// error response.
func WriteError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		return ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, apperrors.ErrUnsupportedType):
		return ErrorResponse(w, http.StatusBadRequest, "unsupported_type", err.Error())
	case errors.Is(err, apperrors.ErrEmptySnapshot):
		return ErrorResponse(w, http.StatusConflict, "empty_snapshot", err.Error())
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
	}
}
