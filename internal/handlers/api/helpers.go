package api

import (
	"encoding/json"
	"net/http"

	"chatlink/internal/apperrors"
)

// ErrorResponse is the generic error body for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse sends data as a JSON response with the given status.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		// Headers already went out; an encode failure here has no recovery.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeJSONError sends a JSON-formatted error response.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeAppError maps an application error code to an HTTP status.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeAlreadyExists:
		status = http.StatusConflict
	case apperrors.CodeUnauthenticated:
		status = http.StatusUnauthorized
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeJSONError(w, message, status)
}
