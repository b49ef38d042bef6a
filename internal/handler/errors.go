package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/store"
)

// ErrorDetail is the body of every non-2xx response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// errBodyTooLarge is returned by decodeJSON when the body exceeds the
// limit installed by the max body size middleware.
var errBodyTooLarge = errors.New("request body too large")

// writeError maps err onto a status code and error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := s.classify(r, err)
	writeJSON(w, status, body)
}

// classify picks the status and body for err. Unexpected errors are logged
// and reported without detail.
func (s *Server) classify(r *http.Request, err error) (int, ErrorResponse) {
	var commitErr *store.CommitError
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, errorBody("payload_too_large", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody("not_found", unwrapMessage(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, errorBody("validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, capture.ErrLocationDenied):
		return http.StatusForbidden, errorBody("location_denied", "location access was not granted")
	case errors.Is(err, capture.ErrNotTracking):
		return http.StatusConflict, errorBody("not_tracking", "the session is not accepting locations")
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorBody("conflict", unwrapMessage(err, domain.ErrConflict))
	case errors.As(err, &commitErr):
		s.log.ErrorContext(r.Context(), "trip commit failed", "trip_id", commitErr.TripID, "error", err)
		return http.StatusServiceUnavailable, errorBody("commit_failed", "the trip could not be saved, try again")
	case errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable, errorBody("unavailable", "the trip store is not available")
	}
	s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	return http.StatusInternalServerError, errorBody("internal_error", "internal server error")
}

// unwrapMessage extracts the human-readable part that follows the sentinel
// in a wrapped error.
// e.g. "service.VehicleService.SaveDefaultVehicle: validation error: make is required" → "make is required"
func unwrapMessage(err, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 && len(msg) > i+len(marker) {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the status line is already sent
	json.NewEncoder(w).Encode(v)
}
