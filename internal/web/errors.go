package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Tagged with a stable machine-readable code
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via notify.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is written as JSON

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/eventsink/internal/notify"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and writes the mapped message
// as JSON with the given status code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := notify.MapError(err)

	// Get request ID for correlation
	requestID := middleware.GetReqID(r.Context())

	// Log the technical error with context
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", requestID,
	)

	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg notify.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondBadRequest writes a 400 for requests the server could not parse.
// These never reach the dispatch service, so they carry the REQ001 code
// rather than going through notify.MapError.
func respondBadRequest(w http.ResponseWriter, message, action string) {
	respondErrorJSON(w, notify.UserMessage{
		Message: message,
		Action:  action,
		Code:    "REQ001",
	}, http.StatusBadRequest)
}

// dispatchStatus maps a dispatch error to an HTTP status code.
//
// Client-side problems (bad channel, bad values, attachments) get 4xx;
// configuration and destination failures get 5xx.
func dispatchStatus(err error) int {
	switch {
	case errors.Is(err, notify.ErrChannelNotFound):
		return http.StatusNotFound
	case errors.Is(err, notify.ErrAttachmentsUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, notify.ErrTooManyDispatches):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var interpErr *notify.InterpolationError
	var coerceErr *notify.CoercionError
	if errors.As(err, &interpErr) || errors.As(err, &coerceErr) {
		return http.StatusUnprocessableEntity
	}

	var cfgErr *notify.ConfigError
	var mapErr *notify.MappingError
	if errors.As(err, &cfgErr) || errors.As(err, &mapErr) {
		return http.StatusInternalServerError
	}

	// Anything else is the destination database failing
	return http.StatusBadGateway
}
