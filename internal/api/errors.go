package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/hsb-core/internal/automation"
	"github.com/nerrad567/hsb-core/internal/manager"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeInternal     = "internal_error"
	ErrCodeCommand      = "command_failed"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeTimeout      = "timeout"
	ErrCodeUnknownCmd   = "unknown_command"
	ErrCodeInvalidInput = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeExecuteError maps a failure to reach the dispatcher.
func writeExecuteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, manager.ErrUnknownCommand):
		writeError(w, http.StatusBadRequest, ErrCodeUnknownCmd, err.Error())
	case errors.Is(err, manager.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
	case errors.Is(err, manager.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "command timed out")
	default:
		writeInternalError(w, err.Error())
	}
}

// replyStatus picks the HTTP status for a reply that carries an error.
// Replies travel as text, so the sentinel is matched on its message.
func replyStatus(errText string) (int, string) {
	switch {
	case strings.Contains(errText, manager.ErrDeviceNotFound.Error()),
		strings.Contains(errText, automation.ErrSceneNotFound.Error()):
		return http.StatusNotFound, ErrCodeNotFound
	case strings.Contains(errText, manager.ErrInvalidRequest.Error()),
		strings.Contains(errText, manager.ErrNotInfrared.Error()):
		return http.StatusBadRequest, ErrCodeBadRequest
	default:
		return http.StatusUnprocessableEntity, ErrCodeCommand
	}
}
