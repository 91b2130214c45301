// Package apierr maps engine errors to stable HTTP codes.
package apierr

import (
	"errors"
	"net/http"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/synth"
	"github.com/zhouzirui/prompt-tavern/backend/pkg/utils"
)

const (
	CodePersonalityNotFound = "personality_not_found"
	CodeInvalidTechnique    = "invalid_technique"
	CodeEmptyMessage        = "empty_message"
	CodeSessionNotFound     = "session_not_found"
	CodeSessionExpired      = "session_expired"
	CodeCapacityExceeded    = "capacity_exceeded"
	CodeBadRequest          = "bad_request"
	CodeInternal            = "internal_error"
)

var table = []struct {
	err    error
	code   string
	status int
}{
	{persona.ErrNotFound, CodePersonalityNotFound, http.StatusNotFound},
	{technique.ErrInvalidTechnique, CodeInvalidTechnique, http.StatusBadRequest},
	{synth.ErrEmptyMessage, CodeEmptyMessage, http.StatusBadRequest},
	{chat.ErrSessionNotFound, CodeSessionNotFound, http.StatusNotFound},
	{chat.ErrSessionExpired, CodeSessionExpired, http.StatusGone},
	{chat.ErrCapacityExceeded, CodeCapacityExceeded, http.StatusServiceUnavailable},
	{chat.ErrPersonalityRequired, CodeBadRequest, http.StatusBadRequest},
}

// Classify returns the HTTP status and code for err.
func Classify(err error) (int, string) {
	for _, entry := range table {
		if errors.Is(err, entry.err) {
			return entry.status, entry.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// Write sends err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	utils.RespondErrorCode(w, status, code, message)
}

// BadRequest sends a 400 for malformed input.
func BadRequest(w http.ResponseWriter, message string) {
	utils.RespondErrorCode(w, http.StatusBadRequest, CodeBadRequest, message)
}
