package json

import (
	"net/http"
	"strconv"
)

const (
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeRoomFull            = "ROOM_FULL"
	CodeInvalidPassword     = "INVALID_PASSWORD"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeAlreadyDissolved    = "ALREADY_DISSOLVED"
	CodeBadRequest          = "BAD_REQUEST"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL"
)

// ErrorResponse is the body of every failed request. Code is the symbolic
// error and ErrorCode repeats the HTTP status for clients that only read the
// body.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code"`
	ErrorCode int    `json:"errorCode"`
	Details   any    `json:"details,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteErrorWithDetails(w, status, code, msg, nil)
}

func WriteErrorWithDetails(w http.ResponseWriter, status int, code, msg string, details any) {
	Write(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   msg,
		Code:      code,
		ErrorCode: status,
		Details:   details,
	})
}

func WriteValidationError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
}

func WriteBadRequestError(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, msg)
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred")
}

func WriteRateLimitError(w http.ResponseWriter, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many requests. Please try again later.")
}
