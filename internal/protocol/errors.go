package protocol

import (
	"fmt"
	"strings"
)

const (
	CodeInvalidPane    = "INVALID_PANE"
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeRateLimit      = "RATE_LIMIT"
	CodeInternal       = "INTERNAL"
)

// ErrorPayload is the wire shape of an error inside a response envelope.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a translated upstream failure. Status carries the HTTP status
// when the failure came from a response; 0 means transport-level.
type APIError struct {
	Code    string
	Message string
	Status  int
	Cause   string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Cause != "" {
		return msg + "\nError cause: " + e.Cause
	}
	return msg
}

func (e *APIError) Payload() ErrorPayload {
	if e == nil {
		return ErrorPayload{Code: CodeInternal}
	}
	code := e.Code
	if code == "" {
		code = CodeInternal
	}
	return ErrorPayload{Code: code, Message: e.Error()}
}

// NewHTTPError builds the user-visible message for a non-success status:
// the server message (if any) followed by the status, with a 500 error cause
// appended as a second line.
func NewHTTPError(status int, code, serverMessage, errorCause string) *APIError {
	msg := strings.TrimSpace(serverMessage)
	if msg == "" {
		msg = fmt.Sprintf("request failed (status %d)", status)
	} else {
		msg = fmt.Sprintf("%s (status %d)", msg, status)
	}
	if code == "" {
		code = codeForStatus(status)
	}
	e := &APIError{Code: code, Message: msg, Status: status}
	if status == 500 && strings.TrimSpace(errorCause) != "" {
		e.Cause = strings.TrimSpace(errorCause)
	}
	return e
}

func codeForStatus(status int) string {
	switch status {
	case 404, 410:
		return CodeNotFound
	case 429:
		return CodeRateLimit
	case 400:
		return CodeInvalidPayload
	default:
		return CodeInternal
	}
}

func InternalError(message string) *APIError {
	return &APIError{Code: CodeInternal, Message: message}
}
