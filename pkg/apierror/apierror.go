package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRequestFailed     = errors.New("request failed")
	ErrUnreachable       = errors.New("backend unreachable")
)

// ValidationError is raised for locally detectable bad input, always before
// any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     string
	Body   string
}

func (e *NotFoundError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %q not found: %s", e.Entity, e.ID, e.Body)
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type InvalidTransitionError struct {
	RecordID string
	From     string
	Action   string
	Body     string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s record %q", e.Action, e.RecordID)
	if e.From != "" {
		msg += fmt.Sprintf(" in status %s", e.From)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// RequestFailedError carries a non-2xx response. Body holds the raw response
// text so the operator sees what the backend actually said.
type RequestFailedError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RequestFailedError) Error() string {
	if msg := e.Message(); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Endpoint, e.StatusCode)
}

func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Message returns the backend's own explanation: the detail, message or error
// field of a JSON body, or the trimmed body text otherwise.
func (e *RequestFailedError) Message() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}

	return body
}

// ClientError reports a 4xx status.
func (e *RequestFailedError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type UnreachableError struct {
	Endpoint string
	Cause    error
}

func (e *UnreachableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrUnreachable, e.Endpoint)
	}
	return fmt.Sprintf("%s: %s: %v", ErrUnreachable, e.Endpoint, e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var failed *RequestFailedError
	if errors.As(err, &failed) {
		return failed.StatusCode
	}
	return 0
}

// Kind names the taxonomy class of err, for logs and CLI output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrRequestFailed):
		return "request_failed"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	default:
		return "internal"
	}
}
