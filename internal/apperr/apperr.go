// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"net/http"

	"lunara/internal/validation"
)

// Error kinds. Use errors.Is to classify.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrLocked       = errors.New("locked")
	ErrRateLimited  = errors.New("rate limited")
	ErrInternal     = errors.New("internal error")
)

// Messages shown to callers for common failures
const (
	MsgUnauthorizedOrNotFound = "Unauthorized or Item Not Found"
	MsgInvalidInvite          = "Invalid or expired invite"
	MsgInternal               = "Internal server error"
)

// Error pairs a kind with a user-safe message and an optional cause
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New creates an error of the given kind
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind and user-safe message to err
func Wrap(kind error, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Unauthorized is the shared rejection for identity mismatches and missing rows
func Unauthorized() error {
	return New(ErrUnauthorized, MsgUnauthorizedOrNotFound)
}

// Status maps err to an HTTP status code
func Status(err error) int {
	var verr validation.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrLocked):
		return http.StatusLocked
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text that is safe to show to the caller
func Message(err error) string {
	var aerr *Error
	if errors.As(err, &aerr) && !errors.Is(aerr.Kind, ErrInternal) {
		return aerr.Msg
	}
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return MsgInternal
}

// IsInternal reports whether err should be logged as a server fault
func IsInternal(err error) bool {
	return err != nil && Status(err) == http.StatusInternalServerError
}

// Result is the envelope returned by mutation endpoints
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK wraps data in a successful result
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail converts err into a failed result without leaking internals
func Fail(err error) Result {
	return Result{Success: false, Error: Message(err)}
}
