// Package apperror defines the typed errors surfaced to API clients and
// their HTTP status mapping.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes an application error.
type ErrorType int

const (
	// Internal is an unexpected datastore or logic failure.
	Internal ErrorType = iota
	// InvalidCredentials is a failed username/password check.
	InvalidCredentials
	// Unauthenticated covers missing, malformed, expired, wrong-type and revoked tokens.
	Unauthenticated
	// Forbidden is an authenticated identity without the required privilege.
	Forbidden
	// Validation is malformed input; details are carried in Fields.
	Validation
	// NotFound is a referenced entity that does not exist.
	NotFound
	// Conflict is a uniqueness violation such as a taken username.
	Conflict
	// RateLimited is a throttled request.
	RateLimited
)

func (t ErrorType) String() string {
	switch t {
	case InvalidCredentials:
		return "invalid_credentials"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case RateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// FieldError is one validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

// AppError is the error type returned by services.
type AppError struct {
	Type    ErrorType
	Message string
	Fields  []FieldError
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s (%d field errors)", msg, len(e.Fields))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type to an HTTP status.
// Conflict is reported as 400 to match the registration contract.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case InvalidCredentials, Validation, Conflict:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Messages returns the client-facing messages, one per field error.
func (e *AppError) Messages() []string {
	if len(e.Fields) == 0 {
		return []string{e.Message}
	}
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.String())
	}
	return out
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

func NewInvalidCredentials() *AppError {
	return newError(InvalidCredentials, "invalid username or password", nil)
}

func NewUnauthenticated(message string, err error) *AppError {
	return newError(Unauthenticated, message, err)
}

func NewForbidden(message string) *AppError {
	return newError(Forbidden, message, nil)
}

func NewNotFound(message string) *AppError {
	return newError(NotFound, message, nil)
}

func NewConflict(message string, err error) *AppError {
	return newError(Conflict, message, err)
}

func NewRateLimited(message string) *AppError {
	return newError(RateLimited, message, nil)
}

func NewInternal(message string, err error) *AppError {
	return newError(Internal, message, err)
}

// NewValidation builds a single-field validation error.
func NewValidation(field, message string) *AppError {
	return NewValidationFields([]FieldError{{Field: field, Message: message}})
}

// NewValidationFields batches several field errors into one error.
func NewValidationFields(fields []FieldError) *AppError {
	return &AppError{Type: Validation, Message: "validation failed", Fields: fields}
}

// FromError returns the AppError in err's chain, if any.
func FromError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries an AppError of type t.
func Is(err error, t ErrorType) bool {
	appErr, ok := FromError(err)
	return ok && appErr.Type == t
}
