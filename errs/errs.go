// Package errs provides the structured error envelope shared by the publishing engine and the
// platform connectors.
package errs

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Code identifies a publishing error category.
type Code string

const (
	// CodeValidation marks content or media that violates the platform rules.
	CodeValidation Code = "validation"
	// CodeAuth marks a rejected credential that may still recover (token mid-refresh).
	CodeAuth Code = "auth"
	// CodeInvalidCredential marks a revoked or malformed credential. Retrying cannot help.
	CodeInvalidCredential Code = "invalid_credential"
	// CodePlatformAPI marks a non-success response from a platform API.
	CodePlatformAPI Code = "platform_api"
	// CodeNetwork marks a transport failure with no response.
	CodeNetwork Code = "network"
	// CodeTimeout marks a call that exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeNotFound marks a missing account, job or post reference.
	CodeNotFound Code = "not_found"
	// CodeCircuitOpen marks a call rejected because the platform breaker is open.
	CodeCircuitOpen Code = "circuit_open"
	// CodeConflict marks an operation that is illegal in the record's current state.
	CodeConflict Code = "conflict"
)

// E captures structured error information produced across the publishing stack.
type E struct {
	Platform string
	Code     Code
	HTTP     int
	Message  string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the platform and code.
func New(platform string, code Code, opts ...Option) *E {
	e := &E{
		Platform: strings.TrimSpace(platform),
		Code:     code,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// Error returns the message alone so it can be shown to users as-is.
func (e *E) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return string(e.Code)
}

// Unwrap exposes the underlying cause.
func (e *E) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Retryable reports whether another attempt could succeed.
func (e *E) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case CodeValidation, CodeInvalidCredential, CodeNotFound, CodeConflict:
		return false
	case CodePlatformAPI:
		if e.HTTP >= 400 && e.HTTP < 500 {
			return e.HTTP == http.StatusRequestTimeout || e.HTTP == http.StatusTooManyRequests
		}
		return true
	default:
		return true
	}
}

// CodeOf extracts the code from err, or "" when err carries no envelope.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return ""
}

// IsRetryable reports whether err describes a failure worth another attempt. Errors without an
// envelope are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *E
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return true
}

// Validation builds a validation error joined from the violation messages.
func Validation(platform string, violations []string) *E {
	return New(platform, CodeValidation, WithMessage(strings.Join(violations, "; ")))
}

// NotFound builds a not-found error for the named reference.
func NotFound(platform, what string) *E {
	return New(platform, CodeNotFound, WithMessage(what+" not found"))
}

// Timeout builds the timeout error. Its message is the literal "timeout" stored in lastError.
func Timeout(platform string, cause error) *E {
	return New(platform, CodeTimeout, WithMessage("timeout"), WithCause(cause))
}
