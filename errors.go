package analytics

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of error for metrics and logging.
type ErrorCode string

// Error codes for categorization.
const (
	ErrCodeInvalidParameter ErrorCode = "INVALID_PARAMETER" // Local validation failures
	ErrCodeResult           ErrorCode = "RESULT_ERROR"      // Delegated operation failures
	ErrCodeConfig           ErrorCode = "CONFIG"            // Configuration errors
	ErrCodeShutdown         ErrorCode = "SHUTDOWN"          // Closed tracker/consumer errors
	ErrCodeInternal         ErrorCode = "INTERNAL"          // Internal SDK errors
)

// TrackingError is the common interface for all SDK errors.
// Use this interface to handle errors generically while still accessing
// error-specific information.
//
// Example:
//
//	var trackErr analytics.TrackingError
//	if errors.As(err, &trackErr) {
//	    if trackErr.IsRetryable() {
//	        // Retry the operation
//	    }
//	    log.Printf("error code: %s", trackErr.Code())
//	}
type TrackingError interface {
	error

	// Code returns a machine-readable error code for categorization.
	Code() ErrorCode

	// IsRetryable returns true if the operation can be retried as-is.
	IsRetryable() bool
}

// Sentinel errors for lifecycle and parameter validation.
var (
	ErrTrackerClosed  = errors.New("analytics: tracker is closed")
	ErrConsumerClosed = errors.New("analytics: consumer is closed")
	ErrBagDisposed    = errors.New("analytics: property bag has been disposed")
	ErrNilConsumer    = errors.New("analytics: consumer cannot be nil")
	ErrNilBag         = errors.New("analytics: property bag cannot be nil")
	ErrNilConfig      = errors.New("analytics: config cannot be nil")
)

// ValidationError represents a local, pre-call validation failure: a wrong
// type, an empty required value, or an out-of-range number. It is returned
// before any side effect occurs and never reaches the consumer. Callers
// recover by fixing the offending input.
type ValidationError struct {
	Field   string
	Message string
	Err     error // Underlying error for wrapping
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("analytics: invalid parameter %q: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Code returns ErrCodeInvalidParameter.
// Implements the TrackingError interface.
func (e *ValidationError) Code() ErrorCode {
	return ErrCodeInvalidParameter
}

// IsRetryable returns false: validation errors should be fixed, not retried.
// Implements the TrackingError interface.
func (e *ValidationError) IsRetryable() bool {
	return false
}

// Ensure ValidationError implements TrackingError.
var _ TrackingError = (*ValidationError)(nil)

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationErrorWithCause creates a new validation error with an
// underlying cause.
func NewValidationErrorWithCause(field, message string, cause error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     cause,
	}
}

// ResultError represents a failure of a delegated operation: the consumer
// was invoked and reported an error, or a runtime fault was recovered at
// the call boundary. The operation had side effects (or attempted them);
// callers are expected to log and continue rather than crash.
type ResultError struct {
	Op  string // The operation that failed: "send", "flush", "close", "open", ...
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *ResultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analytics: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("analytics: %s failed", e.Op)
}

// Unwrap returns the underlying error for error chain support.
func (e *ResultError) Unwrap() error {
	return e.Err
}

// Code returns ErrCodeResult.
// Implements the TrackingError interface.
func (e *ResultError) Code() ErrorCode {
	return ErrCodeResult
}

// IsRetryable returns true: delegated failures are typically transient
// (full disk, closed pipe, busy sink) and may succeed on retry.
// Implements the TrackingError interface.
func (e *ResultError) IsRetryable() bool {
	return true
}

// Ensure ResultError implements TrackingError.
var _ TrackingError = (*ResultError)(nil)

// NewResultError creates a new result error for the given operation.
func NewResultError(op string, err error) *ResultError {
	return &ResultError{Op: op, Err: err}
}

// AsValidationError extracts a ValidationError from the error chain.
// Returns the ValidationError and true if found, nil and false otherwise.
// This follows Go's errors.As() convention.
func AsValidationError(err error) (*ValidationError, bool) {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr, true
	}
	return nil, false
}

// AsResultError extracts a ResultError from the error chain.
// Returns the ResultError and true if found, nil and false otherwise.
// This follows Go's errors.As() convention.
func AsResultError(err error) (*ResultError, bool) {
	var resErr *ResultError
	if errors.As(err, &resErr) {
		return resErr, true
	}
	return nil, false
}

// IsInvalidParameter reports whether err belongs to the invalid-parameter
// class: any ValidationError or one of the parameter sentinels.
func IsInvalidParameter(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := AsValidationError(err); ok {
		return true
	}
	return errors.Is(err, ErrNilConsumer) ||
		errors.Is(err, ErrNilBag) ||
		errors.Is(err, ErrBagDisposed)
}

// IsRetryable returns true if the error represents a retryable condition.
// This works with any error type in the SDK.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var trackErr TrackingError
	if errors.As(err, &trackErr) {
		return trackErr.IsRetryable()
	}
	return false
}

// ErrorCodeOf returns the error code for an error.
// It checks if the error implements TrackingError, then falls back to
// inferring the code from sentinel errors.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var trackErr TrackingError
	if errors.As(err, &trackErr) {
		return trackErr.Code()
	}

	switch {
	case errors.Is(err, ErrTrackerClosed),
		errors.Is(err, ErrConsumerClosed):
		return ErrCodeShutdown

	case errors.Is(err, ErrBagDisposed),
		errors.Is(err, ErrNilConsumer),
		errors.Is(err, ErrNilBag):
		return ErrCodeInvalidParameter

	case errors.Is(err, ErrNilConfig):
		return ErrCodeConfig
	}

	return ErrCodeInternal
}

// WrapError wraps an error with additional context.
// It returns nil if err is nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("analytics: %s: %w", message, err)
}

// WrapErrorf wraps an error with a formatted message.
// It returns nil if err is nil.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("analytics: %s: %w", message, err)
}
