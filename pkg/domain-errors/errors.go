// Package domainerrors carries typed, recoverable business errors across
// service boundaries. Services return these; the API layer maps the Code to a
// user-facing message. Infrastructure failures are wrapped with CodeInternal
// so the cause survives errors.Is / errors.As.
package domainerrors

import "errors"

// Code classifies a domain error.
type Code string

const (
	// Input and request shape.
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeInvalidInput Code = "invalid_input"

	// Lookup and uniqueness.
	CodeNotFound Code = "not_found"
	CodeConflict Code = "conflict"

	// Workflow preconditions.
	CodeAlreadyProcessed   Code = "already_processed"
	CodeDuplicatePending   Code = "duplicate_pending_submission"
	CodeMissingReason      Code = "missing_reason"
	CodeInvalidTransition  Code = "invalid_transition"
	CodeInvariantViolation Code = "invariant_violation"

	// Infrastructure.
	CodeTimeout  Code = "timeout"
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a stable Code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without an underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost domain error in err's chain, or ""
// when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether the outermost domain error in err's chain has code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// IsPrecondition reports whether err is an expected business condition rather
// than an infrastructure failure. Callers use it to decide whether to log.
func IsPrecondition(err error) bool {
	switch CodeOf(err) {
	case CodeAlreadyProcessed, CodeDuplicatePending, CodeMissingReason, CodeInvalidTransition,
		CodeInvariantViolation, CodeBadRequest, CodeValidation, CodeInvalidInput, CodeNotFound, CodeConflict:
		return true
	}
	return false
}
