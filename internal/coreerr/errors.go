// Package coreerr defines the closed error taxonomy that crosses every
// core operation's boundary.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind is one of the closed set of error kinds the core ever returns.
type Kind string

const (
	NotFound                    Kind = "NotFound"
	PermissionDenied            Kind = "PermissionDenied"
	IllegalTransition           Kind = "IllegalTransition"
	PreconditionFailed          Kind = "PreconditionFailed"
	InvariantViolation          Kind = "InvariantViolation"
	AlreadyCheckedOut           Kind = "AlreadyCheckedOut"
	AwaitingCompanionCertificate Kind = "AwaitingCompanionCertificate"
	SetIdReused                 Kind = "SetIdReused"
	Conflict                    Kind = "Conflict"
	Timeout                     Kind = "Timeout"
	Transient                   Kind = "Transient"
)

// CoreError is the structured error every core operation returns instead
// of a bare error string. Kind uniquely determines recoverability.
type CoreError struct {
	Kind    Kind
	Message string
	Entity  string
	Field   string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is lets errors.Is match on Kind alone, so callers can write
// errors.Is(err, coreerr.New(coreerr.NotFound, "")).
func (e *CoreError) Is(target error) bool {
	var ce *CoreError
	if errors.As(target, &ce) {
		return e.Kind == ce.Kind
	}
	return false
}

// New creates a CoreError with no wrapped cause.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Wrap creates a CoreError wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: err}
}

// WithEntity attaches the entity type/id context to the error.
func (e *CoreError) WithEntity(entity string) *CoreError {
	e.Entity = entity
	return e
}

// WithField attaches the offending field name to the error.
func (e *CoreError) WithField(field string) *CoreError {
	e.Field = field
	return e
}

// KindOf extracts the Kind from an error, or "" if it is not a CoreError.
func KindOf(err error) Kind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsTransient reports whether err is a Transient CoreError — the only
// kind the retry policy is allowed to retry.
func IsTransient(err error) bool {
	return KindOf(err) == Transient
}
