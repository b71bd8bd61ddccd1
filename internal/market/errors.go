package market

import (
	"errors"
	"fmt"
)

// Kind is a stable error category for programmatic handling. Callers branch
// on Kind and Field rather than matching message text.
type Kind string

const (
	// KindValidation: malformed input, rejected before any state read.
	KindValidation Kind = "Validation"
	// KindAuthorization: signature or identity mismatch, rejected before
	// any mutation.
	KindAuthorization Kind = "Authorization"
	// KindStateConflict: operation invalid given the current record status
	// (settling a sold asset, referencing a missing or stale record).
	KindStateConflict Kind = "StateConflict"
	// KindResource: insufficient funds, rejected after the balance check,
	// before any mutation.
	KindResource Kind = "Resource"
)

// Error is the engine's structured error type. Field names the offending
// input or record so the API layer can translate failures into actionable
// responses. Message is for humans; do not match on it.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Field, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, field, msg string) error {
	return &Error{Kind: kind, Field: field, Message: msg}
}

func wrapError(kind Kind, field, msg string, cause error) error {
	return &Error{Kind: kind, Field: field, Message: msg, Cause: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
