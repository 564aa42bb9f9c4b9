package entity

import "errors"

// Error categories. Specific errors wrap one of these so callers can
// classify with errors.Is without enumerating every sentinel.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrInvariant  = errors.New("computation invariant violated")
)

// Domain errors for concepts, items and attempts.
var (
	ErrConceptNotFound      = wrap("concept not found", ErrNotFound)
	ErrItemNotFound         = wrap("item not found", ErrNotFound)
	ErrSessionNotFound      = wrap("session not found", ErrNotFound)
	ErrInvalidConceptName   = wrap("invalid concept name", ErrValidation)
	ErrInvalidConceptID     = wrap("invalid concept ID", ErrValidation)
	ErrInvalidItemID        = wrap("invalid item ID", ErrValidation)
	ErrInvalidItemType      = wrap("invalid item type", ErrValidation)
	ErrItemWithoutConcepts  = wrap("item must target at least one concept", ErrValidation)
	ErrInvalidConfidence    = wrap("confidence must be between 1 and 5", ErrValidation)
	ErrNegativeTimeSpent    = wrap("time spent must not be negative", ErrValidation)
	ErrInvalidSessionType   = wrap("invalid session type", ErrValidation)
	ErrSessionAlreadyClosed = wrap("session already completed", ErrValidation)
)

type wrappedError struct {
	msg  string
	kind error
}

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.kind }

func wrap(msg string, kind error) error {
	return &wrappedError{msg: msg, kind: kind}
}

// InvariantError reports a derived value escaping its defined range.
// It signals a modeling bug, never bad user input.
type InvariantError struct {
	Quantity string
	Value    float64
}

func (e *InvariantError) Error() string {
	return "computation invariant violated: " + e.Quantity + " out of range"
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
