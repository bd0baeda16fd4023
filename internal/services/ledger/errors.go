package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the referenced user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientPoints is returned when a spend would drive the balance negative
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInvalidAmount is returned for zero or negative point amounts
	ErrInvalidAmount = errors.New("points amount must be positive")

	// ErrInvalidType is returned for unknown transaction types
	ErrInvalidType = errors.New("unknown transaction type")

	// ErrSelfReferral is returned when a user is attributed as their own referrer
	ErrSelfReferral = errors.New("referrer and referred user must be distinct")

	// ErrDuplicateReferral is returned when the referred user already has a
	// completed referral attribution
	ErrDuplicateReferral = errors.New("referral already processed for this user")
)

// Error wraps a data-store failure during a ledger operation. Callers may
// treat it as retryable; the ledger itself performs no internal retry.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapErr wraps a store error, passing sentinel errors through untouched
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrInsufficientPoints),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrSelfReferral),
		errors.Is(err, ErrDuplicateReferral):
		return err
	}
	return &Error{Op: op, Err: err}
}
