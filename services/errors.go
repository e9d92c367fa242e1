// Package services holds the marketplace's business rules: the order
// lifecycle, the reward ledger, ratings, order chat and partner onboarding.
package services

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden      = errors.New("you are not allowed to act on this resource")
	ErrReasonRequired = errors.New("a reason is required to cancel an order")

	ErrInsufficientBalance = errors.New("insufficient reward balance")
	ErrNoQualifyingTier    = errors.New("no reward tier qualifies for this many points")

	ErrNotEligible    = errors.New("order is not eligible for rating until it is delivered")
	ErrAlreadyRated   = errors.New("this order has already been rated")
	ErrNotParticipant = fmt.Errorf("%w: only the order's participants can access it", ErrForbidden)
)

// validationError communicates rule violations back to HTTP handlers.
type validationError struct {
	message string
}

func (e validationError) Error() string { return e.message }

func newValidationError(msg string) error {
	return validationError{message: msg}
}

// IsValidation separates bad input from business and infrastructure failures.
func IsValidation(err error) bool {
	var v validationError
	return errors.As(err, &v)
}
