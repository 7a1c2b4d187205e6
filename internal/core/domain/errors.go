package domain

import "errors"

var (
	// ErrNotFound covers missing orders, shipments, master data and
	// inventory rows. Client error, never retried.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput covers missing required fields, non-positive
	// quantities and direction-inconsistent references.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIllegalTransition is returned when a status change is not
	// permitted from the current state, including terminal states.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrInsufficientStock is returned when an inventory row cannot
	// satisfy a required deduction. No partial mutation occurs.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrLockTimeout is a transient failure: a row lock could not be
	// acquired in time. The whole transition is safe to retry.
	ErrLockTimeout = errors.New("lock wait timeout")
)
