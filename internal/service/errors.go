package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds returned by the order service. Match with errors.Is.
var (
	ErrValidation       = errors.New("invalid request")
	ErrPersistence      = errors.New("storage failure")
	ErrInvalidOTP       = errors.New("otp does not match")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrTimeout          = errors.New("storage timed out, please retry")
	ErrConcurrentUpdate = errors.New("order changed, please retry")
)

// ValidationError is a rejected input. It matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Validation failures.
var (
	ErrEmptyCart        = invalid("cart is empty")
	ErrNoSlot           = invalid("time_slot is required")
	ErrSlotUnavailable  = invalid("time slot is not available for this cart, please pick another")
	ErrInvalidQuantity  = invalid(fmt.Sprintf("quantity must be between 1 and %d", maxLineQuantity))
	ErrItemUnavailable  = invalid("menu item is not available")
	ErrMalformedOTP     = invalid("otp must be 6 digits")
	ErrInvalidStatus    = invalid("invalid status")
	ErrInvalidPageLimit = invalid("invalid limit or offset")
)

// storeErr classifies a store failure for operation op.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err):
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// isUniqueConflict reports a unique violation (pgconn error code 23505) on
// one of the named constraints.
func isUniqueConflict(err error, constraints ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	for _, c := range constraints {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}
