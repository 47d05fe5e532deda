// Package lifecycle defines the order status values and the transitions
// allowed between them.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/canteen-pickup/api/internal/enum"
)

// Status is the lifecycle state of an order.
type Status string

const (
	Placed     Status = enum.OrderStatusPlaced
	Processing Status = enum.OrderStatusProcessing
	Ready      Status = enum.OrderStatusReady
	Delivered  Status = enum.OrderStatusDelivered
	Cancelled  Status = enum.OrderStatusCancelled
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTerminalOrder     = errors.New("order is in a terminal state")
	ErrUnknownStatus     = errors.New("unknown order status")
)

// TransitionError describes a rejected transition. It matches
// ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
// Terminal statuses have no entry.
var allowedTransitions = map[Status][]Status{
	Placed:     {Processing, Cancelled},
	Processing: {Ready, Cancelled},
	Ready:      {Delivered, Cancelled},
}

// Parse converts a raw status string, rejecting values outside the enum.
func Parse(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case Placed, Processing, Ready, Delivered, Cancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == Delivered || s == Cancelled
}

// Active reports whether the order is still awaiting pickup.
func (s Status) Active() bool {
	return s.Valid() && !s.Terminal()
}

// Next returns the statuses reachable from s in one step.
func (s Status) Next() []Status {
	next := allowedTransitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Validate checks from -> to against the transition table. Leaving a terminal
// status yields ErrTerminalOrder; any other illegal pair yields a
// *TransitionError.
func Validate(from, to Status) error {
	if !from.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminalOrder, from)
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
