package lifecycle

import (
	"errors"
	"testing"
)

func TestValidate_TransitionTable(t *testing.T) {
	all := []Status{Placed, Processing, Ready, Delivered, Cancelled}
	allowed := map[[2]Status]bool{
		{Placed, Processing}:    true,
		{Placed, Cancelled}:     true,
		{Processing, Ready}:     true,
		{Processing, Cancelled}: true,
		{Ready, Delivered}:      true,
		{Ready, Cancelled}:      true,
	}

	for _, from := range all {
		for _, to := range all {
			err := Validate(from, to)
			want := allowed[[2]Status{from, to}]
			if want && err != nil {
				t.Errorf("%s -> %s: unexpected error %v", from, to, err)
			}
			if !want && err == nil {
				t.Errorf("%s -> %s: expected rejection", from, to)
			}
		}
	}
}

func TestValidate_SkippingProcessingRejected(t *testing.T) {
	err := Validate(Placed, Ready)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.From != Placed || te.To != Ready {
		t.Errorf("transition: got %s -> %s", te.From, te.To)
	}
}

func TestValidate_TerminalStates(t *testing.T) {
	for _, from := range []Status{Delivered, Cancelled} {
		for _, to := range []Status{Placed, Processing, Ready, Delivered, Cancelled} {
			err := Validate(from, to)
			if !errors.Is(err, ErrTerminalOrder) {
				t.Errorf("%s -> %s: expected ErrTerminalOrder, got %v", from, to, err)
			}
			if errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: terminal error should not match ErrInvalidTransition", from, to)
			}
		}
	}
}

func TestValidate_UnknownStatus(t *testing.T) {
	if err := Validate("NEW", Processing); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus for from, got %v", err)
	}
	if err := Validate(Placed, "COOKING"); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus for to, got %v", err)
	}
}

func TestParse(t *testing.T) {
	st, err := Parse("ready")
	if err != nil || st != Ready {
		t.Fatalf("parse ready: got %q, %v", st, err)
	}
	if _, err := Parse("READY"); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestStatusPredicates(t *testing.T) {
	if !Delivered.Terminal() || !Cancelled.Terminal() {
		t.Error("delivered and cancelled must be terminal")
	}
	for _, s := range []Status{Placed, Processing, Ready} {
		if s.Terminal() || !s.Active() {
			t.Errorf("%s should be active", s)
		}
	}
	if len(Delivered.Next()) != 0 {
		t.Errorf("delivered next: got %v", Delivered.Next())
	}
	next := Placed.Next()
	next[0] = Delivered
	if Placed.Next()[0] != Processing {
		t.Error("Next must return a copy of the table entry")
	}
}
