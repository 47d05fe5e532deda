// Package events carries order change signals to interested listeners.
package events

import (
	"context"

	"github.com/google/uuid"
)

// Event says that an order changed. Listeners re-fetch the order for details.
type Event struct {
	Type    string    `json:"type"`
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
	Status  string    `json:"status"`
}

// Notifier receives order change events. Implementations must not block the
// caller on slow consumers.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Fanout delivers each event to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, e Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event)

func (fn NotifierFunc) Notify(ctx context.Context, e Event) {
	fn(ctx, e)
}
