package service

import (
	"context"
	"log"
	"time"

	"github.com/canteen-pickup/api/internal/slot"
)

func (s *OrderService) listSlots(ctx context.Context) ([]slot.Slot, error) {
	ictx, cancel := s.io(ctx)
	rows, err := s.store.ListTimeSlots(ictx)
	cancel()
	if err != nil {
		return nil, storeErr("list time slots", err)
	}
	slots := make([]slot.Slot, len(rows))
	for i, r := range rows {
		slots[i] = slot.Slot{ID: r.ID, Time: r.Time, MaxOrders: int(r.MaxOrders)}
	}
	return slots, nil
}

// estimator picks the committed-load estimate for day. Recorded loads are used
// only when tracking is on; a failed read falls back to the heuristic.
func (s *OrderService) estimator(ctx context.Context, day time.Time, slots []slot.Slot) slot.Estimator {
	if !s.tracked {
		return slot.HalfCapacity
	}
	times := make([]string, len(slots))
	for i, sl := range slots {
		times[i] = sl.Time
	}

	ictx, cancel := s.io(ctx)
	loads, err := s.loads.Loads(ictx, day, times)
	cancel()
	if err != nil {
		log.Printf("WARNING: read slot loads, using half capacity: %v", err)
		return slot.HalfCapacity
	}
	return slot.Committed(loads)
}

// AvailabilityRequest asks which slots can serve a cart.
type AvailabilityRequest struct {
	Lines    []LineRequest
	Selected string
}

// Availability is the slot decision for a cart.
type Availability struct {
	Slots            []slot.Slot
	MadeToOrderUnits int
	Total            int64
	// Selected echoes the request when it is still admitted and is empty
	// otherwise; SelectionValid is false when the client must pick again.
	Selected       string
	SelectionValid bool
}

// Availability filters the configured slots for the cart. An empty cart
// leaves every slot open.
func (s *OrderService) Availability(ctx context.Context, req AvailabilityRequest) (*Availability, error) {
	units := 0
	var total int64
	if len(req.Lines) > 0 {
		c, err := s.buildCart(ctx, req.Lines)
		if err != nil {
			return nil, err
		}
		units = c.MadeToOrderUnits()
		total = c.Total()
	}

	slots, err := s.listSlots(ctx)
	if err != nil {
		return nil, err
	}
	admitted := slot.Admit(slots, units, s.estimator(ctx, s.today(), slots))

	out := &Availability{
		Slots:            admitted,
		MadeToOrderUnits: units,
		Total:            total,
	}
	if req.Selected != "" {
		out.Selected, out.SelectionValid = slot.Reconcile(admitted, req.Selected)
	}
	return out, nil
}

// Upcoming returns the short-horizon pickup windows from now.
func (s *OrderService) Upcoming() []slot.Window {
	return slot.Upcoming(s.now().In(s.loc), slot.UpcomingCount)
}
