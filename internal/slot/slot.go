// Package slot decides which pickup slots can be offered for a cart.
package slot

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a configured pickup window with a capacity ceiling shared by all
// made-to-order demand assigned to it.
type Slot struct {
	ID        uuid.UUID
	Time      string
	MaxOrders int
}

// Estimator returns the load already committed to a slot.
type Estimator func(s Slot) int

// HalfCapacity assumes half the slot (rounded down) is already taken. Live
// per-slot counts are not consulted.
func HalfCapacity(s Slot) int {
	return s.MaxOrders / 2
}

// Committed builds an Estimator from recorded per-slot loads keyed by slot
// time. Slots without a record have no load.
func Committed(loads map[string]int) Estimator {
	return func(s Slot) int {
		return loads[s.Time]
	}
}

// Admits reports whether s can take madeToOrderUnits more units.
func Admits(s Slot, madeToOrderUnits int, est Estimator) bool {
	if madeToOrderUnits <= 0 {
		return true
	}
	if est == nil {
		est = HalfCapacity
	}
	return est(s)+madeToOrderUnits <= s.MaxOrders
}

// Admit returns the slots that can still be offered, in input order. With no
// made-to-order units every slot is returned. An empty result is valid and
// blocks checkout.
func Admit(slots []Slot, madeToOrderUnits int, est Estimator) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if Admits(s, madeToOrderUnits, est) {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the slot with the given time label.
func Find(slots []Slot, t string) (Slot, bool) {
	for _, s := range slots {
		if s.Time == t {
			return s, true
		}
	}
	return Slot{}, false
}

// Reconcile keeps selected when it is still admitted. Otherwise it returns ""
// and false: the selection is cleared and must be made again before checkout.
func Reconcile(admitted []Slot, selected string) (string, bool) {
	if selected == "" {
		return "", false
	}
	if _, ok := Find(admitted, selected); ok {
		return selected, true
	}
	return "", false
}

const (
	upcomingStep   = 15 * time.Minute
	upcomingBuffer = 10 * time.Minute

	// UpcomingCount is the number of short-horizon slots offered by default.
	UpcomingCount = 8

	upcomingLayout = "3:04 PM"
)

// Window is a generated short-horizon pickup time.
type Window struct {
	At    time.Time `json:"at"`
	Value string    `json:"value"`
	Label string    `json:"label"`
}

// Upcoming generates n pickup windows 15 minutes apart, starting at now
// rounded up to the next quarter hour plus a 10-minute preparation buffer.
// The windows ignore configured slot capacity.
func Upcoming(now time.Time, n int) []Window {
	if n <= 0 {
		n = UpcomingCount
	}
	hour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	quarters := (now.Minute() + 14) / 15
	start := hour.Add(time.Duration(quarters)*upcomingStep + upcomingBuffer)

	out := make([]Window, n)
	for i := range out {
		at := start.Add(time.Duration(i) * upcomingStep)
		v := at.Format(upcomingLayout)
		out[i] = Window{At: at, Value: v, Label: "Pickup at " + v}
	}
	return out
}
