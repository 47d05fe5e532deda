package slot

import (
	"testing"
	"time"
)

func slots(caps ...int) []Slot {
	times := []string{"11:30", "12:00", "12:30", "13:00", "13:30", "14:00"}
	out := make([]Slot, len(caps))
	for i, c := range caps {
		out[i] = Slot{Time: times[i], MaxOrders: c}
	}
	return out
}

func TestAdmit_NoMadeToOrderAdmitsAll(t *testing.T) {
	in := slots(1, 2, 3, 25)
	got := Admit(in, 0, HalfCapacity)
	if len(got) != len(in) {
		t.Fatalf("admitted: got %d, want %d", len(got), len(in))
	}
}

func TestAdmit_Threshold(t *testing.T) {
	// floor(max/2) + units <= max  <=>  units <= max - floor(max/2)
	tests := []struct {
		max   int
		units int
		want  bool
	}{
		{max: 25, units: 2, want: true},
		{max: 25, units: 13, want: true},
		{max: 25, units: 14, want: false},
		{max: 10, units: 5, want: true},
		{max: 10, units: 6, want: false},
		{max: 1, units: 1, want: true},
		{max: 1, units: 2, want: false},
	}
	for _, tc := range tests {
		s := Slot{Time: "12:00", MaxOrders: tc.max}
		if got := Admits(s, tc.units, HalfCapacity); got != tc.want {
			t.Errorf("max=%d units=%d: got %v, want %v", tc.max, tc.units, got, tc.want)
		}
	}
}

func TestAdmit_CrossingThresholdRemovesOnlyThatSlot(t *testing.T) {
	in := slots(10, 20, 30)
	// Thresholds: 10 -> 5, 20 -> 10, 30 -> 15.
	at5 := Admit(in, 5, HalfCapacity)
	at6 := Admit(in, 6, HalfCapacity)
	if len(at5) != 3 {
		t.Fatalf("units=5: got %d slots, want 3", len(at5))
	}
	if len(at6) != 2 || at6[0].Time != "12:00" || at6[1].Time != "12:30" {
		t.Fatalf("units=6: got %+v", at6)
	}
}

func TestAdmit_PreservesOrder(t *testing.T) {
	in := slots(30, 4, 30, 4, 30)
	got := Admit(in, 3, HalfCapacity)
	want := []string{"11:30", "12:30", "13:30"}
	if len(got) != len(want) {
		t.Fatalf("admitted: got %+v", got)
	}
	for i := range want {
		if got[i].Time != want[i] {
			t.Errorf("slot %d: got %s, want %s", i, got[i].Time, want[i])
		}
	}
}

func TestAdmit_EmptyResultIsValid(t *testing.T) {
	got := Admit(slots(2, 2), 5, HalfCapacity)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestAdmit_NilEstimatorUsesHalfCapacity(t *testing.T) {
	if Admits(Slot{MaxOrders: 10}, 6, nil) {
		t.Error("nil estimator should fall back to half capacity")
	}
}

func TestAdmit_CommittedEstimator(t *testing.T) {
	in := slots(10, 10)
	est := Committed(map[string]int{"11:30": 9})
	got := Admit(in, 2, est)
	if len(got) != 1 || got[0].Time != "12:00" {
		t.Fatalf("admitted: got %+v", got)
	}
}

func TestScenario_SlotOf25(t *testing.T) {
	s := Slot{Time: "12:30", MaxOrders: 25}
	if HalfCapacity(s) != 12 {
		t.Fatalf("estimated load: got %d, want 12", HalfCapacity(s))
	}
	if !Admits(s, 2, HalfCapacity) {
		t.Error("expected slot admitted for 2 units")
	}
}

func TestReconcile(t *testing.T) {
	admitted := slots(10, 10)
	if sel, ok := Reconcile(admitted, "12:00"); !ok || sel != "12:00" {
		t.Errorf("kept selection: got %q, %v", sel, ok)
	}
	if sel, ok := Reconcile(admitted, "13:00"); ok || sel != "" {
		t.Errorf("dropped selection: got %q, %v", sel, ok)
	}
	if _, ok := Reconcile(admitted, ""); ok {
		t.Error("empty selection must require re-selection")
	}
}

func TestUpcoming(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name  string
		now   time.Time
		first string
		last  string
	}{
		{"mid quarter", time.Date(2026, 10, 15, 12, 7, 30, 0, loc), "12:25 PM", "2:10 PM"},
		{"on boundary", time.Date(2026, 10, 15, 12, 15, 0, 0, loc), "12:25 PM", "2:10 PM"},
		{"hour rollover", time.Date(2026, 10, 15, 11, 50, 0, 0, loc), "12:10 PM", "1:55 PM"},
		{"top of hour", time.Date(2026, 10, 15, 9, 0, 0, 0, loc), "9:10 AM", "10:55 AM"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Upcoming(tc.now, 0)
			if len(got) != UpcomingCount {
				t.Fatalf("count: got %d, want %d", len(got), UpcomingCount)
			}
			if got[0].Value != tc.first {
				t.Errorf("first: got %s, want %s", got[0].Value, tc.first)
			}
			if got[len(got)-1].Value != tc.last {
				t.Errorf("last: got %s, want %s", got[len(got)-1].Value, tc.last)
			}
			for i := 1; i < len(got); i++ {
				if d := got[i].At.Sub(got[i-1].At); d != 15*time.Minute {
					t.Errorf("spacing %d: got %v", i, d)
				}
			}
			if got[0].Label != "Pickup at "+tc.first {
				t.Errorf("label: got %q", got[0].Label)
			}
		})
	}
}
