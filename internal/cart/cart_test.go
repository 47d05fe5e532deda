package cart

import (
	"testing"

	"github.com/canteen-pickup/api/internal/enum"
	"github.com/google/uuid"
)

func item(price int64, typ string) Item {
	return Item{MenuItemID: uuid.New(), Name: "item", Price: price, Type: typ}
}

func TestAdd_IncrementsExistingLine(t *testing.T) {
	c := New()
	dosa := item(60, enum.ItemTypeMadeToOrder)

	c.Add(dosa)
	c.Add(dosa)

	if c.Len() != 1 {
		t.Fatalf("lines: got %d, want 1", c.Len())
	}
	if got := c.Quantity(dosa.MenuItemID); got != 2 {
		t.Errorf("quantity: got %d, want 2", got)
	}
}

func TestAdd_KeepsFirstSnapshot(t *testing.T) {
	c := New()
	tea := item(15, enum.ItemTypeImmediate)
	c.Add(tea)

	repriced := tea
	repriced.Price = 99
	c.Add(repriced)

	if got := c.Total(); got != 30 {
		t.Errorf("total: got %d, want 30", got)
	}
}

func TestRemove_DeletesLastUnit(t *testing.T) {
	c := New()
	tea := item(15, enum.ItemTypeImmediate)
	c.Add(tea)
	c.Remove(tea.MenuItemID)

	if !c.Empty() {
		t.Fatalf("expected empty cart, got %d lines", c.Len())
	}
	if got := c.Quantity(tea.MenuItemID); got != 0 {
		t.Errorf("quantity: got %d, want 0", got)
	}
}

func TestRemove_MissingIsNoop(t *testing.T) {
	c := New()
	tea := item(15, enum.ItemTypeImmediate)
	c.Add(tea)

	c.Remove(uuid.New())

	if c.Len() != 1 || c.Quantity(tea.MenuItemID) != 1 {
		t.Errorf("cart changed after removing unknown id: %+v", c.Lines())
	}
}

func TestAddRemove_InversePair(t *testing.T) {
	c := New()
	a := item(40, enum.ItemTypeImmediate)
	b := item(120, enum.ItemTypeMadeToOrder)
	c.Add(a)
	c.Add(b)
	c.Add(b)

	before := c.Lines()
	beforeTotal := c.Total()

	for _, it := range []Item{a, b, item(5, enum.ItemTypeImmediate)} {
		c.Add(it)
		c.Remove(it.MenuItemID)
	}

	after := c.Lines()
	if len(after) != len(before) {
		t.Fatalf("lines: got %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].MenuItemID != before[i].MenuItemID || after[i].Quantity != before[i].Quantity {
			t.Errorf("line %d: got %+v, want %+v", i, after[i], before[i])
		}
	}
	if c.Total() != beforeTotal {
		t.Errorf("total: got %d, want %d", c.Total(), beforeTotal)
	}
}

func TestTotal_IncreasesByPrice(t *testing.T) {
	c := New()
	prices := []int64{120, 20, 20, 75, 120}
	items := map[int64]Item{}
	var want int64
	for _, p := range prices {
		it, ok := items[p]
		if !ok {
			it = item(p, enum.ItemTypeImmediate)
			items[p] = it
		}
		before := c.Total()
		c.Add(it)
		if got := c.Total() - before; got != p {
			t.Errorf("adding price %d increased total by %d", p, got)
		}
		want += p
	}
	if c.Total() != want {
		t.Errorf("total: got %d, want %d", c.Total(), want)
	}
}

func TestScenario_MixedCart(t *testing.T) {
	c := New()
	thali := item(120, enum.ItemTypeMadeToOrder)
	juice := item(20, enum.ItemTypeImmediate)
	c.Add(thali)
	c.Add(thali)
	for i := 0; i < 3; i++ {
		c.Add(juice)
	}

	if got := c.Total(); got != 300 {
		t.Errorf("total: got %d, want 300", got)
	}
	if got := c.MadeToOrderUnits(); got != 2 {
		t.Errorf("made-to-order units: got %d, want 2", got)
	}
	if !c.HasMadeToOrder() {
		t.Error("expected HasMadeToOrder")
	}
}

func TestHasMadeToOrder_ImmediateOnly(t *testing.T) {
	c := New()
	c.Add(item(10, enum.ItemTypeImmediate))
	if c.HasMadeToOrder() {
		t.Error("immediate-only cart reported made-to-order")
	}
	if c.MadeToOrderUnits() != 0 {
		t.Errorf("units: got %d, want 0", c.MadeToOrderUnits())
	}
}

func TestLines_InsertionOrderAndClear(t *testing.T) {
	c := New()
	a, b, d := item(1, enum.ItemTypeImmediate), item(2, enum.ItemTypeImmediate), item(3, enum.ItemTypeImmediate)
	c.Add(a)
	c.Add(b)
	c.Add(d)
	c.Remove(b.MenuItemID)

	lines := c.Lines()
	if len(lines) != 2 || lines[0].MenuItemID != a.MenuItemID || lines[1].MenuItemID != d.MenuItemID {
		t.Fatalf("lines order: %+v", lines)
	}

	c.Clear()
	if !c.Empty() || c.Total() != 0 {
		t.Errorf("cart not cleared: %+v", c.Lines())
	}
}
