// Package cart holds the in-progress order composition: quantity-keyed lines
// with snapshotted menu data.
package cart

import (
	"github.com/canteen-pickup/api/internal/enum"
	"github.com/google/uuid"
)

// Item is the menu data snapshotted into a cart line.
type Item struct {
	MenuItemID uuid.UUID
	Name       string
	Price      int64
	IsVeg      bool
	Type       string
}

// Line is a cart entry. Quantity is always >= 1.
type Line struct {
	Item
	Quantity int
}

// Subtotal is price x quantity for the line.
func (l Line) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

func (l Line) MadeToOrder() bool {
	return l.Type == enum.ItemTypeMadeToOrder
}

// Cart is not safe for concurrent use; it belongs to a single checkout flow.
type Cart struct {
	lines map[uuid.UUID]*Line
	order []uuid.UUID
}

func New() *Cart {
	return &Cart{lines: make(map[uuid.UUID]*Line)}
}

// Add increments the line for item.MenuItemID, creating it with quantity 1
// and a snapshot of item when absent. An existing line keeps its snapshot.
func (c *Cart) Add(item Item) {
	if l, ok := c.lines[item.MenuItemID]; ok {
		l.Quantity++
		return
	}
	c.lines[item.MenuItemID] = &Line{Item: item, Quantity: 1}
	c.order = append(c.order, item.MenuItemID)
}

// Remove decrements the line for id, deleting it when the last unit goes.
// Unknown ids are ignored.
func (c *Cart) Remove(id uuid.UUID) {
	l, ok := c.lines[id]
	if !ok {
		return
	}
	if l.Quantity > 1 {
		l.Quantity--
		return
	}
	delete(c.lines, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Quantity returns the current quantity for id, 0 when absent.
func (c *Cart) Quantity(id uuid.UUID) int {
	if l, ok := c.lines[id]; ok {
		return l.Quantity
	}
	return 0
}

// Total is the sum of price x quantity over all lines.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

func (c *Cart) HasMadeToOrder() bool {
	for _, l := range c.lines {
		if l.MadeToOrder() {
			return true
		}
	}
	return false
}

// MadeToOrderUnits is the total quantity of made-to-order lines: the demand
// the cart places on a pickup slot.
func (c *Cart) MadeToOrderUnits() int {
	units := 0
	for _, l := range c.lines {
		if l.MadeToOrder() {
			units += l.Quantity
		}
	}
	return units
}

// Lines returns copies of the lines in first-added order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Clear() {
	c.lines = make(map[uuid.UUID]*Line)
	c.order = nil
}
