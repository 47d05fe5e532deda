package database

import (
	"context"

	"github.com/google/uuid"
)

const orderItemColumns = `id, order_id, menu_item_id, name, price, quantity, type, created_at`

func scanOrderItem(row interface{ Scan(...any) error }) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Name, &i.Price, &i.Quantity, &i.Type, &i.CreatedAt)
	return i, err
}

// Single statement so the lines of an order land together or not at all.
const createOrderItems = `INSERT INTO order_items (order_id, menu_item_id, name, price, quantity, type)
SELECT $1, l.menu_item_id, l.name, l.price, l.quantity, l.type
FROM unnest($2::uuid[], $3::text[], $4::int[], $5::int[], $6::text[])
    WITH ORDINALITY AS l(menu_item_id, name, price, quantity, type, ord)
ORDER BY l.ord
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	MenuItemID uuid.UUID
	Name       string
	Price      int32
	Quantity   int32
	Type       string
}

func (q *Queries) CreateOrderItems(ctx context.Context, orderID uuid.UUID, lines []CreateOrderItemParams) ([]OrderItem, error) {
	ids := make([]uuid.UUID, len(lines))
	names := make([]string, len(lines))
	prices := make([]int32, len(lines))
	quantities := make([]int32, len(lines))
	types := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.MenuItemID
		names[i] = l.Name
		prices[i] = l.Price
		quantities[i] = l.Quantity
		types[i] = l.Type
	}

	rows, err := q.db.Query(ctx, createOrderItems, orderID, ids, names, prices, quantities, types)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = $1
ORDER BY created_at, id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const deleteOrderItemsByOrder = `DELETE FROM order_items WHERE order_id = $1`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	return err
}
