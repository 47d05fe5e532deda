package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, description, price, category, is_veg, type, available, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Category, &m.IsVeg, &m.Type,
		&m.Available, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *Queries) queryMenuItems(ctx context.Context, sql string, args ...interface{}) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const listMenuItems = `SELECT ` + menuItemColumns + ` FROM menu_items
WHERE ($1::text IS NULL OR category = $1)
  AND ($2::boolean IS NULL OR available = $2)
ORDER BY category, name`

type ListMenuItemsParams struct {
	Category  pgtype.Text
	Available pgtype.Bool
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	return q.queryMenuItems(ctx, listMenuItems, arg.Category, arg.Available)
}

const getMenuItemsByIDs = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = ANY($1::uuid[])`

func (q *Queries) GetMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]MenuItem, error) {
	return q.queryMenuItems(ctx, getMenuItemsByIDs, ids)
}

const listMenuCategories = `SELECT DISTINCT category FROM menu_items ORDER BY category`

func (q *Queries) ListMenuCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listMenuCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const setMenuItemAvailability = `UPDATE menu_items SET available = $2, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type SetMenuItemAvailabilityParams struct {
	ID        uuid.UUID
	Available bool
}

func (q *Queries) SetMenuItemAvailability(ctx context.Context, arg SetMenuItemAvailabilityParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, setMenuItemAvailability, arg.ID, arg.Available))
}

const createMenuItem = `INSERT INTO menu_items (name, description, price, category, is_veg, type, available)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name        string
	Description pgtype.Text
	Price       int32
	Category    string
	IsVeg       bool
	Type        string
	Available   bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem, arg.Name, arg.Description, arg.Price, arg.Category,
		arg.IsVeg, arg.Type, arg.Available)
	return scanMenuItem(row)
}
