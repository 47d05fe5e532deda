package database

import (
	"context"

	"github.com/google/uuid"
)

const timeSlotColumns = `id, time, max_orders, created_at, updated_at`

func scanTimeSlot(row interface{ Scan(...any) error }) (TimeSlot, error) {
	var s TimeSlot
	err := row.Scan(&s.ID, &s.Time, &s.MaxOrders, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const listTimeSlots = `SELECT ` + timeSlotColumns + ` FROM time_slots ORDER BY time`

func (q *Queries) ListTimeSlots(ctx context.Context) ([]TimeSlot, error) {
	rows, err := q.db.Query(ctx, listTimeSlots)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TimeSlot{}
	for rows.Next() {
		s, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const createTimeSlot = `INSERT INTO time_slots (time, max_orders) VALUES ($1, $2)
RETURNING ` + timeSlotColumns

type CreateTimeSlotParams struct {
	Time      string
	MaxOrders int32
}

func (q *Queries) CreateTimeSlot(ctx context.Context, arg CreateTimeSlotParams) (TimeSlot, error) {
	return scanTimeSlot(q.db.QueryRow(ctx, createTimeSlot, arg.Time, arg.MaxOrders))
}

const updateTimeSlot = `UPDATE time_slots SET time = $2, max_orders = $3, updated_at = now()
WHERE id = $1
RETURNING ` + timeSlotColumns

type UpdateTimeSlotParams struct {
	ID        uuid.UUID
	Time      string
	MaxOrders int32
}

func (q *Queries) UpdateTimeSlot(ctx context.Context, arg UpdateTimeSlotParams) (TimeSlot, error) {
	return scanTimeSlot(q.db.QueryRow(ctx, updateTimeSlot, arg.ID, arg.Time, arg.MaxOrders))
}
