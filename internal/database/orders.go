package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, total, status, time_slot, notes, token, otp, otp_verified,
    slot_reserved, pickup_date, placed_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.TimeSlot, &o.Notes, &o.Token, &o.Otp,
		&o.OtpVerified, &o.SlotReserved, &o.PickupDate, &o.PlacedAt, &o.UpdatedAt)
	return o, err
}

func (q *Queries) queryOrders(ctx context.Context, sql string, args ...interface{}) ([]Order, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const getNextToken = `SELECT (COALESCE(MAX(token::int), 0) + 1)::int
FROM orders WHERE pickup_date = $1`

// GetNextToken returns the next pickup token sequence number for the day.
func (q *Queries) GetNextToken(ctx context.Context, pickupDate time.Time) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, getNextToken, pgtype.Date{Time: pickupDate, Valid: true}).Scan(&next)
	return next, err
}

const createOrder = `INSERT INTO orders (user_id, total, status, time_slot, notes, token, otp, otp_verified,
    slot_reserved, pickup_date)
VALUES ($1, $2, 'placed', $3, $4, $5, $6, false, $7, $8)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID       uuid.UUID
	Total        int64
	TimeSlot     string
	Notes        pgtype.Text
	Token        string
	Otp          string
	SlotReserved bool
	PickupDate   time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.UserID, arg.Total, arg.TimeSlot, arg.Notes, arg.Token,
		arg.Otp, arg.SlotReserved, pgtype.Date{Time: arg.PickupDate, Valid: true})
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE ($1::uuid IS NULL OR user_id = $1)
  AND ($2::text IS NULL OR status = $2)
ORDER BY placed_at DESC
LIMIT $3 OFFSET $4`

type ListOrdersParams struct {
	UserID pgtype.UUID
	Status pgtype.Text
	Limit  int32
	Offset int32
}

// ListOrders lists orders newest first. A null UserID lists every customer's orders.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	return q.queryOrders(ctx, listOrders, arg.UserID, arg.Status, arg.Limit, arg.Offset)
}

const listAwaitingPickup = `SELECT ` + orderColumns + ` FROM orders
WHERE status IN ('placed', 'processing', 'ready') AND otp_verified = false
ORDER BY placed_at`

func (q *Queries) ListAwaitingPickup(ctx context.Context) ([]Order, error) {
	return q.queryOrders(ctx, listAwaitingPickup)
}

const updateOrderStatus = `UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
	// ExpectedStatus guards against a concurrent transition between read and write.
	ExpectedStatus string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.ExpectedStatus))
}

const verifyOrderOTP = `UPDATE orders SET status = 'delivered', otp_verified = true, updated_at = now()
WHERE id = $1 AND status = 'ready' AND otp = $2
RETURNING ` + orderColumns

type VerifyOrderOTPParams struct {
	ID  uuid.UUID
	Otp string
}

// VerifyOrderOTP marks a ready order delivered when the code still matches.
func (q *Queries) VerifyOrderOTP(ctx context.Context, arg VerifyOrderOTPParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, verifyOrderOTP, arg.ID, arg.Otp))
}

const updateOrderOTP = `UPDATE orders SET otp = $2, otp_verified = false, updated_at = now()
WHERE id = $1 AND status IN ('placed', 'processing', 'ready')
RETURNING ` + orderColumns

type UpdateOrderOTPParams struct {
	ID  uuid.UUID
	Otp string
}

func (q *Queries) UpdateOrderOTP(ctx context.Context, arg UpdateOrderOTPParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderOTP, arg.ID, arg.Otp))
}

const deleteOrder = `DELETE FROM orders WHERE id = $1`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrder, id)
	return err
}

const countOrdersByStatus = `SELECT status, COUNT(*)::bigint, COALESCE(SUM(total), 0)::bigint
FROM orders
WHERE placed_at >= $1
GROUP BY status`

type CountOrdersByStatusRow struct {
	Status string
	Count  int64
	Total  int64
}

func (q *Queries) CountOrdersByStatus(ctx context.Context, since time.Time) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountOrdersByStatusRow{}
	for rows.Next() {
		var r CountOrdersByStatusRow
		if err := rows.Scan(&r.Status, &r.Count, &r.Total); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
