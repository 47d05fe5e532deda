package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/canteen-pickup/api/internal/cart"
	"github.com/canteen-pickup/api/internal/database"
	"github.com/canteen-pickup/api/internal/enum"
	"github.com/canteen-pickup/api/internal/events"
	"github.com/canteen-pickup/api/internal/lifecycle"
	"github.com/canteen-pickup/api/internal/otp"
	"github.com/canteen-pickup/api/internal/slot"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	maxCreateRetries = 3
	maxLineQuantity  = 99

	tokenConstraint = "orders_pickup_date_token_key"
	otpConstraint   = "orders_active_otp_key"

	defaultIOTimeout = 5 * time.Second
)

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.MenuItem, error)
	ListTimeSlots(ctx context.Context) ([]database.TimeSlot, error)
	GetNextToken(ctx context.Context, pickupDate time.Time) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItems(ctx context.Context, orderID uuid.UUID, lines []database.CreateOrderItemParams) ([]database.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListAwaitingPickup(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	VerifyOrderOTP(ctx context.Context, arg database.VerifyOrderOTPParams) (database.Order, error)
	UpdateOrderOTP(ctx context.Context, arg database.UpdateOrderOTPParams) (database.Order, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	CountOrdersByStatus(ctx context.Context, since time.Time) ([]database.CountOrdersByStatusRow, error)
}

// SlotLoads records made-to-order units committed per slot per day.
// Satisfied by *slotload.Tracker.
type SlotLoads interface {
	Reserve(ctx context.Context, day time.Time, slotTime string, units, capacity int) (bool, error)
	Release(ctx context.Context, day time.Time, slotTime string, units int) error
	Loads(ctx context.Context, day time.Time, slotTimes []string) (map[string]int, error)
}

// Options tune an OrderService. Zero values pick the defaults.
type Options struct {
	// IOTimeout bounds every store call.
	IOTimeout time.Duration
	// Location decides the pickup day and the upcoming-window clock.
	Location *time.Location
	// TrackLoads makes slot admission use recorded loads instead of the
	// half-capacity estimate. Needs a SlotLoads.
	TrackLoads bool
}

// OrderService handles order business logic.
type OrderService struct {
	store    OrderStore
	loads    SlotLoads
	notifier events.Notifier
	timeout  time.Duration
	loc      *time.Location
	tracked  bool

	now    func() time.Time
	newOTP func() (string, error)
}

// NewOrderService creates a new OrderService. loads and notifier may be nil.
func NewOrderService(store OrderStore, loads SlotLoads, notifier events.Notifier, opts Options) *OrderService {
	s := &OrderService{
		store:    store,
		loads:    loads,
		notifier: notifier,
		timeout:  opts.IOTimeout,
		loc:      opts.Location,
		tracked:  opts.TrackLoads && loads != nil,
		now:      time.Now,
		newOTP:   otp.Generate,
	}
	if s.timeout <= 0 {
		s.timeout = defaultIOTimeout
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.notifier == nil {
		s.notifier = events.Fanout(nil)
	}
	return s
}

// Viewer is the authenticated caller of a read.
type Viewer struct {
	UserID uuid.UUID
	Role   string
}

func (v Viewer) Staff() bool { return v.Role == enum.RoleAdmin }

// LineRequest is one cart line as submitted by the client.
type LineRequest struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// CreateOrderRequest is the checkout input.
type CreateOrderRequest struct {
	UserID   uuid.UUID
	TimeSlot string
	Notes    string
	Lines    []LineRequest
}

// OrderResult is an order with its lines.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

func (s *OrderService) io(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// today returns midnight of the current pickup day.
func (s *OrderService) today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

// buildCart rebuilds the cart from the authoritative menu. Unknown or
// unavailable items are rejected.
func (s *OrderService) buildCart(ctx context.Context, lines []LineRequest) (*cart.Cart, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 || l.Quantity > maxLineQuantity {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidQuantity)
		}
		if !seen[l.MenuItemID] {
			seen[l.MenuItemID] = true
			ids = append(ids, l.MenuItemID)
		}
	}

	ictx, cancel := s.io(ctx)
	items, err := s.store.GetMenuItemsByIDs(ictx, ids)
	cancel()
	if err != nil {
		return nil, storeErr("get menu items", err)
	}
	menu := make(map[uuid.UUID]database.MenuItem, len(items))
	for _, it := range items {
		menu[it.ID] = it
	}

	c := cart.New()
	for i, l := range lines {
		it, ok := menu[l.MenuItemID]
		if !ok || !it.Available {
			return nil, fmt.Errorf("line[%d] %s: %w", i, l.MenuItemID, ErrItemUnavailable)
		}
		snap := cart.Item{
			MenuItemID: it.ID,
			Name:       it.Name,
			Price:      int64(it.Price),
			IsVeg:      it.IsVeg,
			Type:       it.Type,
		}
		for q := 0; q < l.Quantity; q++ {
			c.Add(snap)
		}
	}
	for _, line := range c.Lines() {
		if line.Quantity > maxLineQuantity {
			return nil, ErrInvalidQuantity
		}
	}
	return c, nil
}

// CreateOrder validates the cart against the menu and the selected slot,
// inserts the order header and then all its lines. When the lines cannot be
// stored the header is deleted again so no order is left without items.
// Retries up to maxCreateRetries times when the generated token or OTP
// collides with another order.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	c, err := s.buildCart(ctx, req.Lines)
	if err != nil {
		return nil, err
	}
	if req.TimeSlot == "" {
		return nil, ErrNoSlot
	}

	day := s.today()
	units := c.MadeToOrderUnits()

	slots, err := s.listSlots(ctx)
	if err != nil {
		return nil, err
	}
	admitted := slot.Admit(slots, units, s.estimator(ctx, day, slots))
	if _, ok := slot.Reconcile(admitted, req.TimeSlot); !ok {
		return nil, ErrSlotUnavailable
	}
	chosen, _ := slot.Find(slots, req.TimeSlot)

	reserved, err := s.reserve(ctx, day, chosen, units)
	if err != nil {
		return nil, err
	}

	result, err := s.insertOrder(ctx, req, c, day, reserved)
	if err != nil {
		if reserved {
			s.release(ctx, day, chosen.Time, units)
		}
		return nil, err
	}

	s.notify(ctx, enum.EventOrderCreated, result.Order)
	return result, nil
}

func (s *OrderService) insertOrder(ctx context.Context, req CreateOrderRequest, c *cart.Cart, day time.Time, reserved bool) (*OrderResult, error) {
	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	var order database.Order
	var lastErr error
	created := false
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		code, err := s.newOTP()
		if err != nil {
			return nil, fmt.Errorf("generate otp: %w", err)
		}

		ictx, cancel := s.io(ctx)
		seq, err := s.store.GetNextToken(ictx, day)
		if err != nil {
			cancel()
			return nil, storeErr("get next token", err)
		}
		order, err = s.store.CreateOrder(ictx, database.CreateOrderParams{
			UserID:       req.UserID,
			Total:        c.Total(),
			TimeSlot:     req.TimeSlot,
			Notes:        notes,
			Token:        otp.NewToken(seq),
			Otp:          code,
			SlotReserved: reserved,
			PickupDate:   day,
		})
		cancel()
		if err == nil {
			created = true
			break
		}
		if isUniqueConflict(err, tokenConstraint, otpConstraint) {
			lastErr = err
			continue
		}
		return nil, storeErr("create order", err)
	}
	if !created {
		return nil, storeErr("create order", lastErr)
	}

	lines := c.Lines()
	params := make([]database.CreateOrderItemParams, len(lines))
	for i, l := range lines {
		params[i] = database.CreateOrderItemParams{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Price:      int32(l.Price),
			Quantity:   int32(l.Quantity),
			Type:       l.Type,
		}
	}

	ictx, cancel := s.io(ctx)
	items, err := s.store.CreateOrderItems(ictx, order.ID, params)
	cancel()
	if err == nil && len(items) != len(params) {
		err = fmt.Errorf("stored %d of %d lines", len(items), len(params))
	}
	if err != nil {
		s.rollbackOrder(ctx, order.ID)
		return nil, storeErr("create order items", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// rollbackOrder removes a header whose lines failed. It runs even when the
// caller has gone away.
func (s *OrderService) rollbackOrder(ctx context.Context, orderID uuid.UUID) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.store.DeleteOrderItemsByOrder(rctx, orderID); err != nil {
		log.Printf("ERROR: rollback order items %s: %v", orderID, err)
	}
	if err := s.store.DeleteOrder(rctx, orderID); err != nil {
		log.Printf("ERROR: rollback order %s: %v", orderID, err)
	}
}

// UpdateStatus moves an order along the lifecycle. Staff may hand a ready
// order over without the code; otp_verified then stays false.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (database.Order, error) {
	to, err := lifecycle.Parse(status)
	if err != nil {
		return database.Order{}, ErrInvalidStatus
	}

	current, err := s.getOrder(ctx, id)
	if err != nil {
		return database.Order{}, err
	}
	from := lifecycle.Status(current.Status)
	if err := lifecycle.Validate(from, to); err != nil {
		return database.Order{}, err
	}

	ictx, cancel := s.io(ctx)
	updated, err := s.store.UpdateOrderStatus(ictx, database.UpdateOrderStatusParams{
		ID:             id,
		Status:         string(to),
		ExpectedStatus: string(from),
	})
	cancel()
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrConcurrentUpdate
		}
		return database.Order{}, storeErr("update order status", err)
	}

	if to == lifecycle.Cancelled {
		s.releaseOrder(ctx, updated)
	}
	s.notify(ctx, enum.EventOrderUpdated, updated)
	return updated, nil
}

// Cancel moves an active order to cancelled.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return s.UpdateStatus(ctx, id, string(lifecycle.Cancelled))
}

// ValidateOTP confirms collection of a ready order. A wrong code changes
// nothing.
func (s *OrderService) ValidateOTP(ctx context.Context, id uuid.UUID, code string) (database.Order, error) {
	if !otp.WellFormed(code) {
		return database.Order{}, ErrMalformedOTP
	}

	order, err := s.getOrder(ctx, id)
	if err != nil {
		return database.Order{}, err
	}
	status := lifecycle.Status(order.Status)
	if status.Terminal() {
		return database.Order{}, fmt.Errorf("%w: %s", lifecycle.ErrTerminalOrder, status)
	}
	if !otp.Equal(order.Otp, code) {
		return database.Order{}, ErrInvalidOTP
	}
	if status != lifecycle.Ready {
		return database.Order{}, &lifecycle.TransitionError{From: status, To: lifecycle.Delivered}
	}

	ictx, cancel := s.io(ctx)
	verified, err := s.store.VerifyOrderOTP(ictx, database.VerifyOrderOTPParams{ID: id, Otp: code})
	cancel()
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrConcurrentUpdate
		}
		return database.Order{}, storeErr("verify otp", err)
	}

	s.notify(ctx, enum.EventOrderUpdated, verified)
	return verified, nil
}

// ResetOTP issues a fresh code for an active order. The status is untouched.
func (s *OrderService) ResetOTP(ctx context.Context, id uuid.UUID) (database.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return database.Order{}, err
	}
	if lifecycle.Status(order.Status).Terminal() {
		return database.Order{}, fmt.Errorf("%w: %s", lifecycle.ErrTerminalOrder, order.Status)
	}

	var lastErr error
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		code, err := s.newOTP()
		if err != nil {
			return database.Order{}, fmt.Errorf("generate otp: %w", err)
		}

		ictx, cancel := s.io(ctx)
		updated, err := s.store.UpdateOrderOTP(ictx, database.UpdateOrderOTPParams{ID: id, Otp: code})
		cancel()
		if err == nil {
			s.notify(ctx, enum.EventOrderUpdated, updated)
			return updated, nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrConcurrentUpdate
		}
		if isUniqueConflict(err, otpConstraint) {
			lastErr = err
			continue
		}
		return database.Order{}, storeErr("reset otp", err)
	}
	return database.Order{}, storeErr("reset otp", lastErr)
}

// GetOrder returns an order with its lines. Customers only see their own.
func (s *OrderService) GetOrder(ctx context.Context, viewer Viewer, id uuid.UUID) (*OrderResult, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Staff() && order.UserID != viewer.UserID {
		return nil, ErrForbidden
	}

	ictx, cancel := s.io(ctx)
	items, err := s.store.ListOrderItemsByOrder(ictx, id)
	cancel()
	if err != nil {
		return nil, storeErr("list order items", err)
	}
	return &OrderResult{Order: order, Items: items}, nil
}

// ListOrdersRequest filters an order listing.
type ListOrdersRequest struct {
	Status string
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ListOrders lists orders newest first: all of them for staff, the caller's
// own otherwise.
func (s *OrderService) ListOrders(ctx context.Context, viewer Viewer, req ListOrdersRequest) ([]database.Order, error) {
	if req.Limit == 0 {
		req.Limit = defaultListLimit
	}
	if req.Limit < 0 || req.Limit > maxListLimit || req.Offset < 0 {
		return nil, ErrInvalidPageLimit
	}

	arg := database.ListOrdersParams{
		Limit:  int32(req.Limit),
		Offset: int32(req.Offset),
	}
	if req.Status != "" {
		if _, err := lifecycle.Parse(req.Status); err != nil {
			return nil, ErrInvalidStatus
		}
		arg.Status = pgtype.Text{String: req.Status, Valid: true}
	}
	if !viewer.Staff() {
		arg.UserID = pgtype.UUID{Bytes: viewer.UserID, Valid: true}
	}

	ictx, cancel := s.io(ctx)
	orders, err := s.store.ListOrders(ictx, arg)
	cancel()
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return orders, nil
}

// AwaitingPickup lists the orders the validation desk still has to hand out.
func (s *OrderService) AwaitingPickup(ctx context.Context) ([]database.Order, error) {
	ictx, cancel := s.io(ctx)
	orders, err := s.store.ListAwaitingPickup(ictx)
	cancel()
	if err != nil {
		return nil, storeErr("list awaiting pickup", err)
	}
	return orders, nil
}

func (s *OrderService) getOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	ictx, cancel := s.io(ctx)
	defer cancel()
	order, err := s.store.GetOrder(ictx, id)
	if err != nil {
		return database.Order{}, storeErr("get order", err)
	}
	return order, nil
}

// reserve records the units against the slot. With tracked loads a full slot
// refuses the order; otherwise the count is informational.
func (s *OrderService) reserve(ctx context.Context, day time.Time, sl slot.Slot, units int) (bool, error) {
	if s.loads == nil || units == 0 {
		return false, nil
	}
	capacity := math.MaxInt32
	if s.tracked {
		capacity = sl.MaxOrders
	}

	ictx, cancel := s.io(ctx)
	ok, err := s.loads.Reserve(ictx, day, sl.Time, units, capacity)
	cancel()
	if err != nil {
		if s.tracked {
			return false, storeErr("reserve slot", err)
		}
		log.Printf("WARNING: record slot load %s: %v", sl.Time, err)
		return false, nil
	}
	if !ok {
		return false, ErrSlotUnavailable
	}
	return true, nil
}

func (s *OrderService) release(ctx context.Context, day time.Time, slotTime string, units int) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.loads.Release(rctx, day, slotTime, units); err != nil {
		log.Printf("WARNING: release slot load %s: %v", slotTime, err)
	}
}

// releaseOrder gives a cancelled order's made-to-order units back to its slot.
// Orders whose units were never counted have nothing to give back.
func (s *OrderService) releaseOrder(ctx context.Context, order database.Order) {
	if s.loads == nil || !order.SlotReserved {
		return
	}
	ictx, cancel := s.io(ctx)
	items, err := s.store.ListOrderItemsByOrder(ictx, order.ID)
	cancel()
	if err != nil {
		log.Printf("WARNING: list items of cancelled order %s: %v", order.ID, err)
		return
	}
	units := 0
	for _, it := range items {
		if it.Type == enum.ItemTypeMadeToOrder {
			units += int(it.Quantity)
		}
	}
	if units > 0 {
		s.release(ctx, order.PickupDate, order.TimeSlot, units)
	}
}

func (s *OrderService) notify(ctx context.Context, eventType string, order database.Order) {
	s.notifier.Notify(ctx, events.Event{
		Type:    eventType,
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  order.Status,
	})
}
