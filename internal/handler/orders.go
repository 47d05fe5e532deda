package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/canteen-pickup/api/internal/database"
	"github.com/canteen-pickup/api/internal/lifecycle"
	"github.com/canteen-pickup/api/internal/middleware"
	"github.com/canteen-pickup/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	GetOrder(ctx context.Context, viewer service.Viewer, id uuid.UUID) (*service.OrderResult, error)
	ListOrders(ctx context.Context, viewer service.Viewer, req service.ListOrdersRequest) ([]database.Order, error)
	AwaitingPickup(ctx context.Context) ([]database.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (database.Order, error)
	Cancel(ctx context.Context, id uuid.UUID) (database.Order, error)
	ValidateOTP(ctx context.Context, id uuid.UUID, code string) (database.Order, error)
	ResetOTP(ctx context.Context, id uuid.UUID) (database.Order, error)
	Stats(ctx context.Context) (*service.Stats, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints. Expected to be mounted at /orders
// behind Authenticate.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/active", h.Active)
		r.Get("/stats", h.Stats)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Delete("/{id}", h.Cancel)
		r.Post("/{id}/verify", h.Verify)
		r.Post("/{id}/otp/reset", h.ResetOTP)
	})

	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type orderLineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type createOrderRequest struct {
	TimeSlot string             `json:"time_slot"`
	Notes    string             `json:"notes"`
	Items    []orderLineRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type verifyRequest struct {
	Otp string `json:"otp"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	Total       int64               `json:"total"`
	Status      string              `json:"status"`
	TimeSlot    string              `json:"time_slot"`
	Notes       *string             `json:"notes"`
	Token       string              `json:"token"`
	Otp         string              `json:"otp,omitempty"`
	OtpVerified bool                `json:"otp_verified"`
	PickupDate  string              `json:"pickup_date"`
	PlacedAt    time.Time           `json:"placed_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Items       []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Price      int32     `json:"price"`
	Quantity   int32     `json:"quantity"`
	Type       string    `json:"type"`
	Subtotal   int64     `json:"subtotal"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type statsResponse struct {
	Since             time.Time        `json:"since"`
	ByStatus          map[string]int64 `json:"by_status"`
	Orders            int64            `json:"orders"`
	Active            int64            `json:"active"`
	Revenue           string           `json:"revenue"`
	AverageOrderValue string           `json:"average_order_value"`
}

// --- Handlers ---

// Create places an order for the caller from the posted cart.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	lines, msg := parseLines(req.Items)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID:   claims.UserID,
		TimeSlot: req.TimeSlot,
		Notes:    req.Notes,
		Lines:    lines,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Items, true))
}

// List returns the caller's orders, or every order for staff.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	viewer := service.Viewer{UserID: claims.UserID, Role: claims.Role}

	limit, offset := 50, 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = v
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return
		}
		offset = v
	}

	orders, err := h.svc.ListOrders(r.Context(), viewer, service.ListOrdersRequest{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil, o.UserID == claims.UserID)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get returns one order with its lines. The OTP is only shown to the owner.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.GetOrder(r.Context(), service.Viewer{UserID: claims.UserID, Role: claims.Role}, orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, result.Items, result.Order.UserID == claims.UserID))
}

// Active lists orders still awaiting pickup for the validation desk.
func (h *OrderHandler) Active(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.AwaitingPickup(r.Context())
	if err != nil {
		writeServiceError(w, "list active orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil, false)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, "order stats", err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Since:             st.Since,
		ByStatus:          st.ByStatus,
		Orders:            st.Orders,
		Active:            st.Active,
		Revenue:           st.Revenue.StringFixed(2),
		AverageOrderValue: st.AverageOrderValue.StringFixed(2),
	})
}

// UpdateStatus moves an order along its lifecycle.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated, nil, false))
}

// Cancel handles DELETE /orders/{id}. The order is kept with status cancelled.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	cancelled, err := h.svc.Cancel(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(cancelled, nil, false))
}

// Verify hands a ready order over when the customer's OTP matches.
func (h *OrderHandler) Verify(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	delivered, err := h.svc.ValidateOTP(r.Context(), orderID, req.Otp)
	if err != nil {
		writeServiceError(w, "verify otp", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(delivered, nil, false))
}

// ResetOTP issues a new code; the customer sees it on their order.
func (h *OrderHandler) ResetOTP(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.ResetOTP(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "reset otp", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated, nil, false))
}

// --- Helpers ---

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseLines converts posted cart lines; the message is non-empty on failure.
func parseLines(items []orderLineRequest) ([]service.LineRequest, string) {
	lines := make([]service.LineRequest, len(items))
	for i, it := range items {
		id, err := uuid.Parse(it.MenuItemID)
		if err != nil {
			return nil, fmt.Sprintf("items[%d]: invalid menu_item_id", i)
		}
		lines[i] = service.LineRequest{MenuItemID: id, Quantity: it.Quantity}
	}
	return lines, ""
}

// writeServiceError maps service error kinds to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied for this order"})
	case errors.Is(err, service.ErrInvalidOTP):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid otp"})
	case errors.Is(err, lifecycle.ErrTerminalOrder):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already delivered or cancelled"})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrConcurrentUpdate):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
	case errors.Is(err, service.ErrTimeout):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage timed out, please retry"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toOrderResponse(o database.Order, items []database.OrderItem, owner bool) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Total:       o.Total,
		Status:      o.Status,
		TimeSlot:    o.TimeSlot,
		Token:       o.Token,
		OtpVerified: o.OtpVerified,
		PickupDate:  o.PickupDate.Format("2006-01-02"),
		PlacedAt:    o.PlacedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if owner {
		resp.Otp = o.Otp
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = orderItemResponse{
				ID:         it.ID,
				MenuItemID: it.MenuItemID,
				Name:       it.Name,
				Price:      it.Price,
				Quantity:   it.Quantity,
				Type:       it.Type,
				Subtotal:   int64(it.Price) * int64(it.Quantity),
			}
		}
	}
	return resp
}
