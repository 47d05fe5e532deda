package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/canteen-pickup/api/internal/database"
	"github.com/canteen-pickup/api/internal/middleware"
	"github.com/canteen-pickup/api/internal/service"
	"github.com/canteen-pickup/api/internal/slot"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const slotTimeLayout = "15:04"

// SlotServicer defines the service methods needed by slot handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type SlotServicer interface {
	Availability(ctx context.Context, req service.AvailabilityRequest) (*service.Availability, error)
	Upcoming() []slot.Window
}

// SlotStore defines the database methods needed by slot handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SlotStore interface {
	ListTimeSlots(ctx context.Context) ([]database.TimeSlot, error)
	CreateTimeSlot(ctx context.Context, arg database.CreateTimeSlotParams) (database.TimeSlot, error)
	UpdateTimeSlot(ctx context.Context, arg database.UpdateTimeSlotParams) (database.TimeSlot, error)
}

// SlotHandler serves pickup slot configuration and availability.
type SlotHandler struct {
	svc   SlotServicer
	store SlotStore
}

func NewSlotHandler(svc SlotServicer, store SlotStore) *SlotHandler {
	return &SlotHandler{svc: svc, store: store}
}

// RegisterRoutes registers slot endpoints. Expected to be mounted at /slots
// behind Authenticate.
func (h *SlotHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/upcoming", h.Upcoming)
	r.Post("/availability", h.Availability)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
	})
}

// --- Request / Response types ---

type slotRequest struct {
	Time      string `json:"time"`
	MaxOrders int32  `json:"max_orders"`
}

type slotResponse struct {
	ID        uuid.UUID `json:"id"`
	Time      string    `json:"time"`
	MaxOrders int       `json:"max_orders"`
}

type availabilityCheckRequest struct {
	Items    []orderLineRequest `json:"items"`
	Selected string             `json:"selected"`
}

type availabilityResponse struct {
	Slots            []slotResponse `json:"slots"`
	MadeToOrderUnits int            `json:"made_to_order_units"`
	Total            int64          `json:"total"`
	Selected         string         `json:"selected,omitempty"`
	SelectionValid   bool           `json:"selection_valid"`
	// ReselectRequired tells the client to clear its pick before checkout.
	ReselectRequired bool `json:"reselect_required"`
}

func toSlotResponse(s slot.Slot) slotResponse {
	return slotResponse{ID: s.ID, Time: s.Time, MaxOrders: s.MaxOrders}
}

func dbSlotToResponse(s database.TimeSlot) slotResponse {
	return slotResponse{ID: s.ID, Time: s.Time, MaxOrders: int(s.MaxOrders)}
}

// validate checks the request and rewrites Time as zero-padded HH:MM so the
// text column sorts chronologically.
func (req *slotRequest) validate() string {
	t, err := time.Parse(slotTimeLayout, req.Time)
	if err != nil {
		return "time must be HH:MM"
	}
	req.Time = t.Format(slotTimeLayout)
	if req.MaxOrders <= 0 {
		return "max_orders must be > 0"
	}
	return ""
}

// --- Handlers ---

// List returns the configured slots ordered by time.
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	slots, err := h.store.ListTimeSlots(r.Context())
	if err != nil {
		writeStoreError(w, "list slots", err)
		return
	}

	resp := make([]slotResponse, len(slots))
	for i, s := range slots {
		resp[i] = dbSlotToResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Upcoming returns the generated short-horizon pickup windows.
func (h *SlotHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Upcoming())
}

// Availability returns the slots that can take the posted cart.
func (h *SlotHandler) Availability(w http.ResponseWriter, r *http.Request) {
	var req availabilityCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	lines, msg := parseLines(req.Items)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	result, err := h.svc.Availability(r.Context(), service.AvailabilityRequest{
		Lines:    lines,
		Selected: req.Selected,
	})
	if err != nil {
		writeServiceError(w, "slot availability", err)
		return
	}

	resp := availabilityResponse{
		Slots:            make([]slotResponse, len(result.Slots)),
		MadeToOrderUnits: result.MadeToOrderUnits,
		Total:            result.Total,
		Selected:         result.Selected,
		SelectionValid:   result.SelectionValid,
		ReselectRequired: req.Selected != "" && !result.SelectionValid,
	}
	for i, s := range result.Slots {
		resp.Slots[i] = toSlotResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a pickup slot.
func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	s, err := h.store.CreateTimeSlot(r.Context(), database.CreateTimeSlotParams{
		Time:      req.Time,
		MaxOrders: req.MaxOrders,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "slot already exists"})
			return
		}
		writeStoreError(w, "create slot", err)
		return
	}

	writeJSON(w, http.StatusCreated, dbSlotToResponse(s))
}

// Update changes a slot's time or capacity.
func (h *SlotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid slot ID"})
		return
	}

	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	s, err := h.store.UpdateTimeSlot(r.Context(), database.UpdateTimeSlotParams{
		ID:        id,
		Time:      req.Time,
		MaxOrders: req.MaxOrders,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "slot not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "slot already exists"})
			return
		}
		writeStoreError(w, "update slot", err)
		return
	}

	writeJSON(w, http.StatusOK, dbSlotToResponse(s))
}
