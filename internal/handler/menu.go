package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/canteen-pickup/api/internal/database"
	"github.com/canteen-pickup/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	ListMenuCategories(ctx context.Context) ([]string, error)
	SetMenuItemAvailability(ctx context.Context, arg database.SetMenuItemAvailabilityParams) (database.MenuItem, error)
}

// MenuHandler handles menu browsing and the staff availability toggle.
type MenuHandler struct {
	store MenuStore
}

func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers menu endpoints. Expected to be mounted at /menu
// behind Authenticate.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/categories", h.Categories)
	r.With(middleware.RequireAdmin).Patch("/{id}/availability", h.SetAvailability)
}

type menuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       int32     `json:"price"`
	Category    string    `json:"category"`
	IsVeg       bool      `json:"is_veg"`
	Type        string    `json:"type"`
	Available   bool      `json:"available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		Category:  m.Category,
		IsVeg:     m.IsVeg,
		Type:      m.Type,
		Available: m.Available,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	return resp
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

// List returns menu items, optionally filtered by ?category= and ?available=.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	arg := database.ListMenuItemsParams{}
	if c := r.URL.Query().Get("category"); c != "" {
		arg.Category = pgtype.Text{String: c, Valid: true}
	}
	if a := r.URL.Query().Get("available"); a != "" {
		v, err := strconv.ParseBool(a)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid available filter"})
			return
		}
		arg.Available = pgtype.Bool{Bool: v, Valid: true}
	}

	items, err := h.store.ListMenuItems(r.Context(), arg)
	if err != nil {
		writeStoreError(w, "list menu", err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListMenuCategories(r.Context())
	if err != nil {
		writeStoreError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// SetAvailability marks an item in or out of stock.
func (h *MenuHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Available == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "available is required"})
		return
	}

	item, err := h.store.SetMenuItemAvailability(r.Context(), database.SetMenuItemAvailabilityParams{
		ID:        id,
		Available: *req.Available,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		writeStoreError(w, "set availability", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}
