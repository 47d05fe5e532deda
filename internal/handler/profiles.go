package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/canteen-pickup/api/internal/database"
	"github.com/canteen-pickup/api/internal/enum"
	"github.com/canteen-pickup/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ProfileStore defines the database methods needed by profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProfileStore interface {
	GetProfileByID(ctx context.Context, id uuid.UUID) (database.Profile, error)
	ListProfiles(ctx context.Context) ([]database.Profile, error)
	UpdateProfileName(ctx context.Context, arg database.UpdateProfileNameParams) (database.Profile, error)
	UpdateProfileRole(ctx context.Context, arg database.UpdateProfileRoleParams) (database.Profile, error)
}

// ProfileHandler serves the caller's own profile and staff user management.
type ProfileHandler struct {
	store ProfileStore
}

func NewProfileHandler(store ProfileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// RegisterRoutes registers profile endpoints. Expected to be mounted at
// /profiles behind Authenticate.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Patch("/me", h.UpdateMe)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.List)
		r.Patch("/{id}/role", h.UpdateRole)
	})
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	profile, err := h.store.GetProfileByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		writeStoreError(w, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateMe changes the caller's display name. An empty name clears it.
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := pgtype.Text{}
	if n := strings.TrimSpace(req.FullName); n != "" {
		name = pgtype.Text{String: n, Valid: true}
	}

	profile, err := h.store.UpdateProfileName(r.Context(), database.UpdateProfileNameParams{
		ID:       claims.UserID,
		FullName: name,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		writeStoreError(w, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// List returns every profile for the staff user screen.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		writeStoreError(w, "list profiles", err)
		return
	}

	resp := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		resp[i] = toProfileResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateRole promotes or demotes a user. Staff cannot change their own role.
func (h *ProfileHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid profile ID"})
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !isValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}
	if id == claims.UserID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot change your own role"})
		return
	}

	profile, err := h.store.UpdateProfileRole(r.Context(), database.UpdateProfileRoleParams{
		ID:   id,
		Role: req.Role,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		writeStoreError(w, "update role", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func isValidRole(role string) bool {
	switch role {
	case enum.RoleUser, enum.RoleAdmin:
		return true
	}
	return false
}
