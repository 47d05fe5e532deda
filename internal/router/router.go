package router

import (
	"log"
	"net/http"

	"github.com/canteen-pickup/api/internal/config"
	"github.com/canteen-pickup/api/internal/database"
	"github.com/canteen-pickup/api/internal/handler"
	mw "github.com/canteen-pickup/api/internal/middleware"
	"github.com/canteen-pickup/api/internal/service"
	"github.com/canteen-pickup/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// New creates a Chi router with all application routes wired up.
// Order and slot-availability routes go through the order service; menu,
// slot configuration and profiles talk to the store directly.
func New(cfg *config.Config, queries *database.Queries, orders *service.OrderService, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Handle("/ws/orders", ws.NewHandler(hub, cfg.JWTSecret, cfg.CORSOrigins))

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		orderHandler := handler.NewOrderHandler(orders)
		r.Route("/orders", orderHandler.RegisterRoutes)

		slotHandler := handler.NewSlotHandler(orders, queries)
		r.Route("/slots", slotHandler.RegisterRoutes)

		// Direct store calls get the same deadline the order service applies.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.IOTimeout))

			menuHandler := handler.NewMenuHandler(queries)
			r.Route("/menu", menuHandler.RegisterRoutes)

			profileHandler := handler.NewProfileHandler(queries)
			r.Route("/profiles", profileHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
