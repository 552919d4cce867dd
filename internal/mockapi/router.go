package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/plateful/storefront/internal/enum"
)

// NewRouter wires the full service surface onto a Chi router.
func NewRouter(store Store, hub *Hub, jwtSecret string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := NewAuthHandler(store, jwtSecret)
	authHandler.RegisterRoutes(r)

	catalogHandler := NewCatalogHandler(store)
	catalogHandler.RegisterRoutes(r)

	orderHandler := NewOrderHandler(store, hub, jwtSecret)
	r.Route("/orders", orderHandler.RegisterRoutes)

	adminHandler := NewAdminHandler(store)
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(jwtSecret))
		r.Use(RequireRole(enum.RoleOwner))
		r.Route("/admin", adminHandler.RegisterRoutes)
	})

	if hub != nil {
		r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
			ServeWS(hub, jwtSecret, w, r)
		})
	}

	return r
}
