/**
 * @description
 * This file sets up the HTTP router for the api-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * the middleware stack: request logging, panic recovery, timeouts, CORS, and
 * the session / admin auth guards.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes creates and returns the router for the storefront API.
func Routes(h *Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Post("/auth/register", h.RegisterHandler)
		r.Post("/auth/login", h.LoginHandler)
		r.Get("/services", h.ServicesHandler)

		// Metered endpoint, authenticated by issued API key.
		r.Get("/youtube", h.VideoLookupHandler)

		// Session-authenticated endpoints.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))

			r.Get("/me", h.MeHandler)
			r.Post("/balance/add", h.AddBalanceHandler)
			r.Get("/transactions", h.TransactionsHandler)

			r.Post("/orders", h.PlaceOrderHandler)
			r.Get("/orders", h.OrdersHandler)
			r.Get("/orders/{orderID}", h.OrderHandler)

			r.Post("/api-key/generate", h.GenerateAPIKeyHandler)
			r.Get("/api-key", h.APIKeyHandler)
			r.Get("/usage/logs", h.UsageLogsHandler)
			r.Get("/usage/stats", h.UsageStatsHandler)
		})

		// Admin endpoints.
		r.Route("/admin", func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))
			r.Use(AdminOnlyMiddleware)

			r.Get("/dashboard", h.AdminDashboardHandler)
			r.Get("/users", h.AdminUsersHandler)
			r.Get("/users/{accountID}", h.AdminUserDetailHandler)
			r.Put("/users/{accountID}", h.AdminUpdateUserHandler)

			r.Get("/services", h.AdminServicesHandler)
			r.Post("/services", h.AdminCreateServiceHandler)
			r.Put("/services/{serviceID}", h.AdminUpdateServiceHandler)

			r.Get("/orders", h.AdminOrdersHandler)
			r.Put("/orders/{orderID}/status", h.AdminUpdateOrderStatusHandler)

			r.Get("/api-keys", h.AdminAPIKeysHandler)
			r.Put("/api-keys/{accountID}/toggle", h.AdminToggleAPIKeyHandler)
			r.Get("/usage/stats", h.AdminUsageStatsHandler)
		})
	})

	return r
}
