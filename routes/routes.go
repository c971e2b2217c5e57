package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/modathread/rag-backend/app"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints (unauthenticated)
	r.Get("/health", deps.HealthHandler.HandleHealth)
	r.Get("/health/ready", deps.HealthHandler.HandleReadiness)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Query: admission control runs inside the pipeline state machine
		r.Route("/query", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAPIKey)
			r.Post("/", deps.QueryHandler.HandleQuery)
		})

		// Ingest: rate limited at the entry point
		r.Route("/ingest", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAPIKey)
			r.Use(deps.RateLimitMiddleware.Limit)
			r.Post("/", deps.IngestHandler.HandleIngest)
		})

		// Product catalog
		r.Route("/products", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAPIKey)
			r.Get("/", deps.ProductHandler.HandleList)
			r.Get("/{id}", deps.ProductHandler.HandleGet)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
