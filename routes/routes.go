package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/book-tracker/app"
	"github.com/upb/book-tracker/handlers"
	authmw "github.com/upb/book-tracker/middleware"
	"github.com/upb/book-tracker/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(deps.Metrics.Middleware)

	origins := []string{"http://localhost:*"}
	if deps.Config != nil && len(deps.Config.Server.AllowedOrigins) > 0 {
		origins = deps.Config.Server.AllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Token endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", deps.AuthHandler.HandleRegister)
		r.Post("/login", deps.AuthHandler.HandleLogin)
		r.Post("/refresh", deps.AuthHandler.HandleRefresh)
		r.Post("/verify", deps.AuthHandler.HandleVerify)
	})

	lib := deps.LibraryHandler
	auth := deps.AuthMiddleware

	r.Route("/api", func(r chi.Router) {
		r.Route("/books", func(r chi.Router) {
			r.Get("/", lib.HandleListBooks)
			r.Get("/search", lib.HandleSearchBooks)
			r.Get("/{id}", lib.HandleGetBook)
			r.With(auth.RequireAuth, auth.RequireRole(authmw.RoleAdmin)).Post("/", lib.HandleCreateBook)

			// Personal libraries
			r.Route("/user/{userId}", func(r chi.Router) {
				r.Use(auth.RequireAuth)
				r.With(auth.RequireOwner("userId", true)).Get("/", lib.HandleListUserBooks)
				r.With(auth.RequireOwner("userId", false)).Post("/", lib.HandleUpsertUserBook)
				r.With(auth.RequireOwner("userId", false)).Delete("/", lib.HandleRemoveUserBook)
			})
		})

		r.Route("/authors", func(r chi.Router) {
			r.Get("/", lib.HandleListAuthors)
			r.Get("/search", lib.HandleSearchAuthors)
			r.Get("/{id}", lib.HandleGetAuthor)
			r.With(auth.RequireAuth).Post("/", lib.HandleCreateAuthor)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/me", handlers.HandleMe)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
