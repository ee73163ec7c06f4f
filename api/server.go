/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: One slog line per request
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the dashboard
  5. TokenAuth:     "Authorization: Token <key>" on every protected route

ROUTE GROUPS:
  Public:    /api/health, /api/auth/login, POST /api/accounts
  Protected: everything else under /api

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: RequestLogger, TokenAuth
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigins []string
	Logger      *slog.Logger
	// Resolver authenticates tokens. Defaults to the handler's auth service.
	Resolver TokenResolver
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = h.logger
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = h.Auth()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)
		r.Post("/auth/login", h.Login)
		r.Post("/accounts", h.Register)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(TokenAuth(resolver))

			r.Post("/auth/logout", h.Logout)
			r.Post("/auth/logout-all", h.LogoutAll)

			r.Get("/accounts/me", h.GetAccount)
			r.Patch("/accounts/me", h.UpdateAccount)

			// Organization routes
			r.Get("/organizations", h.ListOrganizations)
			r.Route("/organizations/{id:[0-9]+}", func(r chi.Router) {
				r.Post("/total-therapists", h.SyncOrganizationTotalTherapists)
				r.Post("/total-therapists/all-time", h.SyncOrganizationAllTimeTotalTherapists)
				r.Post("/rates", h.SyncOrganizationRates)
				r.Post("/rates/all-time", h.SyncOrganizationAllTimeRates)
			})

			// Sync routes
			r.Route("/sync", func(r chi.Router) {
				r.Post("/organizations", h.SyncOrganizations)
				r.Post("/organizations/{id:[0-9]+}/therapists", h.SyncTherapists)
				r.Post("/therapists/{id}/interactions", h.SyncInteractions)
			})

			// Export routes
			r.Post("/therapists/export", h.ExportTherapists)
			r.Post("/interactions/export", h.ExportInteractions)

			// Reporting routes
			r.Route("/total-therapists", func(r chi.Router) {
				r.Get("/", h.ListTotalTherapists)
				r.Post("/", h.SyncGlobalTotalTherapists)
				r.Get("/all-time", h.ListAllTimeTotalTherapists)
				r.Post("/all-time", h.SyncGlobalAllTimeTotalTherapists)
				r.Post("/export", h.ExportTotalTherapists)
			})
			r.Route("/rates", func(r chi.Router) {
				r.Get("/", h.ListRates)
				r.Post("/", h.SyncGlobalRates)
				r.Get("/all-time", h.ListAllTimeRates)
				r.Post("/all-time", h.SyncGlobalAllTimeRates)
				r.Post("/export", h.ExportRates)
			})
		})
	})

	return r
}
