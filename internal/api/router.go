package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/panks123/pizza-app-auth-service/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/", s.handleWelcome)
	r.Get("/health", s.handleHealth)
	r.Get("/.well-known/jwks.json", s.handleJWKS)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.With(s.authenticate).Get("/self", s.handleSelf)
		r.With(s.authenticateRefresh).Post("/refresh", s.handleRefresh)
		r.With(s.authenticate, s.authenticateRefresh).Post("/logout", s.handleLogout)
	})

	r.Route("/tenants", func(r chi.Router) {
		// The tenant list feeds public sign-up and storefront pages.
		r.Get("/", s.handleListTenants)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate, s.canAccess(auth.RoleAdmin))
			r.Post("/", s.handleCreateTenant)
			r.Get("/{id}", s.handleGetTenant)
			r.Patch("/{id}", s.handleUpdateTenant)
			r.Delete("/{id}", s.handleDeleteTenant)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(s.authenticate, s.canAccess(auth.RoleAdmin))
		r.Post("/", s.handleCreateUser)
		r.Get("/", s.handleListUsers)
		r.Get("/{id}", s.handleGetUser)
		r.Patch("/{id}", s.handleUpdateUser)
		r.Delete("/{id}", s.handleDeleteUser)
	})

	r.With(s.authenticate, s.canAccess(auth.RoleAdmin)).Get("/audit", s.handleListAuditLogs)

	return r
}

// handleWelcome answers the root path.
func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Welcome to Auth service")) //nolint:errcheck // Best-effort write
}

// handleHealth returns the server health status, including the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "degraded",
				"version":  s.version,
				"database": "unavailable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleJWKS publishes the access-token verification key.
func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	set, err := s.keys.JWKS()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, set)
}
