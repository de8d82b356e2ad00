// Package api provides the HTTP API for the auth service.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/panks123/pizza-app-auth-service/internal/audit"
	"github.com/panks123/pizza-app-auth-service/internal/auth"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/config"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/logging"
	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	DB       *database.DB // optional: reported by /health
	Auth     *auth.Service
	Issuer   *auth.Issuer
	Keys     *auth.Keys
	Users    auth.UserRepository
	Tokens   auth.TokenRepository
	Tenants  tenant.Repository
	Audit    audit.Repository
	Recorder audit.Recorder

	// TokenCleanupInterval is how often expired refresh-token records are
	// purged. Zero disables the purge loop.
	TokenCleanupInterval time.Duration

	Version string
}

// Server is the HTTP API server for the auth service.
//
// It manages the HTTP listener, routes, middleware and the refresh-token
// purge loop. The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	db       *database.DB
	auth     *auth.Service
	issuer   *auth.Issuer
	keys     *auth.Keys
	users    auth.UserRepository
	tokens   auth.TokenRepository
	tenants  tenant.Repository
	audit    audit.Repository
	recorder audit.Recorder

	cleanupInterval time.Duration
	version         string

	server *http.Server
	cancel context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil || deps.Issuer == nil || deps.Keys == nil {
		return nil, fmt.Errorf("auth service, issuer and keys are required")
	}
	if deps.Users == nil || deps.Tokens == nil || deps.Tenants == nil {
		return nil, fmt.Errorf("user, token and tenant repositories are required")
	}

	recorder := deps.Recorder
	if recorder == nil {
		recorder = audit.Nop{}
	}

	return &Server{
		cfg:             deps.Config,
		logger:          deps.Logger,
		db:              deps.DB,
		auth:            deps.Auth,
		issuer:          deps.Issuer,
		keys:            deps.Keys,
		users:           deps.Users,
		tokens:          deps.Tokens,
		tenants:         deps.Tenants,
		audit:           deps.Audit,
		recorder:        recorder,
		cleanupInterval: deps.TokenCleanupInterval,
		version:         deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router, starts the refresh-token purge loop and launches the
// HTTP listener in a background goroutine. The server can be stopped with Close().
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.cleanupInterval > 0 {
		go s.tokenCleanupLoop(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// tokenCleanupLoop deletes expired refresh-token records until ctx is cancelled.
func (s *Server) tokenCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpiredTokens(ctx)
		}
	}
}

func (s *Server) purgeExpiredTokens(ctx context.Context) {
	n, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("failed to purge expired refresh tokens", "error", err)
		}
		return
	}
	if n > 0 {
		s.logger.Info("purged expired refresh tokens", "count", n)
	}
}
