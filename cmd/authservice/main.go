// Auth Service - multi-tenant authentication and user management.
//
// This is the main entry point for the auth service. It serves the /auth,
// /users, /tenants and /audit HTTP APIs, issuing RS256 access tokens and
// rotating HS256 refresh tokens backed by a relational store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/panks123/pizza-app-auth-service/migrations"

	"github.com/panks123/pizza-app-auth-service/internal/api"
	"github.com/panks123/pizza-app-auth-service/internal/audit"
	"github.com/panks123/pizza-app-auth-service/internal/auth"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/config"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/influxdb"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/logging"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/mqtt"
	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup wiring: one linear sequence of optional components
	log := logging.Default()
	log.Info("starting auth service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	keys, err := auth.LoadKeys(cfg.Security.Keys)
	if err != nil {
		return fmt.Errorf("loading signing keys: %w", err)
	}
	log.Info("signing keys loaded", "kid", keys.KeyID())

	db, err := database.Open(ctx, database.Config{
		Driver:      cfg.Database.Driver,
		DSN:         cfg.Database.DSN,
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "driver", db.Driver())

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	users := auth.NewUserRepository(db)
	tokens := auth.NewTokenRepository(db)
	tenants := tenant.NewRepository(db)
	auditRepo := audit.NewRepository(db)

	var recorderOpts []audit.Option

	// MQTT event publishing (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		recorderOpts = append(recorderOpts, audit.WithPublisher(mqttClient))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB auth event counters (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorderOpts = append(recorderOpts, audit.WithCounter(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	recorder := audit.NewFanOut(auditRepo, log, recorderOpts...)
	// Runs before the MQTT and database defers so queued publishes drain first.
	defer recorder.Wait()

	if _, seedErr := auth.SeedAdmin(ctx, users, cfg.Security.SeedAdminEmail, log); seedErr != nil {
		return fmt.Errorf("seeding admin: %w", seedErr)
	}

	issuer := auth.NewIssuer(keys, cfg.Security.Issuer)
	server, err := api.New(api.Deps{
		Config:               cfg.API,
		Logger:               log,
		DB:                   db,
		Auth:                 auth.NewService(users, tokens, issuer, recorder, log),
		Issuer:               issuer,
		Keys:                 keys,
		Users:                users,
		Tokens:               tokens,
		Tenants:              tenants,
		Audit:                auditRepo,
		Recorder:             recorder,
		TokenCleanupInterval: cfg.GetTokenCleanupInterval(),
		Version:              version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("auth service stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AUTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AUTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
