// Package logging provides structured logging for the auth service.
//
// It wraps log/slog so every component logs key/value pairs with the same
// default attributes (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("user logged in", "user_id", id)
//
// # Security
//
// Passwords and tokens must never be logged. Attributes keyed "password",
// "secret", "access_token" or "refresh_token" are replaced with ******** by the
// handler, as a last line of defence.
package logging
