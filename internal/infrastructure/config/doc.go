// Package config handles loading and validating the auth service configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (AUTH_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The refresh-token secret and key paths should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The RSA private key file must never be committed alongside the config
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
