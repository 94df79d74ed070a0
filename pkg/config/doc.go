// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	BUDGETUP_HOST="0.0.0.0"
//	BUDGETUP_PORT="8080"
//	BUDGETUP_HEALTH_PORT="9090"
//	BUDGETUP_READ_TIMEOUT="15s"
//	BUDGETUP_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	BUDGETUP_POSTGRES_URL="postgres://localhost/budgetup"
//	BUDGETUP_POSTGRES_MAX_CONNS="25"
//	BUDGETUP_POSTGRES_IDLE_CONNS="5"
//
// Redis settings (optional, enables distributed rate limiting):
//
//	BUDGETUP_REDIS_ADDR="localhost:6379"
//	BUDGETUP_REDIS_DB="0"
//
// Invitation settings:
//
//	BUDGETUP_INVITATION_TTL="168h"        # default invite expiry
//	BUDGETUP_INVITATION_RETENTION="720h"  # janitor grace for expired invites
//
// Observability settings:
//
//	BUDGETUP_LOG_LEVEL="info"  # debug, info, warn, error
//	BUDGETUP_METRICS_ENABLED="true"
//	BUDGETUP_OTEL_ENABLED="true"
//	BUDGETUP_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
package config
