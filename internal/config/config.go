// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds articles-service configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"articles-service"`

	// AppID tags announcements with this process's identity so clients can
	// suppress their own writes (empty = use SERVICE_NAME).
	AppID string `envconfig:"APP_ID"`

	// Subject overrides (empty = package defaults)
	RequestSubject  string `envconfig:"REQUEST_SUBJECT"`
	AnnounceSubject string `envconfig:"ANNOUNCE_SUBJECT"`

	// Timeouts and retry budgets
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ListenerBackoff    time.Duration `envconfig:"LISTENER_BACKOFF" default:"10s"`
	ListenerMaxRetries int           `envconfig:"LISTENER_MAX_RETRIES" default:"10"`

	// Database (empty = in-memory stores, demo mode)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP read API and health endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if c.AppID == "" {
		c.AppID = c.COMMSName
	}
	return &c, nil
}

// ValidateForServe checks required config when running the server.
func (c *Config) ValidateForServe() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.ListenerBackoff <= 0 {
		return fmt.Errorf("%s - LISTENER_BACKOFF must be positive", logPrefix)
	}
	if c.ListenerMaxRetries <= 0 {
		return fmt.Errorf("%s - LISTENER_MAX_RETRIES must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands
// (migrate, clear, ensure-db).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
