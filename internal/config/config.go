// Package config loads the roster service configuration from environment
// variables, applies defaults, and validates everything on startup so
// misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Auth     AuthConfig
	Features FeaturesConfig
	Mail     MailConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds every non-import request.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is required when STORE_DRIVER=postgres.
	URL      string `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns int    `env:"DB_MAX_CONNS" default:"20"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// AutoMigrate applies pending migrations on server startup.
	AutoMigrate bool `env:"STORE_AUTO_MIGRATE" default:"true"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	// MaxBodyBytes caps the JSON request body, csvData included (default: 10MB).
	MaxBodyBytes int64 `env:"IMPORT_MAX_BODY_BYTES" default:"10MB" unit:"bytes"`

	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"4"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// ValidationWorkers bounds parallel row validation per import.
	ValidationWorkers int `env:"IMPORT_VALIDATION_WORKERS" default:"4"`

	// Timeout bounds a whole import request, commit included.
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`

	// BcryptCost hashes placeholder parent passwords.
	BcryptCost int `env:"IMPORT_BCRYPT_COST" default:"10"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for the import endpoint.
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies lists proxy CIDRs whose forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET" required:"true"`
	Issuer    string        `env:"JWT_ISSUER" default:"roster"`
	TokenTTL  time.Duration `env:"JWT_TOKEN_TTL" default:"1h"`
}

// FeaturesConfig holds feature flag settings.
type FeaturesConfig struct {
	// Disabled entries are "feature" or "role:feature".
	Disabled []string `env:"FEATURES_DISABLED"`
}

// MailConfig holds parent invitation settings.
type MailConfig struct {
	// Provider is "log" or "sendgrid".
	Provider string `env:"MAIL_PROVIDER" default:"log"`

	SendgridAPIKey string `env:"SENDGRID_API_KEY"`
	SendgridHost   string `env:"SENDGRID_HOST" default:"https://api.sendgrid.com"`

	FromName  string `env:"MAIL_FROM_NAME" default:"School Roster"`
	FromEmail string `env:"MAIL_FROM_EMAIL"`

	// ActivationURL is the page parents use to activate placeholder accounts.
	ActivationURL string `env:"PARENT_ACTIVATION_URL" default:"http://localhost:8080/parents/activate"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
