// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file
// when present), loads them into structured Go types and validates that
// required values are present so the app fails fast on bad config.
package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads `.env` into the process env before any
	// variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix is stripped from every variable name before mapping.
// Nested keys use "." as the delimiter, e.g. CAREPORTAL_SERVER.PORT -> server.port.
const EnvPrefix = "CAREPORTAL_"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Storage       StorageConfig        `koanf:"storage" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// UpstreamTimeout bounds every single call to the database or the
	// storage signer made while serving a request.
	UpstreamTimeout int `koanf:"upstream_timeout" validate:"gte=0"`

	// RateLimit is the allowed requests per second per client IP.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig stores the managed auth provider secret and the role name
// that grants access beyond ownership. AdminRole is compared verbatim with
// the session's active organization role, which Clerk namespaces as
// "org:<key>".
type AuthConfig struct {
	SecretKey string `koanf:"secret_key" validate:"required"`
	AdminRole string `koanf:"admin_role"`
}

// StorageConfig points at an S3-compatible object store.
// Endpoint may be empty to use the provider default for Region.
type StorageConfig struct {
	Endpoint               string `koanf:"endpoint"`
	Region                 string `koanf:"region" validate:"required"`
	AccessKeyID            string `koanf:"access_key_id" validate:"required"`
	SecretAccessKey        string `koanf:"secret_access_key" validate:"required"`
	AppointmentSheetBucket string `koanf:"appointment_sheet_bucket" validate:"required"`
	CertificateBucket      string `koanf:"certificate_bucket" validate:"required"`

	// SignedURLExpiry is the lifetime of an issued download link in seconds.
	SignedURLExpiry int `koanf:"signed_url_expiry" validate:"gte=0"`
}

type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key" validate:"required"`
	EmailFrom    string `koanf:"email_from"`
}

const (
	DefaultAdminRole       = "org:admin"
	DefaultUpstreamTimeout = 10
	DefaultSignedURLExpiry = 3600
	DefaultRateLimit       = 20
	DefaultEmailFrom       = "CarePortal <noreply@careportal.app>"
)

// LoadConfig loads configuration from environment variables, validates it,
// applies defaults and returns the resulting config.
//
// Any failure is logged fatally; the process cannot serve without config.
func LoadConfig() (*Config, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load initial env variables")
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal main config")
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("config validation failed")
	}

	applyDefaults(mainConfig)

	if err := mainConfig.Observability.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid observability config")
	}

	return mainConfig, nil
}

// applyDefaults fills optional values left empty by the environment.
func applyDefaults(cfg *Config) {
	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}

	// Service name is fixed; environment always follows primary.env.
	cfg.Observability.ServiceName = "careportal"
	cfg.Observability.Environment = cfg.Primary.Env

	if cfg.Auth.AdminRole == "" {
		cfg.Auth.AdminRole = DefaultAdminRole
	}
	if cfg.Server.UpstreamTimeout == 0 {
		cfg.Server.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = DefaultRateLimit
	}
	if cfg.Storage.SignedURLExpiry == 0 {
		cfg.Storage.SignedURLExpiry = DefaultSignedURLExpiry
	}
	if cfg.Integration.EmailFrom == "" {
		cfg.Integration.EmailFrom = DefaultEmailFrom
	}
}
