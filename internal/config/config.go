// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health server; empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production"). Error causes are only
	// serialized to clients outside production.
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// CORSAllowedOrigins is a comma-separated list of origins allowed by CORS; "*" allows any.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// StoreDriver selects the user repository adapter: "mongo" or "postgres".
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// MongoURI is the MongoDB connection string.
	MongoURI string `mapstructure:"MONGO_URI"`
	// MongoDatabase is the database holding the users collection.
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	// MongoCollection is the users collection name.
	MongoCollection string `mapstructure:"MONGO_COLLECTION"`
	// DatabaseURL is the Postgres DSN; required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// JWTSecret is the shared HMAC secret (HS256). Ignored when a key pair is configured.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim set on issued tokens and required on validation.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim set on issued tokens and required on validation.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// JWTResetTTL is the password-reset token lifetime (e.g. "15m").
	JWTResetTTL string `mapstructure:"JWT_RESET_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// HashConcurrency caps concurrent bcrypt computations; 0 means one per CPU.
	HashConcurrency int `mapstructure:"HASH_CONCURRENCY"`

	// GoogleClientID is the OAuth client id Google ID tokens must be issued for.
	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`
	// PermissionsFile optionally replaces the embedded role → actions table (JSON object of string arrays).
	PermissionsFile string `mapstructure:"PERMISSIONS_FILE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables account events.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AccountEventsTopic is the Kafka topic for account audit events.
	AccountEventsTopic string `mapstructure:"ACCOUNT_EVENTS_TOPIC"`
	// Worker-only: KafkaGroupID is the consumer group ID for the events worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// Worker-only: LokiURL is where the events worker pushes log lines (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("STORE_DRIVER", StoreMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "user_accounts")
	v.SetDefault("MONGO_COLLECTION", "fc_b2c_users")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "user-account-service")
	v.SetDefault("JWT_AUDIENCE", "user-account-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("JWT_RESET_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("HASH_CONCURRENCY", 0)
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("PERMISSIONS_FILE", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ACCOUNT_EVENTS_TOPIC", "account-events")
	v.SetDefault("KAFKA_GROUP_ID", "account-events-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreMongo:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	default:
		return nil, errors.New("config: STORE_DRIVER must be mongo or postgres")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.HashConcurrency < 0 {
		return nil, errors.New("config: HASH_CONCURRENCY must not be negative")
	}

	if !cfg.HasKeyPair() && cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET or JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
	}

	return &cfg, nil
}

// HasKeyPair reports whether both JWT key pair values are set (asymmetric signing).
func (c *Config) HasKeyPair() bool {
	return c.JWTPrivateKey != "" && c.JWTPublicKey != ""
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseTTL(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseTTL(c.JWTRefreshTTL, 168*time.Hour)
}

// ResetTTL parses JWTResetTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) ResetTTL() time.Duration {
	return parseTTL(c.JWTResetTTL, 15*time.Minute)
}

func parseTTL(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// CORSOriginsList returns the allowed CORS origins. Empty config allows any origin.
func (c *Config) CORSOriginsList() []string {
	if out := splitList(c.CORSAllowedOrigins); len(out) > 0 {
		return out
	}
	return []string{"*"}
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if account events are enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
