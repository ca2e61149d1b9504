package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

// baseEnv clears the environment and sets the minimum Load requires.
func baseEnv() {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	baseEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.StoreDriver != StoreMongo {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, StoreMongo)
	}
	if cfg.MongoCollection != "fc_b2c_users" {
		t.Errorf("MongoCollection = %q, want %q", cfg.MongoCollection, "fc_b2c_users")
	}
	if cfg.JWTIssuer != "user-account-service" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "user-account-service")
	}
	if cfg.JWTAudience != "user-account-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "user-account-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "168h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "168h")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.AccountEventsTopic != "account-events" {
		t.Errorf("AccountEventsTopic = %q, want default", cfg.AccountEventsTopic)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	baseEnv()
	os.Setenv("HTTP_ADDR", ":9999")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("GOOGLE_CLIENT_ID", "client-123.apps.googleusercontent.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9999")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.GoogleClientID != "client-123.apps.googleusercontent.com" {
		t.Errorf("GoogleClientID = %q", cfg.GoogleClientID)
	}
}

func TestLoad_SigningMaterialRequired(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should fail without JWT_SECRET or a key pair")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}

	os.Clearenv()
	os.Setenv("JWT_PRIVATE_KEY", "priv.pem")
	if _, err := Load(); err == nil {
		t.Fatal("Load should fail with only half of the key pair")
	}

	os.Setenv("JWT_PUBLIC_KEY", "pub.pem")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load with key pair: %v", err)
	}
	if !cfg.HasKeyPair() {
		t.Error("HasKeyPair should be true")
	}
}

func TestLoad_StoreDriver(t *testing.T) {
	testCases := []struct {
		name   string
		driver string
		dsn    string
		want   string
		err    bool
	}{
		{"mongo", "mongo", "", StoreMongo, false},
		{"mixed case", " Mongo ", "", StoreMongo, false},
		{"postgres with dsn", "postgres", "postgres://u:p@localhost/db", StorePostgres, false},
		{"postgres without dsn", "postgres", "", "", true},
		{"unknown", "sqlite", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			baseEnv()
			os.Setenv("STORE_DRIVER", tc.driver)
			if tc.dsn != "" {
				os.Setenv("DATABASE_URL", tc.dsn)
			}

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.StoreDriver != tc.want {
				t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, tc.want)
			}
		})
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // Should default to 12
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			baseEnv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_NegativeHashConcurrency(t *testing.T) {
	baseEnv()
	os.Setenv("HASH_CONCURRENCY", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject negative HASH_CONCURRENCY")
	}
}

func TestTTLs(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
		get   func(*Config) time.Duration
		want  time.Duration
	}{
		{"access valid", "JWT_ACCESS_TTL", "30m", (*Config).AccessTTL, 30 * time.Minute},
		{"access invalid", "JWT_ACCESS_TTL", "invalid", (*Config).AccessTTL, 15 * time.Minute},
		{"access zero", "JWT_ACCESS_TTL", "0", (*Config).AccessTTL, 15 * time.Minute},
		{"access negative", "JWT_ACCESS_TTL", "-5m", (*Config).AccessTTL, 15 * time.Minute},
		{"refresh valid", "JWT_REFRESH_TTL", "336h", (*Config).RefreshTTL, 14 * 24 * time.Hour},
		{"refresh invalid", "JWT_REFRESH_TTL", "invalid", (*Config).RefreshTTL, 168 * time.Hour},
		{"refresh negative", "JWT_REFRESH_TTL", "-1h", (*Config).RefreshTTL, 168 * time.Hour},
		{"reset valid", "JWT_RESET_TTL", "5m", (*Config).ResetTTL, 5 * time.Minute},
		{"reset invalid", "JWT_RESET_TTL", "soon", (*Config).ResetTTL, 15 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			baseEnv()
			os.Setenv(tc.key, tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := tc.get(cfg); got != tc.want {
				t.Errorf("%s = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}

func TestKafkaBrokersList(t *testing.T) {
	cfg := &Config{KafkaBrokers: " broker-1:9092, ,broker-2:9092 "}
	got := cfg.KafkaBrokersList()
	want := []string{"broker-1:9092", "broker-2:9092"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KafkaBrokersList = %v, want %v", got, want)
	}

	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil brokers")
	}
}

func TestCORSOriginsList(t *testing.T) {
	testCases := []struct {
		raw  string
		want []string
	}{
		{"", []string{"*"}},
		{"*", []string{"*"}},
		{"https://app.example.com, https://admin.example.com", []string{"https://app.example.com", "https://admin.example.com"}},
	}
	for _, tc := range testCases {
		cfg := &Config{CORSAllowedOrigins: tc.raw}
		if got := cfg.CORSOriginsList(); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("CORSOriginsList(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestIsProduction(t *testing.T) {
	for env, want := range map[string]bool{"production": true, "PRODUCTION": true, "development": false, "": false} {
		cfg := &Config{Env: env}
		if got := cfg.IsProduction(); got != want {
			t.Errorf("IsProduction(%q) = %v, want %v", env, got, want)
		}
	}
}
