package config // package config loads application configuration from environment variables

import (
	"errors"  // errors for sentinel matching
	"fmt"     // fmt wraps errors with context
	"os"      // os reads the environment and files
	"strings" // strings trims and normalises text
	"time"    // time for timestamps and timeouts

	"github.com/joho/godotenv" // godotenv loads .env files
)

// Store drivers.
const (
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env         string // application environment (dev, prod)
	Port        string // HTTP port to listen on
	LogLevel    string // debug | info | warn | error
	StoreDriver string // mysql | mongo | memory

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	MongoURI string
	MongoDB  string

	StripeSecretKey     string
	StripeWebhookSecret string // empty disables the webhook route
	SiteDomain          string // base URL for checkout redirects

	AuthJWTSecret    string // HMAC key for identity tokens
	AuthJWTPublicKey string // PEM (or path to PEM) for RSA identity tokens
	AuthIssuer       string
	AuthAudience     string

	Queue QueueConfig

	SweepInterval time.Duration // 0 disables the reconciliation sweep
	SweepWindow   time.Duration // how far back the sweep looks
}

// Load reads .env (when present) and the environment. Every missing
// required variable is reported in the returned error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var missing []string
	must := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:                 envStr("APP_ENV", "dev"),
		Port:                envStr("APP_PORT", "5000"),
		LogLevel:            envStr("LOG_LEVEL", "info"),
		StoreDriver:         strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
		StripeSecretKey:     must("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SiteDomain:          must("SITE_DOMAIN"),
		AuthJWTSecret:       os.Getenv("AUTH_JWT_SECRET"),
		AuthJWTPublicKey:    os.Getenv("AUTH_JWT_PUBLIC_KEY"),
		AuthIssuer:          os.Getenv("AUTH_ISSUER"),
		AuthAudience:        os.Getenv("AUTH_AUDIENCE"),
		Queue:               LoadQueueConfig(),
		SweepInterval:       envDur("SWEEP_INTERVAL", time.Minute),
		SweepWindow:         envDur("SWEEP_WINDOW", 24*time.Hour),
	}

	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	case DriverMongo:
		cfg.MongoURI = must("MONGO_URI")
		cfg.MongoDB = envStr("MONGO_DB", "zap-shift-db")
	case DriverMemory:
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.AuthJWTSecret == "" && cfg.AuthJWTPublicKey == "" {
		missing = append(missing, "AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY")
	}
	if len(missing) > 0 {
		return cfg, errors.New("missing required env vars: " + strings.Join(missing, ", "))
	}
	return cfg, nil
}

// PublicKeyPEM returns the RSA verification key, reading it from disk when
// AUTH_JWT_PUBLIC_KEY is a path rather than inline PEM.
func (c Config) PublicKeyPEM() ([]byte, error) {
	if c.AuthJWTPublicKey == "" {
		return nil, nil
	}
	if strings.HasPrefix(strings.TrimSpace(c.AuthJWTPublicKey), "-----BEGIN") {
		return []byte(c.AuthJWTPublicKey), nil
	}
	return os.ReadFile(c.AuthJWTPublicKey)
}
