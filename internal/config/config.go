package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Checkout tuning. Money values are in paise.
	PlatformFeeDefault    int64
	ShippingFreeThreshold int64
	ShippingFlatFee       int64
	CheckoutRetryAttempts int
	CheckoutRetryBase     time.Duration
	IdempotencyTTL        time.Duration

	// Background delivery.
	AsynqQueue       string
	AsynqConcurrency int
	EmailEnabled     bool

	// Observability.
	OTLPEndpoint   string
	MetricsEnabled bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		PlatformFeeDefault:    parseInt64(k.String("PLATFORM_FEE_DEFAULT"), 500),
		ShippingFreeThreshold: parseInt64(k.String("SHIPPING_FREE_THRESHOLD"), 50000),
		ShippingFlatFee:       parseInt64(k.String("SHIPPING_FLAT_FEE"), 5000),
		CheckoutRetryAttempts: int(parseInt64(k.String("CHECKOUT_RETRY_ATTEMPTS"), 3)),
		CheckoutRetryBase:     parseDuration(k.String("CHECKOUT_RETRY_BASE"), "25ms"),
		IdempotencyTTL:        parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		AsynqQueue:       valueOrDefault(k.String("ASYNQ_QUEUE"), "notifications"),
		AsynqConcurrency: int(parseInt64(k.String("ASYNQ_CONCURRENCY"), 10)),
		EmailEnabled:     parseBool(k.String("EMAIL_ENABLED")),

		OTLPEndpoint:   strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		MetricsEnabled: parseBoolDefault(k.String("METRICS_ENABLED"), true),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.CheckoutRetryAttempts < 1 {
		cfg.CheckoutRetryAttempts = 1
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
