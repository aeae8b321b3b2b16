package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

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
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	JWTClockSkew       time.Duration
	CORSAllowedOrigins []string
	CurrencyCode       string

	EmailFunctionURL string
	EmailFunctionKey string
	EmailFromName    string
	EmailTimeout     time.Duration

	InvoiceDueDays      int
	IdempotencyTTL      time.Duration
	SendRateLimitMax    int
	SendRateLimitWindow time.Duration
	MaxBodyBytes        int64
	MigrateOnStart      bool

	CalendarTimeZone string
	CalendarEndpoint string

	CompanyName    string
	CompanyAddress string
	PaymentNote    string
}

// Load reads configuration from environment variables and optional .env files.
// Every invalid setting is reported, not only the first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	e := envReader{k: k}

	cfg := &Config{
		AppEnv:             e.str("APP_ENV", "development"),
		Port:               e.str("PORT", "8080"),
		DatabaseURL:        e.str("DATABASE_URL", ""),
		RedisURL:           e.str("REDIS_URL", ""),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          e.str("JWT_ISSUER", ""),
		JWTAudience:        e.str("JWT_AUDIENCE", ""),
		JWTClockSkew:       e.duration("JWT_CLOCK_SKEW", 30*time.Second),
		CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS"),
		CurrencyCode:       strings.ToUpper(e.str("CURRENCY_CODE", "IDR")),

		EmailFunctionURL: e.str("EMAIL_FUNCTION_URL", ""),
		EmailFunctionKey: k.String("EMAIL_FUNCTION_KEY"),
		EmailFromName:    e.str("EMAIL_FROM_NAME", "Tour Operator"),
		EmailTimeout:     e.duration("EMAIL_TIMEOUT", 10*time.Second),

		InvoiceDueDays:      e.integer("INVOICE_DUE_DAYS", 14),
		IdempotencyTTL:      e.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		SendRateLimitMax:    e.integer("SEND_RATE_LIMIT_MAX", 10),
		SendRateLimitWindow: e.duration("SEND_RATE_LIMIT_WINDOW", time.Minute),
		MaxBodyBytes:        int64(e.integer("MAX_BODY_BYTES", 1<<20)),
		MigrateOnStart:      e.boolean("MIGRATE_ON_START"),

		CalendarTimeZone: e.str("CALENDAR_TIMEZONE", "Asia/Jakarta"),
		CalendarEndpoint: e.str("CALENDAR_ENDPOINT", ""),

		CompanyName:    e.str("COMPANY_NAME", "Tour Operator"),
		CompanyAddress: e.str("COMPANY_ADDRESS", ""),
		PaymentNote:    e.str("PAYMENT_NOTE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.InvoiceDueDays < 0 {
		errs = append(errs, errors.New("INVOICE_DUE_DAYS must not be negative"))
	}
	if c.SendRateLimitMax < 1 {
		errs = append(errs, errors.New("SEND_RATE_LIMIT_MAX must be at least 1"))
	}
	if c.EmailFunctionURL != "" {
		if u, err := url.Parse(c.EmailFunctionURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("EMAIL_FUNCTION_URL is not an absolute URL: %q", c.EmailFunctionURL))
		}
	}
	if _, err := time.LoadLocation(c.CalendarTimeZone); err != nil {
		errs = append(errs, fmt.Errorf("CALENDAR_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// EmailEnabled reports whether invoices can be emailed.
func (c *Config) EmailEnabled() bool {
	return c.EmailFunctionURL != ""
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}

// envReader reads trimmed values; malformed numbers and durations fall back.
type envReader struct {
	k *koanf.Koanf
}

func (e envReader) str(key, fallback string) string {
	if v := strings.TrimSpace(e.k.String(key)); v != "" {
		return v
	}
	return fallback
}

func (e envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.k.String(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e envReader) duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(e.str(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func (e envReader) integer(key string, fallback int) int {
	n, err := strconv.Atoi(e.str(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func (e envReader) boolean(key string) bool {
	switch strings.ToLower(e.str(key, "")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// LoadForTests sets env for the duration of one Load call. Empty values unset
// the variable.
func LoadForTests(vars map[string]string) (*Config, error) {
	original := make(map[string]*string, len(vars))
	for key, value := range vars {
		if prev, ok := os.LookupEnv(key); ok {
			original[key] = &prev
		} else {
			original[key] = nil
		}
		if err := setEnv(key, value); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()

	var restoreErrs []error
	for key, prev := range original {
		if prev == nil {
			restoreErrs = append(restoreErrs, os.Unsetenv(key))
			continue
		}
		restoreErrs = append(restoreErrs, os.Setenv(key, *prev))
	}
	if err != nil {
		return nil, err
	}
	return cfg, errors.Join(restoreErrs...)
}

func setEnv(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}
