// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the key-value store backend, enrichment producers, identity
// verification, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Dispatch strategies accepted by DISPATCH_MODE.
const (
	DispatchDirect    = "direct"
	DispatchDelegated = "delegated"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StoreConfig selects and configures the key-value backend.
type StoreConfig struct {
	Backend       string        // memory|redis|sqlite
	RedisAddr     string        // REDIS_ADDR
	RedisUsername string        // REDIS_USERNAME
	RedisPassword string        // REDIS_PASSWORD
	RedisDB       int           // REDIS_DB
	DBPath        string        // DB_PATH (sqlite backend)
	PurgeInterval time.Duration // expired-row sweep for the sqlite backend
}

// EnrichConfig configures how dispatched domains are enriched.
type EnrichConfig struct {
	Mode string // direct|delegated

	// Direct fan-out (chat-completions endpoint).
	CompletionBaseURL string
	CompletionAPIKey  string
	CompletionModel   string
	CompletionTimeout time.Duration
	FanOutTimeout     time.Duration
	Prompts           []string // optional override; "||"-separated in ENRICH_PROMPTS

	// Delegated fan-out (automation engine).
	WebhookURL      string
	CallbackBaseURL string // public base URL the engine calls back on
	CallbackSecret  string // shared secret expected in X-Callback-Secret
}

// AuthConfig configures identity token verification.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage lifetimes
	ResultTTL      time.Duration // result:{id}
	StagingTTL     time.Duration // temp_profile:{id}
	IdempotencyTTL time.Duration // dispatch_key:{key}

	Store  StoreConfig
	Enrich EnrichConfig
	Auth   AuthConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage lifetimes
		ResultTTL:      getdur("RESULT_TTL", time.Hour),
		StagingTTL:     getdur("STAGING_TTL", time.Hour),
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", time.Hour),

		Store: StoreConfig{
			Backend:       strings.ToLower(getenv("STORE_BACKEND", StoreMemory)),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisUsername: strings.TrimSpace(os.Getenv("REDIS_USERNAME")),
			RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
			RedisDB:       getint("REDIS_DB", 0),
			DBPath:        getenv("DB_PATH", "kv.db"),
			PurgeInterval: getdur("PURGE_INTERVAL", 5*time.Minute),
		},

		Enrich: EnrichConfig{
			Mode:              strings.ToLower(getenv("DISPATCH_MODE", DispatchDirect)),
			CompletionBaseURL: strings.TrimRight(getenv("COMPLETION_BASE_URL", "https://api.perplexity.ai"), "/"),
			CompletionAPIKey:  os.Getenv("COMPLETION_API_KEY"),
			CompletionModel:   getenv("COMPLETION_MODEL", "sonar"),
			CompletionTimeout: getdur("COMPLETION_TIMEOUT", 30*time.Second),
			FanOutTimeout:     getdur("FANOUT_TIMEOUT", 60*time.Second),
			Prompts:           splitSep(os.Getenv("ENRICH_PROMPTS"), "||"),
			WebhookURL:        strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
			CallbackBaseURL:   strings.TrimRight(strings.TrimSpace(os.Getenv("CALLBACK_BASE_URL")), "/"),
			CallbackSecret:    os.Getenv("CALLBACK_SECRET"),
		},

		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			JWTIssuer: getenv("JWT_ISSUER", "go-enrich-backend"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-enrich-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints. Load calls it; tests that build a
// Config by hand may call it directly.
func (cfg Config) Validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.ResultTTL <= 0 || cfg.StagingTTL <= 0 || cfg.IdempotencyTTL <= 0 {
		return errors.New("RESULT_TTL, STAGING_TTL and IDEMPOTENCY_TTL must be > 0")
	}

	switch cfg.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(cfg.Store.RedisAddr) == "" {
			return errors.New("REDIS_ADDR must not be empty when STORE_BACKEND=redis")
		}
	case StoreSQLite:
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return errors.New("DB_PATH must not be empty when STORE_BACKEND=sqlite")
		}
		if cfg.Store.PurgeInterval <= 0 {
			return errors.New("PURGE_INTERVAL must be > 0")
		}
	default:
		return errors.New("STORE_BACKEND must be one of: memory, redis, sqlite")
	}

	switch cfg.Enrich.Mode {
	case DispatchDirect:
		if cfg.Enrich.CompletionAPIKey == "" {
			return errors.New("COMPLETION_API_KEY is required when DISPATCH_MODE=direct")
		}
		if cfg.Enrich.CompletionTimeout <= 0 || cfg.Enrich.FanOutTimeout <= 0 {
			return errors.New("COMPLETION_TIMEOUT and FANOUT_TIMEOUT must be > 0")
		}
	case DispatchDelegated:
		if cfg.Enrich.WebhookURL == "" || cfg.Enrich.CallbackBaseURL == "" {
			return errors.New("WEBHOOK_URL and CALLBACK_BASE_URL are required when DISPATCH_MODE=delegated")
		}
		if cfg.Enrich.CallbackSecret == "" {
			return errors.New("CALLBACK_SECRET is required when DISPATCH_MODE=delegated")
		}
	default:
		return errors.New("DISPATCH_MODE must be one of: direct, delegated")
	}

	if len(cfg.Auth.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 bytes")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string { return splitSep(s, ",") }

func splitSep(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
