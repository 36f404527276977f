// Package config loads service configuration from the environment.
//
// Values are read from process environment variables. A local .env file is
// loaded first when present (via godotenv) so developers can run the service
// without exporting every variable; real environment variables always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration for the service.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Clarifai  ClarifaiConfig
	HTTP      HTTPConfig
}

// ServiceConfig identifies the running service in logs, traces and profiles.
type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

// LoggingConfig holds the zerolog level (debug, info, warn, error).
type LoggingConfig struct {
	Level string
}

// TracingConfig configures the OTLP/HTTP span exporter and head sampling.
type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

// ProfilingConfig configures continuous profiling to Pyroscope.
type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

// DatabaseConfig configures the PostgreSQL pool holding the login and users tables.
type DatabaseConfig struct {
	URL         string
	MaxConns    int32
	AutoMigrate bool
}

// RedisConfig configures the session store connection.
// URL takes precedence over Host/Port when set.
type RedisConfig struct {
	URL          string
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
	SessionTTL   time.Duration
}

// AuthConfig configures token signing and password hashing.
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	BcryptCost   int
	StoreTimeout time.Duration
}

// ClarifaiConfig holds the face-detection vendor credentials and model coordinates.
type ClarifaiConfig struct {
	BaseURL        string
	PAT            string
	UserID         string
	AppID          string
	ModelID        string
	ModelVersionID string
	Timeout        time.Duration
}

// HTTPConfig holds CORS, request size and shutdown settings.
// Durations are kept as strings and parsed by the Get*Duration helpers.
type HTTPConfig struct {
	CORSAllowedOrigins  []string
	BodyLimitBytes      int64
	ShutdownTimeout     string
	ReadinessDrainDelay string
}

// Load reads configuration from .env (optional) and the environment.
func Load() *Config {
	// Missing .env is the normal case in containers.
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "smartbrain-service"),
			Version: getEnv("VERSION", "dev"),
			Env:     getEnv("ENV", "development"),
			Port:    getEnv("PORT", "3000"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracing: TracingConfig{
			Enabled:    getEnvBool("TRACING_ENABLED", false),
			Endpoint:   getEnv("OTEL_COLLECTOR_ENDPOINT", "localhost:4318"),
			SampleRate: getEnvFloat("OTEL_SAMPLE_RATE", 0.1),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PYROSCOPE_ENDPOINT", "http://localhost:4040"),
		},
		Database: DatabaseConfig{
			URL:         firstEnv("DATABASE_URL", "POSTGRES_URI"),
			MaxConns:    int32(getEnvInt("DB_MAX_CONNS", 10)),
			AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			KeyPrefix:    getEnv("SESSION_KEY_PREFIX", ""),
			SessionTTL:   getEnvDuration("SESSION_TTL", 0),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     getEnvDuration("TOKEN_TTL", 48*time.Hour),
			BcryptCost:   getEnvInt("BCRYPT_COST", 10),
			StoreTimeout: getEnvDuration("STORE_TIMEOUT", 3*time.Second),
		},
		Clarifai: ClarifaiConfig{
			BaseURL:        getEnv("CLARIFAI_BASE_URL", "https://api.clarifai.com"),
			PAT:            getEnv("CLARIFAI_PAT", ""),
			UserID:         getEnv("CLARIFAI_USER_ID", ""),
			AppID:          getEnv("CLARIFAI_APP_ID", ""),
			ModelID:        getEnv("CLARIFAI_MODEL_ID", "face-detection"),
			ModelVersionID: getEnv("CLARIFAI_MODEL_VERSION_ID", "6dc7e46bc9124c5c8824be4822abe105"),
			Timeout:        getEnvDuration("CLARIFAI_TIMEOUT", 10*time.Second),
		},
		HTTP: HTTPConfig{
			CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
			BodyLimitBytes:      int64(getEnvInt("BODY_LIMIT_BYTES", 10<<20)),
			ShutdownTimeout:     getEnv("SHUTDOWN_TIMEOUT", "10s"),
			ReadinessDrainDelay: getEnv("READINESS_DRAIN_DELAY", "5s"),
		},
	}
}

// Validate reports every configuration problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %v", c.Tracing.SampleRate))
	}
	if c.HTTP.BodyLimitBytes <= 0 {
		errs = append(errs, errors.New("BODY_LIMIT_BYTES must be positive"))
	}
	if _, err := time.ParseDuration(c.HTTP.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err))
	}
	if _, err := time.ParseDuration(c.HTTP.ReadinessDrainDelay); err != nil {
		errs = append(errs, fmt.Errorf("READINESS_DRAIN_DELAY: %w", err))
	}

	return errors.Join(errs...)
}

// GetShutdownTimeoutDuration returns the graceful shutdown budget, 10s on parse failure.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.HTTP.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetReadinessDrainDelayDuration returns how long /ready fails before the HTTP server stops.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.HTTP.ReadinessDrainDelay)
	if err != nil {
		return 0
	}
	return d
}

// RedisAddr returns host:port for the session store when no URL is configured.
func (c RedisConfig) RedisAddr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
