// Package config loads service configuration from environment variables,
// with an optional .env file filling whatever the environment leaves unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Server   Server
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CRIF     CRIFConfig
	Kafka    KafkaConfig

	// SessionTTL is how long an idle per-report bureau cache is kept.
	SessionTTL time.Duration
	// VendorCacheTTL is how long vendor responses are reused. Zero disables.
	VendorCacheTTL time.Duration
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig configures the report record store. An empty URL selects
// the in-memory store.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the shared vendor response cache. An empty URL
// selects the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type CRIFConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	Sandbox   bool
	RatePerS  float64
	RateBurst int
}

// KafkaConfig configures the audit sink. No brokers selects the in-memory
// sink.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv reads configuration from the environment and ./.env.
func FromEnv() (Config, error) {
	return Load(".env")
}

// Load reads configuration from the environment. Values from envFiles are
// used for variables the environment does not set; earlier files win.
// Missing files are skipped.
func Load(envFiles ...string) (Config, error) {
	fileVals := make(map[string]string)
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := fileVals[k]; !ok {
				fileVals[k] = v
			}
		}
	}
	return parse(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	})
}

func parse(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Server: Server{
			Addr:            e.str("CREDITLENS_ADDR", ":8080"),
			ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  e.str("LOG_LEVEL", "info"),
			Format: e.str("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:          e.str("DATABASE_URL", ""),
			MaxOpenConns: e.int("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: e.int("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		CRIF: CRIFConfig{
			BaseURL:   e.str("CRIF_BASE_URL", ""),
			APIKey:    e.str("CRIF_API_KEY", ""),
			Timeout:   e.duration("CRIF_TIMEOUT", 30*time.Second),
			Sandbox:   e.bool("CRIF_SANDBOX", true),
			RatePerS:  e.float("CRIF_RATE_PER_SEC", 5),
			RateBurst: e.int("CRIF_RATE_BURST", 5),
		},
		Kafka: KafkaConfig{
			Brokers:    e.list("KAFKA_BROKERS"),
			AuditTopic: e.str("AUDIT_TOPIC", "creditlens.audit"),
		},
		SessionTTL:     e.duration("SESSION_TTL", 30*time.Minute),
		VendorCacheTTL: e.duration("VENDOR_CACHE_TTL", 24*time.Hour),
	}
	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if !c.CRIF.Sandbox && c.CRIF.BaseURL == "" {
		errs = append(errs, errors.New("CRIF_BASE_URL is required when CRIF_SANDBOX is false"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.VendorCacheTTL < 0 {
		errs = append(errs, errors.New("VENDOR_CACHE_TTL must not be negative"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

// env reads typed values and collects parse errors.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e *env) int(key string, fallback int) int {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return fallback
	}
	return v
}

func (e *env) float(key string, fallback float64) float64 {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid number %q", key, raw))
		return fallback
	}
	return v
}

func (e *env) bool(key string, fallback bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return fallback
	}
	return v
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return v
}

func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.str(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
