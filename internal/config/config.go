// Package config loads and validates application configuration from
// environment variables, optionally layered over a config file.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// RedisURL enables the fuel price cache when set.
	RedisURL string
	// FuelCacheTTL is how long a cached fuel price lookup lives. Defaults to a week.
	FuelCacheTTL time.Duration
	// FuelLookupTimeout bounds the wait for a fuel price while saving a trip.
	FuelLookupTimeout time.Duration

	// AMQPURL enables trip events when set.
	AMQPURL      string
	AMQPExchange string

	// CheckpointPath is the SQLite file that holds in-progress tracked trips.
	CheckpointPath string

	// SaveMaxAttempts is how many times a trip commit is tried before the
	// failure is reported. 1 means no retry.
	SaveMaxAttempts  int
	SaveRetryBackoff time.Duration

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64
}

var defaults = map[string]string{
	"PORT":                "8080",
	"LOG_LEVEL":           "info",
	"CORS_ORIGINS":        "http://localhost:5173",
	"FUEL_CACHE_TTL":      "168h",
	"FUEL_LOOKUP_TIMEOUT": "5s",
	"AMQP_EXCHANGE":       "carless.events",
	"CHECKPOINT_PATH":     "carless-tracking.db",
	"SAVE_MAX_ATTEMPTS":   "1",
	"SAVE_RETRY_BACKOFF":  "200ms",
	"MAX_BODY_BYTES":      "1048576",
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set and any
// values that cannot be parsed.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile is Load with the keys in the file at path as a base layer.
// Environment variables win over the file. An empty path reads no file.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config.LoadFile: %w", err)
		}
	}

	p := parser{v: v}
	cfg := Config{
		Port:              p.str("PORT"),
		LogLevel:          p.str("LOG_LEVEL"),
		CORSOrigins:       splitCSV(p.str("CORS_ORIGINS")),
		DatabaseURL:       p.required("DATABASE_URL"),
		RedisURL:          p.str("REDIS_URL"),
		FuelCacheTTL:      p.duration("FUEL_CACHE_TTL"),
		FuelLookupTimeout: p.duration("FUEL_LOOKUP_TIMEOUT"),
		AMQPURL:           p.str("AMQP_URL"),
		AMQPExchange:      p.str("AMQP_EXCHANGE"),
		CheckpointPath:    p.str("CHECKPOINT_PATH"),
		SaveMaxAttempts:   int(p.integer("SAVE_MAX_ATTEMPTS", 1)),
		SaveRetryBackoff:  p.duration("SAVE_RETRY_BACKOFF"),
		MaxBodyBytes:      p.integer("MAX_BODY_BYTES", 1),
	}

	if len(p.missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(p.invalid, "; "))
	}
	return cfg, nil
}

// parser reads typed values from v and collects every problem so they can
// be reported together.
type parser struct {
	v       *viper.Viper
	missing []string
	invalid []string
}

// str returns the trimmed value, falling back to the default when the
// variable is set but empty.
func (p *parser) str(key string) string {
	if s := strings.TrimSpace(p.v.GetString(key)); s != "" {
		return s
	}
	return defaults[key]
}

func (p *parser) required(key string) string {
	s := p.str(key)
	if s == "" {
		p.missing = append(p.missing, key)
	}
	return s
}

func (p *parser) duration(key string) time.Duration {
	d, err := time.ParseDuration(p.str(key))
	if err != nil || d < 0 {
		p.invalid = append(p.invalid, fmt.Sprintf("%s=%q is not a duration", key, p.str(key)))
		return 0
	}
	return d
}

func (p *parser) integer(key string, min int64) int64 {
	n, err := strconv.ParseInt(p.str(key), 10, 64)
	if err != nil || n < min {
		p.invalid = append(p.invalid, fmt.Sprintf("%s=%q must be an integer >= %d", key, p.str(key), min))
		return 0
	}
	return n
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
