// Package config loads runtime settings from environment variables.
//
// A .env file in the working directory is read first if present (development
// convenience); real environment variables always win over it. Every invalid
// value is collected so a misconfigured deployment reports all problems at once.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported token modes.
const (
	TokenModeOpaque = "opaque"
	TokenModeJWT    = "jwt"
)

// Config holds every setting the server and the admin CLI need.
type Config struct {
	Port int

	DBDriver string // "sqlite" or "postgres"
	DBDSN    string // file path for sqlite, connection URL for postgres

	TokenMode  string        // "opaque" (stored, revocable) or "jwt" (stateless)
	JWTSecret  string        // required when TokenMode is "jwt"
	TokenTTL   time.Duration // 0 means opaque tokens never expire
	BcryptCost int

	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	CORSAllowedOrigins []string
}

// Load reads the .env file (if any) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
// Tests pass a map-backed lookup instead of mutating the process environment.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		Port:               r.int("PORT", 8080),
		DBDriver:           strings.ToLower(r.string("DB_DRIVER", DriverSQLite)),
		DBDSN:              r.string("DB_DSN", "data/profiles.db"),
		TokenMode:          strings.ToLower(r.string("TOKEN_MODE", TokenModeOpaque)),
		JWTSecret:          r.string("JWT_SECRET", ""),
		TokenTTL:           r.duration("TOKEN_TTL", 0),
		BcryptCost:         r.int("BCRYPT_COST", 12),
		LogFormat:          strings.ToLower(r.string("LOG_FORMAT", "text")),
		CORSAllowedOrigins: r.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(r.string("LOG_LEVEL", "info"))); err != nil {
		r.fail("LOG_LEVEL", err)
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		r.fail("DB_DRIVER", fmt.Errorf("unsupported driver %q", cfg.DBDriver))
	}

	switch cfg.TokenMode {
	case TokenModeOpaque:
	case TokenModeJWT:
		if len(cfg.JWTSecret) < 16 {
			r.fail("JWT_SECRET", errors.New("must be at least 16 characters when TOKEN_MODE=jwt"))
		}
	default:
		r.fail("TOKEN_MODE", fmt.Errorf("unsupported mode %q", cfg.TokenMode))
	}

	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		r.fail("BCRYPT_COST", fmt.Errorf("%d is outside bcrypt's 4..31 range", cfg.BcryptCost))
	}
	if cfg.TokenTTL < 0 {
		r.fail("TOKEN_TTL", errors.New("must not be negative"))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		r.fail("LOG_FORMAT", fmt.Errorf("unsupported format %q", cfg.LogFormat))
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
}

func (r *reader) string(key, fallback string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (r *reader) int(key string, fallback int) int {
	v := r.string(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, fmt.Errorf("expected an integer, got %q", v))
		return fallback
	}
	return n
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := r.string(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, fmt.Errorf("expected a duration such as 24h, got %q", v))
		return fallback
	}
	return d
}

func (r *reader) list(key string, fallback []string) []string {
	v := r.string(key, "")
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
