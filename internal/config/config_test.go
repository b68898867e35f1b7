package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "data/profiles.db", cfg.DBDSN)
	assert.Equal(t, TokenModeOpaque, cfg.TokenMode)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"PORT":                 "9090",
		"DB_DRIVER":            "Postgres",
		"DB_DSN":               "postgres://u:p@localhost:5432/profiles",
		"TOKEN_MODE":           "jwt",
		"JWT_SECRET":           "0123456789abcdef0123",
		"TOKEN_TTL":            "15m",
		"BCRYPT_COST":          "10",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "json",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example ,",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, TokenModeJWT, cfg.TokenMode)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestFromLookup_CollectsAllErrors(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"PORT":        "eighty",
		"DB_DRIVER":   "mysql",
		"TOKEN_MODE":  "jwt",
		"BCRYPT_COST": "2",
		"TOKEN_TTL":   "soon",
	}))
	require.Error(t, err)

	for _, key := range []string{"PORT", "DB_DRIVER", "JWT_SECRET", "BCRYPT_COST", "TOKEN_TTL"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestFromLookup_UnknownTokenMode(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{"TOKEN_MODE": "session"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_MODE")
}
