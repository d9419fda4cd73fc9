package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("KID_SESSION_MAX_AGE", "")
	t.Setenv("TIMEZONE", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, 30*24*time.Hour, cfg.KidSessionMaxAge)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name:  "production environment",
			key:   "APP_ENV",
			value: "Production",
			check: func(t *testing.T, cfg *Config) { assert.True(t, cfg.IsProduction()) },
		},
		{
			name:  "kid session lifetime",
			key:   "KID_SESSION_MAX_AGE",
			value: "2h",
			check: func(t *testing.T, cfg *Config) { assert.Equal(t, 2*time.Hour, cfg.KidSessionMaxAge) },
		},
		{
			name:  "invalid duration falls back",
			key:   "SESSION_DURATION",
			value: "soon",
			check: func(t *testing.T, cfg *Config) { assert.Equal(t, 24*time.Hour, cfg.SessionDuration) },
		},
		{
			name:  "unknown timezone falls back to UTC",
			key:   "TIMEZONE",
			value: "Mars/Olympus_Mons",
			check: func(t *testing.T, cfg *Config) { assert.Equal(t, time.UTC, cfg.Location) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			tt.check(t, Load())
		})
	}
}
