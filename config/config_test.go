package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"TEAMVAULT_HOST", "TEAMVAULT_PORT", "TEAMVAULT_DB_FILE", "TEAMVAULT_STATIC_DIR",
		"TEAMVAULT_WORKDIR", "TEAMVAULT_DATABASE_URL", "TEAMVAULT_MAX_BODY_BYTES",
		"TEAMVAULT_SHUTDOWN_TIMEOUT", "TEAMVAULT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "db.json", cfg.DBFile)
	assert.Equal(t, ".", cfg.StaticDir)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TEAMVAULT_HOST", "127.0.0.1")
	t.Setenv("TEAMVAULT_PORT", "9090")
	t.Setenv("TEAMVAULT_DB_FILE", "vault.json")
	t.Setenv("TEAMVAULT_STATIC_DIR", "public")
	t.Setenv("TEAMVAULT_MAX_BODY_BYTES", "1024")
	t.Setenv("TEAMVAULT_SHUTDOWN_TIMEOUT", "250ms")
	t.Setenv("TEAMVAULT_LOG_LEVEL", "DEBUG")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "vault.json", cfg.DBFile)
	assert.Equal(t, "public", cfg.StaticDir)
	assert.Equal(t, int64(1024), cfg.MaxBodyBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"TEAMVAULT_PORT", "http"},
		{"TEAMVAULT_PORT", "70000"},
		{"TEAMVAULT_MAX_BODY_BYTES", "-1"},
		{"TEAMVAULT_SHUTDOWN_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
