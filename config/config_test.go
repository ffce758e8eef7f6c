package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "bakery.db", cfg.DB.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.DB.PersistDebounce)
	assert.Equal(t, 60*time.Second, cfg.Extraction.Timeout)
	assert.Equal(t, 3, cfg.Extraction.Retries)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.HTTP.AllowedOrigins)
	assert.False(t, cfg.Extraction.Enabled())
	assert.False(t, cfg.App.SeedDemo)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_PATH", "/var/lib/bakery/data.db")
	t.Setenv("PERSIST_DEBOUNCE_MS", "50")
	t.Setenv("GEMINI_API_KEY", "k-123")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://erp.example.com , ")
	t.Setenv("SEED_DEMO", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "/var/lib/bakery/data.db", cfg.DB.Path)
	assert.Equal(t, 50*time.Millisecond, cfg.DB.PersistDebounce)
	assert.True(t, cfg.Extraction.Enabled())
	assert.Equal(t, []string{"https://erp.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.App.SeedDemo)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load()
	assert.ErrorContains(t, err, "HTTP_PORT")
}
