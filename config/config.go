/*
Package config loads process settings from the environment.

PURPOSE:
  Every tunable of the server lives here: listen address, SQLite path,
  persistence debounce, extraction credentials and timeouts, CORS origins.
  Values come from environment variables, optionally seeded from a
  .env / config.env file in the working directory. Environment wins.

SEE ALSO:
  - cmd/server/main.go: The only caller of Load
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	HTTP       HTTPConfig
	DB         DBConfig
	Extraction ExtractionConfig
}

type AppConfig struct {
	Env      string // development, production
	LogLevel string
	SeedDemo bool // load the demo catalog when the store is empty
}

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	Path            string
	PersistDebounce time.Duration
}

type ExtractionConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Retries int
}

// Enabled reports whether a key is configured. Without one, document
// ingestion still works but every extraction ends in the error state.
func (c ExtractionConfig) Enabled() bool { return c.APIKey != "" }

// =============================================================================
// LOADING
// =============================================================================

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigType("env")
	v.AddConfigPath(".")
	for _, name := range []string{".env", "config"} {
		v.SetConfigName(name)
		_ = v.MergeInConfig() // optional
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
			SeedDemo: v.GetBool("SEED_DEMO"),
		},
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Path:            v.GetString("DB_PATH"),
			PersistDebounce: time.Duration(v.GetInt("PERSIST_DEBOUNCE_MS")) * time.Millisecond,
		},
		Extraction: ExtractionConfig{
			APIKey:  v.GetString("GEMINI_API_KEY"),
			Model:   v.GetString("GEMINI_MODEL"),
			BaseURL: v.GetString("GEMINI_BASE_URL"),
			Timeout: time.Duration(v.GetInt("EXTRACTION_TIMEOUT_SECONDS")) * time.Second,
			Retries: v.GetInt("EXTRACTION_RETRIES"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEED_DEMO", false)
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")
	v.SetDefault("DB_PATH", "bakery.db")
	v.SetDefault("PERSIST_DEBOUNCE_MS", 500)
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("EXTRACTION_TIMEOUT_SECONDS", 60)
	v.SetDefault("EXTRACTION_RETRIES", 3)
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: HTTP_PORT %d out of range", c.HTTP.Port)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("config: DB_PATH is empty")
	}
	if c.DB.PersistDebounce < 0 {
		return fmt.Errorf("config: PERSIST_DEBOUNCE_MS must not be negative")
	}
	if c.Extraction.Retries < 0 {
		return fmt.Errorf("config: EXTRACTION_RETRIES must not be negative")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
