package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "briefing.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "budgets", cfg.Store.Dynamo.BudgetsTable)
	assert.Equal(t, "office_configs", cfg.Store.Dynamo.ConfigsTable)
	assert.Equal(t, 0, cfg.Dispatch.Workers)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.BatchTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.RestartBackoff())
	assert.InDelta(t, 150.0, cfg.Fallback.DefaultArea, 1e-9)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 10.0, cfg.Server.RateLimit, 1e-9)
	assert.Equal(t, 20, cfg.Server.RateBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "proposals", cfg.Export.Bucket)
	assert.Equal(t, 3, cfg.Export.RetryAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/briefing
log:
  level: debug
  format: console
server:
  port: 9090
dispatch:
  workers: 8
office:
  defaults_file: escritorio.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/briefing", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Dispatch.Workers)
	assert.Equal(t, "escritorio.yaml", cfg.Office.DefaultsFile)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Dispatch.BatchTimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("BRIEFING_STORE_DRIVER", "dynamodb")
	t.Setenv("BRIEFING_LOG_LEVEL", "warn")
	t.Setenv("BRIEFING_STORE_DYNAMO_ENDPOINT", "http://localhost:8000")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "dynamodb", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "http://localhost:8000", cfg.Store.Dynamo.Endpoint)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BRIEFING_SERVER_PORT", "3000")
	t.Setenv("BRIEFING_FALLBACK_DEFAULT_AREA", "90.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.InDelta(t, 90.5, cfg.Fallback.DefaultArea, 1e-9)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [oops"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Store:    StoreConfig{Driver: "sqlite", DatabaseURL: "briefing.db", Dynamo: DynamoConfig{BudgetsTable: "budgets", ConfigsTable: "office_configs"}},
		Dispatch: DispatchConfig{BatchTimeoutSecs: 30, RestartBackoffMs: 500},
		Fallback: FallbackConfig{DefaultArea: 150},
		Server:   ServerConfig{Port: 8080, RateLimit: 10, RateBurst: 20},
		Export:   ExportConfig{Bucket: "proposals"},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "calculate defaults", mode: "calculate"},
		{name: "serve defaults", mode: "serve"},
		{name: "migrate defaults", mode: "migrate"},
		{name: "unknown mode", mode: "crawl", wantErr: "unknown mode"},
		{name: "bad port", mode: "serve", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "negative rate", mode: "serve", mutate: func(c *Config) { c.Server.RateLimit = -1 }, wantErr: "server.rate_limit"},
		{name: "export without endpoint", mode: "export", wantErr: "export.endpoint"},
		{name: "export ok", mode: "export", mutate: func(c *Config) { c.Export.Endpoint = "localhost:9000" }},
		{name: "unknown driver", mode: "calculate", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "store.driver"},
		{name: "postgres without url", mode: "migrate", mutate: func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = ""
		}, wantErr: "store.database_url"},
		{name: "dynamo ok without url", mode: "serve", mutate: func(c *Config) {
			c.Store.Driver = "dynamodb"
			c.Store.DatabaseURL = ""
		}},
		{name: "negative workers", mode: "calculate", mutate: func(c *Config) { c.Dispatch.Workers = -1 }, wantErr: "dispatch.workers"},
		{name: "zero timeout", mode: "calculate", mutate: func(c *Config) { c.Dispatch.BatchTimeoutSecs = 0 }, wantErr: "batch_timeout_secs"},
		{name: "zero default area", mode: "calculate", mutate: func(c *Config) { c.Fallback.DefaultArea = 0 }, wantErr: "default_area"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
