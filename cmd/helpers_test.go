package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/briefing-cli/internal/config"
)

const requestJSON = `{
  "escritorioId": "esc-1",
  "nome": "Casa Jardim",
  "briefing": {
    "areaConstruida": 150,
    "tipologia": "residencial",
    "complexidade": "MEDIA",
    "disciplinasNecessarias": ["ARQUITETURA"]
  }
}`

// testConfig returns a configuration backed by a temp SQLite file.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
		},
		Dispatch: config.DispatchConfig{Workers: 2, BatchTimeoutSecs: 5, RestartBackoffMs: 10},
		Fallback: config.FallbackConfig{DefaultArea: 150},
		Server:   config.ServerConfig{Port: 8080, RateLimit: 100, RateBurst: 100, AllowedOrigins: []string{"*"}, ShutdownTimeout: 1},
	}
}

// newTestEnv installs a temp-SQLite config and wires the full environment.
func newTestEnv(t *testing.T) *appEnv {
	t.Helper()
	cfg = testConfig(t)
	env, err := initEnv(context.Background())
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
