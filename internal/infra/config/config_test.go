package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, 10*time.Second, cfg.Predictor.Timeout)
	require.Equal(t, "Could not connect to the prediction service.", cfg.Predictor.Messages.Network)
	require.False(t, cfg.Session.Valkey.Enabled)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9000"
predictor:
  baseUrl: "http://model.internal:8000"
  timeout: 3s
session:
  ttl: 30m
  staleAfter: 10s
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PREDICTOR_BASE_URL", "http://override:8000")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTP.Address)
	require.Equal(t, "http://override:8000", cfg.Predictor.BaseURL)
	require.Equal(t, 3*time.Second, cfg.Predictor.Timeout)
	require.Equal(t, 30*time.Minute, cfg.Session.TTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]func(c *Config){
		"relative base url":       func(c *Config) { c.Predictor.BaseURL = "/predict" },
		"zero timeout":            func(c *Config) { c.Predictor.Timeout = 0 },
		"write timeout too short": func(c *Config) { c.HTTP.WriteTimeout = c.Predictor.Timeout },
		"stale before timeout":    func(c *Config) { c.Session.StaleAfter = time.Second },
		"valkey without addr":     func(c *Config) { c.Session.Valkey.Enabled = true },
		"archive without bucket": func(c *Config) {
			c.History.Archive.Enabled = true
			c.History.Archive.Endpoint = "http://minio:9000"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadReadsDotenvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("HTTP_ADDRESS", ":7000")
	// registers restoration of the variable, then clears it so .env can supply it
	t.Setenv("PREDICTOR_BASE_URL", "")
	require.NoError(t, os.Unsetenv("PREDICTOR_BASE_URL"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"PREDICTOR_BASE_URL=http://dotenv:8000\nHTTP_ADDRESS=:6000\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://dotenv:8000", cfg.Predictor.BaseURL)
	require.Equal(t, ":7000", cfg.HTTP.Address)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
