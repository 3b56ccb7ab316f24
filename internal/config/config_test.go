package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ganot/inscritos/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INSCRITOS_CONFIG_PATH", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Dashboard.PageSize)
	require.Equal(t, 250*time.Millisecond, cfg.Dashboard.Debounce)
	require.Equal(t, 4, cfg.Dashboard.Concurrency)
	require.Equal(t, float64(10), cfg.API.RequestsPerSecond)
	require.Equal(t, 5, cfg.API.Burst)
	require.Equal(t, "stdio", cfg.Server.Transport)
	require.Empty(t, cfg.Import.Dir)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  url: https://backend.example/api
  token: from-file
dashboard:
  page_size: 25
  debounce: 400ms
export:
  s3_bucket: reports
import:
  dir: /srv/cargas
`), 0o600))

	t.Setenv("INSCRITOS_CONFIG_PATH", path)
	t.Setenv("INSCRITOS_API_TOKEN", "from-env")
	t.Setenv("INSCRITOS_SERVER_PORT", "9090")
	t.Setenv("INSCRITOS_TRANSPORT", "http")
	t.Setenv("INSCRITOS_SERVER_TOKEN", "mcp-secret")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "https://backend.example/api", cfg.API.URL)
	require.Equal(t, "from-env", cfg.API.Token)
	require.Equal(t, 25, cfg.Dashboard.PageSize)
	require.Equal(t, 400*time.Millisecond, cfg.Dashboard.Debounce)
	require.Equal(t, "reports", cfg.Export.S3Bucket)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "http", cfg.Server.Transport)
	require.Equal(t, "mcp-secret", cfg.Server.Token)
	require.Equal(t, "/srv/cargas", cfg.Import.Dir)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"INSCRITOS_SERVER_PORT": "abc",
		"INSCRITOS_DEBOUNCE":    "soon",
		"INSCRITOS_API_RATE":    "fast",
		"INSCRITOS_TRANSPORT":   "carrier-pigeon",
		"INSCRITOS_PAGE_SIZE":   "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := config.Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("INSCRITOS_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := config.Load()
	require.Error(t, err)
}

func TestLogConfig_SlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for level, want := range cases {
		require.Equal(t, want, config.LogConfig{Level: level}.SlogLevel(), level)
	}
}
