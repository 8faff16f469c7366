package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
	assert.Equal(t, 300, cfg.API.CacheTTLSecs)
	assert.Equal(t, "https://identitytoolkit.googleapis.com", cfg.Auth.BaseURL)
	assert.True(t, cfg.Location.UseIP)
	assert.Equal(t, "http://ip-api.com/json", cfg.Location.IPBaseURL)
	assert.Equal(t, 12, cfg.Map.Zoom)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
api:
  base_url: https://waste.example.com
log:
  level: debug
  format: console
server:
  port: 9090
map:
  zoom: 10
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://waste.example.com", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Map.Zoom)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtemp(t)

	yaml := `
log:
  level: debug
api:
  base_url: https://from-file.example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.yaml"), []byte(yaml), 0644))

	t.Setenv("WASTEMAP_API_BASE_URL", "https://from-env.example.com")
	t.Setenv("WASTEMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "https://from-env.example.com", cfg.API.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("WASTEMAP_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
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
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:5000"
	cfg.API.TimeoutSecs = 30
	cfg.Map.Zoom = 12
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun_RequiresAuthKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "auth.api_key is required")

	cfg.Auth.APIKey = "key-123"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.API.BaseURL = ""

	err := cfg.Validate("sectors")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url is required")
}

func TestValidate_ZoomBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Map.Zoom = 0
	err := cfg.Validate("sectors")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "map.zoom must be between 1 and 21")

	cfg.Map.Zoom = 22
	err = cfg.Validate("sectors")
	assert.Error(t, err)

	cfg.Map.Zoom = 21
	assert.NoError(t, cfg.Validate("sectors"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
