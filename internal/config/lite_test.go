package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "mock", cfg.HISMode)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	// Clear relevant env vars
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "mock", cfg.HISMode)
	assert.Equal(t, "stdio", cfg.Transport)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables
	os.Setenv("PHARMACY_DATA_DIR", "/tmp/test-pharmacy")
	os.Setenv("PHARMACY_CACHE_MAX_ITEMS", "500")
	os.Setenv("PHARMACY_CACHE_TTL", "12h")
	os.Setenv("PHARMACY_HIS_MODE", "http")
	os.Setenv("PHARMACY_HIS_BASE_URL", "http://his.example.com")
	os.Setenv("PHARMACY_TRANSPORT", "http")
	os.Setenv("PHARMACY_HTTP_PORT", "9090")
	os.Setenv("PHARMACY_LOG_LEVEL", "debug")
	os.Setenv("OPENFDA_API_KEY", "test-key")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-pharmacy", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "http", cfg.HISMode)
	assert.Equal(t, "http://his.example.com", cfg.HISBaseURL)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "test-key", cfg.OpenFDAAPIKey)
}

func TestLoadLiteConfig_InvalidNumbersIgnored(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("PHARMACY_CACHE_MAX_ITEMS", "not-a-number")
	os.Setenv("PHARMACY_HTTP_PORT", "-1")
	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_HistoryDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.pharmacy-mcp"}

	path := cfg.HistoryDBPath()

	assert.Equal(t, "/home/user/.pharmacy-mcp/history.db", path)
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.pharmacy-mcp"}

	path := cfg.ExportDir()

	assert.Equal(t, "/home/user/.pharmacy-mcp/exports", path)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "pharmacy")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	// Verify directories exist
	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"PHARMACY_DATA_DIR",
		"PHARMACY_CACHE_MAX_ITEMS",
		"PHARMACY_CACHE_TTL",
		"PHARMACY_HIS_MODE",
		"PHARMACY_HIS_BASE_URL",
		"PHARMACY_HIS_API_KEY",
		"PHARMACY_TRANSPORT",
		"PHARMACY_HTTP_PORT",
		"PHARMACY_LOG_LEVEL",
		"PHARMACY_LOG_FORMAT",
		"OPENFDA_API_KEY",
		"NHI_API_KEY",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
