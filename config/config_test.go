package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cryptodesk/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// go test -v --run TestLoadFileDefaults
func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, "environment: dev\n")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Aggregator.CacheDuration)
	assert.Equal(t, 8*time.Second, cfg.Aggregator.SourceTimeout)
	assert.Equal(t, "CG-demo", cfg.Aggregator.CoinGecko.DemoKey)
	assert.Equal(t, 15*time.Second, cfg.Client.CacheDuration)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Client.MaxRetries)
	assert.Equal(t, time.Second, cfg.Client.RetryDelay)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Redis.Enabled)
}

// go test -v --run TestLoadFileOverrides
func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
aggregator:
  cache_duration: 10s
  binance:
    base_url: http://binance.local
log:
  level: debug
`)
	t.Setenv("CLIENT_MAX_RETRIES", "5")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Aggregator.CacheDuration)
	assert.Equal(t, "http://binance.local", cfg.Aggregator.Binance.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Client.MaxRetries)
}

// go test -v --run TestLoadFileMalformed
func TestLoadFileMalformed(t *testing.T) {
	path := writeConfig(t, "aggregator: [unclosed\n")

	_, err := config.LoadFile(path)
	require.Error(t, err)
}

func TestResolveDemoKeyOutsideProd(t *testing.T) {
	cg := config.CoinGeckoConfig{DemoKey: "CG-demo", APIKeyParam: "/cryptodesk/coingecko"}
	assert.Equal(t, "CG-demo", cg.ResolveDemoKey("dev"))
}
