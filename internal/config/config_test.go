package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
bridge:
  url: http://127.0.0.1:8080
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, "data/kiwoomapi.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Bridge.TimeoutSeconds)
	assert.Equal(t, "paper", cfg.Bootstrap.TradeMode)
	assert.Equal(t, int64(1_000_000), cfg.Bootstrap.MaxBuyAmount)
	assert.Equal(t, int64(500_000), cfg.Bootstrap.MaxBuyPerInstrument)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
server:
  addr: ":9000"
database:
  path: /tmp/engine.db
bridge:
  url: http://10.0.0.5:8080
  timeout_seconds: 3
bootstrap:
  name: main
  trade_mode: live
  account_no: "8012345-01"
  app_key: key
  app_secret: secret
  max_buy_per_instrument: 750000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Bridge.TimeoutSeconds)
	assert.Equal(t, "live", cfg.Bootstrap.TradeMode)
	assert.Equal(t, int64(750_000), cfg.Bootstrap.MaxBuyPerInstrument)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing bridge url", func(t *testing.T) {
		_, err := Load(writeConfig(t, "app:\n  log_level: info\n"))
		assert.ErrorContains(t, err, "bridge.url")
	})

	t.Run("bad trade mode", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
bridge:
  url: http://127.0.0.1:8080
bootstrap:
  trade_mode: dry-run
`))
		assert.ErrorContains(t, err, "trade_mode")
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
app:
  log_level: loud
bridge:
  url: http://127.0.0.1:8080
`))
		assert.ErrorContains(t, err, "log_level")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Load(" ")
		assert.Error(t, err)
	})
}
