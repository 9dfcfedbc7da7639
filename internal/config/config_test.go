package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5.0, cfg.Server.RateLimit)
	assert.Equal(t, 10, cfg.Server.RateBurst)
	assert.True(t, cfg.DNS.Enabled)
	assert.Equal(t, 3*time.Second, cfg.DNS.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.DNS.CacheTTL)
	assert.Equal(t, "strict", cfg.Auth.Alignment)
	assert.Empty(t, cfg.Plugins)
}

func TestYAMLAndPluginOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
database:
  driver: SQLite
  url: "file:trust.db"
auth:
  alignment: relaxed
plugins:
  content_heuristics:
    enabled: false
  dns_records:
    timeout: 1s
`)))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "relaxed", cfg.Auth.Alignment)
	assert.Equal(t, false, cfg.Plugins["content_heuristics"]["enabled"])

	merged := cfg.Plugin("dns_records", map[string]any{"timeout": "3s", "enabled": true})
	assert.Equal(t, "1s", merged["timeout"])
	assert.Equal(t, true, merged["enabled"])
}

func TestUnsupportedDriver(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("database.driver", "mysql")
	_, err := Load(v)
	require.Error(t, err)
}
