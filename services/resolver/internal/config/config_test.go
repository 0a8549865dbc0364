package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("addr", ":8000", "")
	fs.StringSlice("strategies", nil, "")
	fs.Bool("no-browser", false, "")
	return fs
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":7000"
  rate_limit_per_minute: 10
resolver:
  cache_ttl: 5m
redis:
  address: "file:6379"
`), 0o644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("UNMARK_REDIS_ADDRESS", "env:6379")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--addr", ":9000", "--strategies", "douyin,aggregator", "--no-browser"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr, "flag beats file")
	assert.Equal(t, "env:6379", cfg.Redis.Address, "env beats file")
	assert.Equal(t, 10, cfg.Server.RateLimitPerMinute, "file beats default")
	assert.Equal(t, 5*time.Minute, cfg.Resolver.CacheTTL)
	assert.Equal(t, 15*time.Second, cfg.Resolver.HTTPTimeout, "default kept")
	assert.Equal(t, []string{"douyin", "aggregator"}, cfg.Resolver.Strategies)
	assert.False(t, cfg.Browser.Enabled)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.True(t, cfg.Browser.Enabled)
	assert.Len(t, cfg.Resolver.Strategies, 5)
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Server.TrustedProxies)

	t.Setenv("UNMARK_SERVER_TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")
	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
}
