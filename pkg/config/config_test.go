package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.yaml")
	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false), "existing file is kept")
	require.NoError(t, WriteDefault(path, true))

	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestReadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
resolver:
  http_timeout: 5s
  strategies: [douyin]
redis:
  address: localhost:6379
`), 0o644))

	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Resolver.HTTPTimeout)
	assert.Equal(t, []string{"douyin"}, cfg.Resolver.Strategies)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 20*time.Second, cfg.Resolver.NavigationTimeout)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestFindPrefersEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/somewhere/config.yaml")
	assert.Equal(t, "/somewhere/config.yaml", Find())
}
