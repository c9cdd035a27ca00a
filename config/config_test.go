package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Equal(t, int64(50*1024*1024), cfg.Uploads.MaxSize)

	max, err := cfg.MaxPrice()
	require.NoError(t, err)
	assert.Equal(t, "1000", max.String())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 8081
  public_url: https://example.test
store:
  type: memory
media:
  timeout: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "https://example.test", cfg.Server.PublicURL)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, 90*time.Second, cfg.Media.Timeout)
	assert.Equal(t, "ffmpeg", cfg.Media.FFmpeg)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
port = 9090

[uploads]
dir = "/srv/uploads"

[mint]
max_price = "250.5"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/uploads", cfg.Uploads.Dir)

	max, err := cfg.MaxPrice()
	require.NoError(t, err)
	assert.Equal(t, "250.5", max.String())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StoreFile, cfg.Store.Type)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("STORE_TYPE", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, StoreRedis, cfg.Store.Type)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Media.FFmpeg)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty public url", func(c *Config) { c.Server.PublicURL = "" }},
		{"unknown store", func(c *Config) { c.Store.Type = "sqlite" }},
		{"file store without path", func(c *Config) { c.Store.Path = "" }},
		{"negative upload size", func(c *Config) { c.Uploads.MaxSize = -1 }},
		{"bad max price", func(c *Config) { c.Mint.MaxPrice = "lots" }},
		{"negative max price", func(c *Config) { c.Mint.MaxPrice = "-1" }},
		{"royalty out of range", func(c *Config) { c.Mint.RoyaltyBPS = 20000 }},
		{"negative timeout", func(c *Config) { c.Media.Timeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
