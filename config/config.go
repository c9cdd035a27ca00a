// config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	Uploads   UploadsConfig   `yaml:"uploads" toml:"uploads"`
	Media     MediaConfig     `yaml:"media" toml:"media"`
	Mint      MintConfig      `yaml:"mint" toml:"mint"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
	// PublicURL prefixes every absolute URL embedded in metadata documents.
	PublicURL string `yaml:"public_url" toml:"public_url"`
}

type StoreConfig struct {
	Type  string      `yaml:"type" toml:"type"`
	Path  string      `yaml:"path" toml:"path"`
	Redis RedisConfig `yaml:"redis" toml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Key      string `yaml:"key" toml:"key"`
}

type UploadsConfig struct {
	Dir     string `yaml:"dir" toml:"dir"`
	MaxSize int64  `yaml:"max_size" toml:"max_size"`
}

type MediaConfig struct {
	FFmpeg       string        `yaml:"ffmpeg" toml:"ffmpeg"`
	FFprobe      string        `yaml:"ffprobe" toml:"ffprobe"`
	AudioBitrate string        `yaml:"audio_bitrate" toml:"audio_bitrate"`
	Timeout      time.Duration `yaml:"timeout" toml:"timeout"`
}

type MintConfig struct {
	MaxPrice   string `yaml:"max_price" toml:"max_price"`
	Symbol     string `yaml:"symbol" toml:"symbol"`
	RoyaltyBPS int    `yaml:"royalty_bps" toml:"royalty_bps"`
}

type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" toml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" toml:"requests_per_min"`
	RevealPerMin   int  `yaml:"reveal_per_min" toml:"reveal_per_min"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      3000,
			PublicURL: "https://r3g1m3n.xyz",
		},
		Store: StoreConfig{
			Type: StoreFile,
			Path: "mints.json",
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "mints:snapshot",
			},
		},
		Uploads: UploadsConfig{
			Dir:     "uploads",
			MaxSize: 50 * 1024 * 1024,
		},
		Media: MediaConfig{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			AudioBitrate: "192k",
		},
		Mint: MintConfig{
			MaxPrice:   "1000",
			Symbol:     "MUSIC",
			RoyaltyBPS: 500,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 100,
			RevealPerMin:   20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads an optional .env file, then the config file at path (if any),
// then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is OK, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

func (c *Config) loadFromEnv() {
	// Server
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		c.Server.PublicURL = v
	}

	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Store.Redis.DB = db
		}
	}

	if v := os.Getenv("UPLOADS_DIR"); v != "" {
		c.Uploads.Dir = v
	}
	if v := os.Getenv("UPLOADS_MAX_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Uploads.MaxSize = n
		}
	}

	if v := os.Getenv("FFMPEG_PATH"); v != "" {
		c.Media.FFmpeg = v
	}
	if v := os.Getenv("FFPROBE_PATH"); v != "" {
		c.Media.FFprobe = v
	}
	if v := os.Getenv("MEDIA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Media.Timeout = d
		}
	}

	if v := os.Getenv("MINT_MAX_PRICE"); v != "" {
		c.Mint.MaxPrice = v
	}

	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.RequestsPerMin = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_REVEAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.RevealPerMin = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.PublicURL == "" {
		return fmt.Errorf("public_url is required")
	}

	switch c.Store.Type {
	case StoreFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required when store type is 'file'")
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required when store type is 'redis'")
		}
		if c.Store.Redis.Key == "" {
			return fmt.Errorf("redis key is required when store type is 'redis'")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid store type: %s (must be 'file', 'redis' or 'memory')", c.Store.Type)
	}

	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads dir is required")
	}
	if c.Uploads.MaxSize <= 0 {
		return fmt.Errorf("uploads max_size must be positive")
	}

	if c.Media.FFmpeg == "" {
		return fmt.Errorf("media ffmpeg binary is required")
	}
	if c.Media.Timeout < 0 {
		return fmt.Errorf("media timeout cannot be negative")
	}

	if _, err := c.MaxPrice(); err != nil {
		return err
	}
	if c.Mint.RoyaltyBPS < 0 || c.Mint.RoyaltyBPS > 10000 {
		return fmt.Errorf("royalty_bps must be between 0 and 10000")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMin < 1 || c.RateLimit.RevealPerMin < 1) {
		return fmt.Errorf("rate limits must be at least 1 per minute when enabled")
	}

	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxPrice parses the configured mint price ceiling.
func (c *Config) MaxPrice() (decimal.Decimal, error) {
	max, err := decimal.NewFromString(c.Mint.MaxPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid max_price %q: %w", c.Mint.MaxPrice, err)
	}
	if max.IsNegative() {
		return decimal.Zero, fmt.Errorf("max_price cannot be negative")
	}
	return max, nil
}
