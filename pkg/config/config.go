// Package config describes config.yaml and where it is looked up.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full config.yaml. Every infrastructure section is optional:
// an empty address disables the component.
type Config struct {
	App         App         `yaml:"app" mapstructure:"app"`
	Server      Server      `yaml:"server" mapstructure:"server"`
	Resolver    Resolver    `yaml:"resolver" mapstructure:"resolver"`
	Browser     Browser     `yaml:"browser" mapstructure:"browser"`
	Cookies     Cookies     `yaml:"cookies" mapstructure:"cookies"`
	Redis       Redis       `yaml:"redis" mapstructure:"redis"`
	Nats        Nats        `yaml:"nats" mapstructure:"nats"`
	Database    Database    `yaml:"database" mapstructure:"database"`
	Meilisearch Meilisearch `yaml:"meilisearch" mapstructure:"meilisearch"`
	Metrics     Metrics     `yaml:"metrics" mapstructure:"metrics"`
}

type App struct {
	Env      string `yaml:"env" mapstructure:"env"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

type Server struct {
	Addr               string `yaml:"addr" mapstructure:"addr"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	StaticDir          string `yaml:"static_dir" mapstructure:"static_dir"`

	// TrustedProxies may set X-Forwarded-For. Empty means the socket peer
	// is always the client.
	TrustedProxies []string `yaml:"trusted_proxies,omitempty" mapstructure:"trusted_proxies"`
}

type Resolver struct {
	HTTPTimeout       time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
	AggregatorTimeout time.Duration `yaml:"aggregator_timeout" mapstructure:"aggregator_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	CacheTTL          time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	// Strategies lists strategy names in priority order.
	Strategies []string `yaml:"strategies" mapstructure:"strategies"`
	Proxy      string   `yaml:"proxy" mapstructure:"proxy"`
}

type Browser struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Headless      bool          `yaml:"headless" mapstructure:"headless"`
	Bin           string        `yaml:"bin" mapstructure:"bin"`
	ControlURL    string        `yaml:"control_url" mapstructure:"control_url"`
	ProfileTTL    time.Duration `yaml:"profile_ttl" mapstructure:"profile_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

type Cookies struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type Redis struct {
	Address  string `yaml:"address" mapstructure:"address"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

type Nats struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

type Database struct {
	URL string `yaml:"url" mapstructure:"url"`
}

type Meilisearch struct {
	Host  string `yaml:"host" mapstructure:"host"`
	Key   string `yaml:"key" mapstructure:"key"`
	Index string `yaml:"index" mapstructure:"index"`
}

type Metrics struct {
	// Addr serves /metrics from the worker; the HTTP server always exposes it.
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Default returns a config that runs standalone: no redis, nats, postgres or meilisearch.
func Default() Config {
	return Config{
		App:    App{Env: "development", LogLevel: "info"},
		Server: Server{Addr: ":8000", RateLimitPerMinute: 30},
		Resolver: Resolver{
			HTTPTimeout:       15 * time.Second,
			AggregatorTimeout: 20 * time.Second,
			NavigationTimeout: 20 * time.Second,
			SettleDelay:       3 * time.Second,
			CacheTTL:          time.Hour,
			Strategies:        []string{"browser", "aggregator", "douyin", "kuaishou", "xiaohongshu"},
		},
		Browser: Browser{
			Enabled:       true,
			Headless:      true,
			ProfileTTL:    90 * time.Minute,
			SweepInterval: 15 * time.Minute,
		},
		Cookies:     Cookies{Path: "cookies.db"},
		Nats:        Nats{Workers: 2},
		Meilisearch: Meilisearch{Index: "media"},
	}
}

// SearchPaths are tried in order when CONFIG_PATH is unset.
var SearchPaths = []string{"config.yaml", "config/config.yaml", "../../config/config.yaml", "/app/config/config.yaml"}

// Find returns CONFIG_PATH, else the first existing search path, else "".
func Find() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	for _, p := range SearchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Read decodes path over the defaults.
func Read(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the defaults to path. An existing file is kept unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := Marshal(Default())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
