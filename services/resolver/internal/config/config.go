// Package config layers config.yaml, UNMARK_* environment variables and
// command-line flags over the defaults.
package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/loviiin/unmark/pkg/config"
)

const envPrefix = "UNMARK"

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"addr":       "server.addr",
	"headless":   "browser.headless",
	"redis":      "redis.address",
	"nats":       "nats.url",
	"database":   "database.url",
	"strategies": "resolver.strategies",
	"cookies":    "cookies.path",
	"log-level":  "app.log_level",
}

// Load resolves the configuration. Precedence, lowest first: defaults,
// config file, .env and environment, flags. flags may be nil.
func Load(flags *pflag.FlagSet) (*config.Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := config.Marshal(config.Default())
	if err != nil {
		return nil, err
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := config.Find()
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys absent from the defaults are invisible to AutomaticEnv.
	if err := v.BindEnv("server.trusted_proxies"); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
		if f := flags.Lookup("no-browser"); f != nil && f.Changed && f.Value.String() == "true" {
			v.Set("browser.enabled", false)
		}
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
