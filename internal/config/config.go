// Package config loads modscan settings from modscan.toml (or .yaml) and
// MODSCAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/matzehuels/modscan/pkg/discovery"
	"github.com/matzehuels/modscan/pkg/metadata"
)

// AppName names the config file, the environment prefix and the cache
// directory.
const AppName = "modscan"

// Config is the resolved CLI configuration.
type Config struct {
	ModsDir     string   `mapstructure:"mods_dir"`
	Environment string   `mapstructure:"environment"`
	Overrides   string   `mapstructure:"overrides"`
	MaxDepth    int      `mapstructure:"max_depth"`
	Workers     int      `mapstructure:"workers"`
	CacheDir    string   `mapstructure:"cache_dir"`
	NoCache     bool     `mapstructure:"no_cache"`
	ExtraPaths  []string `mapstructure:"extra_paths"`

	// File is the config file that was read, "" when none was found.
	File string `mapstructure:"-"`
}

// Env returns the parsed run environment.
func (c *Config) Env() metadata.Environment {
	env, _ := metadata.ParseEnvironment(c.Environment)
	return env
}

// Load reads the config file at path, or looks for modscan.{toml,yaml,yml}
// in the working directory when path is empty. A missing default file is
// not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("mods_dir", "mods")
	v.SetDefault("environment", "client")
	v.SetDefault("overrides", "")
	v.SetDefault("max_depth", discovery.DefaultMaxDepth)
	v.SetDefault("workers", discovery.DefaultWorkers)
	v.SetDefault("cache_dir", DefaultCacheDir())
	v.SetDefault("no_cache", false)
	v.SetDefault("extra_paths", []string{})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if _, ok := metadata.ParseEnvironment(cfg.Environment); !ok {
		return fmt.Errorf("environment must be client, server or *, got: %s", cfg.Environment)
	}
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got: %d", cfg.MaxDepth)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got: %d", cfg.Workers)
	}
	return nil
}

// DefaultCacheDir returns the XDG cache directory (~/.cache/modscan/), or ""
// when no home directory is known.
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", AppName)
}
