// Package config holds the process configuration for an atomstore node:
// where it persists data, what server root its subjects are rooted under,
// and logging and tuning knobs. DefaultPageSize and ClockSkew are carried
// here only; pkg/collection and pkg/commit use their own DefaultPageSize
// and DefaultClockSkew constants and do not read a Config.
package config

import (
	"os"
	"time"

	"github.com/cuemby/atomstore/pkg/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs a running atomstore node needs. Zero
// values are not valid configuration; use Default() or Load() to obtain
// one, then override fields as needed.
type Config struct {
	DataDir    string `yaml:"data_dir"`
	ServerRoot string `yaml:"server_root"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	DefaultPageSize int           `yaml:"default_page_size"`
	ClockSkew       time.Duration `yaml:"clock_skew"`
}

// Default returns the configuration the CLI falls back to when no flags
// or config file are supplied.
func Default() Config {
	return Config{
		DataDir:         "./atomstore-data",
		ServerRoot:      "https://localhost",
		LogLevel:        "info",
		LogJSON:         false,
		DefaultPageSize: 30,
		ClockSkew:       10 * time.Second,
	}
}

// Load reads a YAML config file, overlaying it onto Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// FromFlags builds a Config from a cobra command's persistent flags,
// overlaying it onto Default(). Missing flags are left at their default.
func FromFlags(cmd *cobra.Command) Config {
	cfg := Default()

	if v, err := cmd.Flags().GetString("data-dir"); err == nil && v != "" {
		cfg.DataDir = v
	}
	if v, err := cmd.Flags().GetString("server-root"); err == nil && v != "" {
		cfg.ServerRoot = v
	}
	if v, err := cmd.Flags().GetString("log-level"); err == nil && v != "" {
		cfg.LogLevel = v
	}
	if v, err := cmd.Flags().GetBool("log-json"); err == nil {
		cfg.LogJSON = v
	}
	if v, err := cmd.Flags().GetInt("default-page-size"); err == nil && v > 0 {
		cfg.DefaultPageSize = v
	}
	return cfg
}

// InitLogging wires the config's log settings into the global logger, for
// use from a cobra.OnInitialize hook.
func (c Config) InitLogging() {
	log.Init(log.Config{
		Level:      log.Level(c.LogLevel),
		JSONOutput: c.LogJSON,
	})
}
