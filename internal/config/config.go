// Package config loads edtrack settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"edtrack/internal/metrics"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "EDTRACK_"

// Config is the full edtrack configuration
type Config struct {
	Journal JournalConfig  `yaml:"journal" envPrefix:"JOURNAL_"`
	Logging LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	Match   MatchConfig    `yaml:"match" envPrefix:"MATCH_"`
	Archive ArchiveConfig  `yaml:"archive" envPrefix:"ARCHIVE_"`
	Metrics metrics.Config `yaml:"metrics" envPrefix:"METRICS_"`
	UI      UIConfig       `yaml:"ui" envPrefix:"UI_"`
}

// JournalConfig says where the game writes its journal
type JournalConfig struct {
	Dir          string        `yaml:"dir" env:"DIR"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
}

// LoggingConfig configures logging behavior
type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	File  string `yaml:"file" env:"FILE"`
}

// MatchConfig tunes the deferred bio signal matcher
type MatchConfig struct {
	Interval    time.Duration `yaml:"interval" env:"INTERVAL"`
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
}

// ArchiveConfig configures the SQLite history export
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// UIConfig configures the dashboard
type UIConfig struct {
	Theme string `yaml:"theme" env:"THEME"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Journal: JournalConfig{
			Dir:          DefaultJournalDir(),
			PollInterval: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "edtrack.log",
		},
		Match: MatchConfig{
			Interval:    time.Second,
			MaxAttempts: 30,
		},
		Archive: ArchiveConfig{
			Path: "edtrack.db",
		},
		Metrics: metrics.Config{
			Address: "127.0.0.1:9317",
		},
		UI: UIConfig{
			Theme: "elite",
		},
	}
}

// DefaultJournalDir is where the game keeps its journal on this machine
func DefaultJournalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Saved Games", "Frontier Developments", "Elite Dangerous")
}

// Load reads path, falling back to defaults when it does not exist, and then
// applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No config file is OK, use defaults
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the tracker cannot run with
func (c *Config) Validate() error {
	if c.Journal.Dir == "" {
		return fmt.Errorf("journal dir is empty")
	}
	if c.Match.Interval <= 0 {
		return fmt.Errorf("match interval must be positive, got %s", c.Match.Interval)
	}
	if c.Match.MaxAttempts < 0 {
		return fmt.Errorf("match max attempts must not be negative, got %d", c.Match.MaxAttempts)
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		return fmt.Errorf("archive enabled without a path")
	}
	return nil
}

// Save writes the configuration as YAML
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
