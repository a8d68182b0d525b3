// Package config provides configuration management for mutostats.
//
// Command-line flags override values from the config file. A missing
// config file is not an error; defaults apply.
//
// Config file locations (priority order):
//  1. $MUTOSTATS_CONFIG
//  2. ./mutostats.yaml
//  3. ~/.config/mutostats/config.yaml
//  4. /etc/mutostats/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfidence = 0.95
	DefaultStatistic  = "P_block"
	DefaultStorePath  = "./mutostats.db"
	DefaultS3Timeout  = time.Minute
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Confidence == 0 {
		c.Confidence = DefaultConfidence
	}
	if c.Statistic == "" {
		c.Statistic = DefaultStatistic
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Comparison == "" {
		c.Comparison = ComparisonRatio
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Store.JournalMode == "" {
		c.Store.JournalMode = "WAL"
	}
	if c.Store.BusyTimeoutMS <= 0 {
		c.Store.BusyTimeoutMS = 5000
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatJSON
	}

	// aliases accepted on the command line are accepted here too
	switch c.Output.Format {
	case "yml":
		c.Output.Format = FormatYAML
	case "db":
		c.Output.Format = FormatSQLite
	}
	if c.Comparison == "diff" {
		c.Comparison = ComparisonDifference
	}
}

// Validate rejects values no analysis can run with
func (c *Config) Validate() error {
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("confidence %v must be between 0 and 1", c.Confidence)
	}
	if ParseOutputFormat(string(c.Output.Format)) != c.Output.Format {
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if ParseComparison(string(c.Comparison)) != c.Comparison {
		return fmt.Errorf("unknown comparison %q", c.Comparison)
	}
	return nil
}

// S3Timeout returns the deadline for loading one s3:// location
func (c *Config) S3Timeout() time.Duration {
	if c.S3.Timeout == nil || c.S3.Timeout.Duration() <= 0 {
		return DefaultS3Timeout
	}
	return c.S3.Timeout.Duration()
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Statistic: %s, Confidence: %.3g, Comparison: %s\n", c.Statistic, c.Confidence, c.Comparison)
	summary += fmt.Sprintf("Output: %s", c.Output.Format)
	if c.Output.Format == FormatSQLite {
		summary += fmt.Sprintf(" (%s, journal %s)", c.Store.Path, c.Store.JournalMode)
	}
	if c.Aligned {
		summary += ", aligned"
	}
	return summary
}
