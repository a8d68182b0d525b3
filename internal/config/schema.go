package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version     int          `yaml:"version"`
	Confidence  float64      `yaml:"confidence"`   // confidence level of interval half-widths
	Statistic   string       `yaml:"statistic"`    // statistic extracted when none is given
	LogLevel    string       `yaml:"log_level"`    // logrus level name
	StripPrefix string       `yaml:"strip_prefix"` // removed from scenario names in output
	Aligned     bool         `yaml:"aligned"`      // keep points of unserved classes as [0.0]
	Comparison  Comparison   `yaml:"comparison"`
	Store       StoreConfig  `yaml:"store"`
	S3          S3Config     `yaml:"s3"`
	Output      OutputConfig `yaml:"output"`
}

// StoreConfig holds series store settings
type StoreConfig struct {
	Path          string `yaml:"path"`
	JournalMode   string `yaml:"journal_mode"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

// S3Config holds settings for s3:// result locations. Credentials come
// from the usual AWS environment, never from this file.
type S3Config struct {
	Region       string    `yaml:"region,omitempty"`
	Endpoint     string    `yaml:"endpoint,omitempty"`
	UsePathStyle bool      `yaml:"use_path_style,omitempty"`
	Timeout      *Duration `yaml:"timeout,omitempty"`
}

// OutputConfig holds exporter settings
type OutputConfig struct {
	Format  OutputFormat `yaml:"format"`
	Path    string       `yaml:"path,omitempty"` // empty writes to stdout
	SortByX bool         `yaml:"sort_by_x,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
