package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input string
		want  OutputFormat
	}{
		{"json", FormatJSON},
		{"yaml", FormatYAML},
		{"yml", FormatYAML},
		{"sqlite", FormatSQLite},
		{"db", FormatSQLite},
		{"invalid", FormatJSON}, // Default
		{"", FormatJSON},        // Default
	}

	for _, tt := range tests {
		if got := ParseOutputFormat(tt.input); got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}

	if !FormatYAML.IsDocument() || FormatSQLite.IsDocument() {
		t.Error("only json and yaml are document formats")
	}
}

func TestParseComparison(t *testing.T) {
	tests := []struct {
		input string
		want  Comparison
	}{
		{"ratio", ComparisonRatio},
		{"difference", ComparisonDifference},
		{"diff", ComparisonDifference},
		{"", ComparisonRatio},
	}

	for _, tt := range tests {
		if got := ParseComparison(tt.input); got != tt.want {
			t.Errorf("ParseComparison(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Confidence != DefaultConfidence {
		t.Errorf("Confidence = %v, want %v", cfg.Confidence, DefaultConfidence)
	}
	if cfg.Statistic != "P_block" {
		t.Errorf("Statistic = %s, want P_block", cfg.Statistic)
	}
	if cfg.Store.Path == "" || cfg.Store.JournalMode != "WAL" {
		t.Errorf("Store = %+v, want path and WAL journal", cfg.Store)
	}
	if cfg.Output.Format != FormatJSON {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}
	if cfg.S3Timeout() != DefaultS3Timeout {
		t.Errorf("S3Timeout() = %s, want %s", cfg.S3Timeout(), DefaultS3Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence one", func(c *Config) { c.Confidence = 1 }},
		{"negative confidence", func(c *Config) { c.Confidence = -0.5 }},
		{"output format", func(c *Config) { c.Output.Format = "csv" }},
		{"comparison", func(c *Config) { c.Comparison = "quotient" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	// Create and save config
	cfg := DefaultConfig()
	cfg.Confidence = 0.99
	cfg.Statistic = "served"
	cfg.Comparison = ComparisonDifference
	cfg.Output.Format = FormatSQLite
	timeout := Duration(10 * time.Second)
	cfg.S3.Timeout = &timeout
	cfg.S3.Region = "eu-west-1"

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Load config
	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}

	// Verify values
	if loaded.Confidence != 0.99 || loaded.Statistic != "served" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Comparison != ComparisonDifference {
		t.Errorf("Comparison = %s, want difference", loaded.Comparison)
	}
	if loaded.Output.Format != FormatSQLite {
		t.Errorf("Output.Format = %s, want sqlite", loaded.Output.Format)
	}
	if loaded.S3Timeout() != 10*time.Second || loaded.S3.Region != "eu-west-1" {
		t.Errorf("S3 = %+v", loaded.S3)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("statistic: lost\nstore:\n  path: /tmp/x.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Statistic != "lost" || cfg.Store.Path != "/tmp/x.db" {
		t.Errorf("explicit values lost: %+v", cfg)
	}
	if cfg.Confidence != DefaultConfidence || cfg.Store.BusyTimeoutMS != 5000 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadAcceptsAliases(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("comparison: diff\noutput:\n  format: yml\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Output.Format != FormatYAML {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, FormatYAML)
	}
	if cfg.Comparison != ComparisonDifference {
		t.Errorf("Comparison = %q, want %q", cfg.Comparison, ComparisonDifference)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("confidence: 1.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFromPath(configPath); err == nil || !strings.Contains(err.Error(), "confidence") {
		t.Errorf("LoadFromPath() error = %v, want confidence error", err)
	}
}

func TestFindConfigPath(t *testing.T) {
	// Create temp directory with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Set working directory to temp
	t.Chdir(tmpDir)

	// Should find config in working directory
	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	if found = FindConfigPath(); found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	// Existing explicit path wins
	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found = FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	// Test YAML marshaling
	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
