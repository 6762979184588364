// Package config provides configuration loading and management for Archspec.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Archspec configuration
type Config struct {
	Repo    RepoConfig    `yaml:"repo"`
	Scan    ScanConfig    `yaml:"scan"`
	Rules   RulesConfig   `yaml:"rules"`
	History HistoryConfig `yaml:"history"`
	Watch   WatchConfig   `yaml:"watch"`
}

// RepoConfig configures the project being checked
type RepoConfig struct {
	// Path is the project root path (auto-detected from git if empty)
	Path string `yaml:"path"`
	// IgnoreDirs are directory names excluded from discovery on top of
	// the built-in ignore list
	IgnoreDirs []string `yaml:"ignore_dirs"`
}

// ScanConfig configures batch scan behavior
type ScanConfig struct {
	// Workers is the scan worker pool size (default: NumCPU)
	Workers int `yaml:"workers"`
	// SoftBudget logs a warning when a scan runs longer
	SoftBudget time.Duration `yaml:"soft_budget"`
	// HardBudget abandons a scan, reporting no violations
	HardBudget time.Duration `yaml:"hard_budget"`
}

// RulesConfig configures the rule store location
type RulesConfig struct {
	// Store is the rule store path relative to the project root
	Store string `yaml:"store"`
}

// HistoryConfig configures the scan timeline
type HistoryConfig struct {
	// Cap bounds the number of retained snapshots
	Cap int `yaml:"cap"`
}

// WatchConfig configures continuous checking
type WatchConfig struct {
	// Debounce delays checks after a burst of file events
	Debounce time.Duration `yaml:"debounce"`
	// MetricsAddr serves Prometheus metrics when set (e.g. ":9464")
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		Scan: ScanConfig{
			Workers:    runtime.NumCPU(),
			SoftBudget: 2 * time.Second,
			HardBudget: 10 * time.Second,
		},
		Rules: RulesConfig{
			Store: filepath.Join(".archspec", "invariants.yml"),
		},
		History: HistoryConfig{
			Cap: 500,
		},
		Watch: WatchConfig{
			Debounce:    500 * time.Millisecond,
			MetricsAddr: "", // Disabled
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	if c.Scan.SoftBudget <= 0 || c.Scan.HardBudget <= 0 {
		return fmt.Errorf("scan budgets must be positive")
	}
	if c.Scan.SoftBudget > c.Scan.HardBudget {
		return fmt.Errorf("scan.soft_budget must not exceed scan.hard_budget")
	}
	if c.Rules.Store == "" {
		return fmt.Errorf("rules.store is required")
	}
	if c.History.Cap < 1 {
		return fmt.Errorf("history.cap must be at least 1")
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Repo
	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}
	if len(other.Repo.IgnoreDirs) > 0 {
		c.Repo.IgnoreDirs = other.Repo.IgnoreDirs
	}

	// Scan
	if other.Scan.Workers != 0 {
		c.Scan.Workers = other.Scan.Workers
	}
	if other.Scan.SoftBudget != 0 {
		c.Scan.SoftBudget = other.Scan.SoftBudget
	}
	if other.Scan.HardBudget != 0 {
		c.Scan.HardBudget = other.Scan.HardBudget
	}

	// Rules
	if other.Rules.Store != "" {
		c.Rules.Store = other.Rules.Store
	}

	// History
	if other.History.Cap != 0 {
		c.History.Cap = other.History.Cap
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.MetricsAddr != "" {
		c.Watch.MetricsAddr = other.Watch.MetricsAddr
	}
}
