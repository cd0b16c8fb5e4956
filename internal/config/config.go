package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		// Default to ./config in current working directory
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Indexer IndexerConfig `yaml:"indexer"`
	Catalog CatalogConfig `yaml:"catalog"`
	Log     LogConfig     `yaml:"log"`
}

// StoreConfig memory store configuration
type StoreConfig struct {
	Root string `yaml:"root"`
}

// IndexerConfig background indexer configuration
type IndexerConfig struct {
	DrainIntervalMs int `yaml:"drain_interval_ms"`
}

// CatalogConfig SQLite metadata catalog configuration
type CatalogConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	MaxDays    int    `yaml:"max_days"`
	ConsoleOut bool   `yaml:"console_out"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			Root: filepath.Join(homeDir, ".engram", "memory"),
		},
		Indexer: IndexerConfig{
			DrainIntervalMs: 100,
		},
		Catalog: CatalogConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxDays:    7,
			ConsoleOut: false,
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file, creating a default one when absent
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse config
	cfg := DefaultConfig() // Use default values as base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure config directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Serialize config
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	// Add header comment
	content := "# Engram Configuration File\n\n" + string(data)

	// Write file
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Store.Root == "" {
		return fmt.Errorf("config error: store.root cannot be empty")
	}
	if c.Indexer.DrainIntervalMs <= 0 {
		return fmt.Errorf("config error: indexer.drain_interval_ms must be greater than 0")
	}
	if c.Log.MaxDays <= 0 {
		return fmt.Errorf("config error: log.max_days must be greater than 0")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: log.level must be one of debug, info, warn, error")
	}
	return nil
}

// String returns string representation of config
func (c *Config) String() string {
	return fmt.Sprintf(`Engram Configuration:
  Store:
    Root: %s
  Indexer:
    Drain Interval: %dms
  Catalog:
    Enabled: %v
  Log:
    Level: %s
    Max Days: %d
    Console Out: %v`,
		c.Store.Root,
		c.Indexer.DrainIntervalMs,
		c.Catalog.Enabled,
		c.Log.Level,
		c.Log.MaxDays,
		c.Log.ConsoleOut,
	)
}
