package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the transcript configuration
type Config struct {
	ChatDBPath   string       `yaml:"chat_db,omitempty"`
	MessageLimit int          `yaml:"message_limit,omitempty"`
	UpdateLimit  int          `yaml:"update_limit,omitempty"`
	Oracle       OracleConfig `yaml:"oracle,omitempty"`
	Watch        WatchConfig  `yaml:"watch,omitempty"`
}

// OracleConfig controls the contact-directory enrichment pass.
type OracleConfig struct {
	Enabled        bool `yaml:"enabled"`
	TimeoutSeconds int  `yaml:"timeout_seconds,omitempty"`
	SweepLimit     int  `yaml:"sweep_limit,omitempty"`
	Workers        int  `yaml:"workers,omitempty"`
}

// WatchConfig controls the chat.db watcher.
type WatchConfig struct {
	DebounceSeconds int `yaml:"debounce_seconds,omitempty"`
}

func (c *Config) withDefaults() *Config {
	if c.MessageLimit <= 0 {
		c.MessageLimit = 500000
	}
	if c.UpdateLimit <= 0 {
		c.UpdateLimit = 10000
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = 5
	}
	if c.Oracle.SweepLimit <= 0 {
		c.Oracle.SweepLimit = 100
	}
	if c.Oracle.Workers <= 0 {
		c.Oracle.Workers = 4
	}
	if c.Watch.DebounceSeconds <= 0 {
		c.Watch.DebounceSeconds = 2
	}
	return c
}

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("TRANSCRIPT_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "transcript"), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("TRANSCRIPT_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Transcript"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "transcript"), nil
	}

	return filepath.Join(home, ".local", "share", "transcript"), nil
}

// DatasetPath returns the snapshot file location inside the data directory.
func DatasetPath() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "transcript_data.json"), nil
}

// MappingsPath returns the mapping store location inside the data directory.
func MappingsPath() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "contact_mappings.json"), nil
}

// Load loads config from the config file
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config
			return (&Config{}).withDefaults(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg.withDefaults(), nil
}

// Save saves the config to the config file
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
