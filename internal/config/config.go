// Package config loads and saves the supervisor's client configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the flat ronda configuration
type Config struct {
	Version      string  `json:"version"`
	APIBaseURL   string  `json:"api_base_url"`
	APIToken     string  `json:"api_token,omitempty"`
	SupervisorID string  `json:"supervisor_id,omitempty"`
	DeviceID     string  `json:"device_id,omitempty"`
	LocationCmd  string  `json:"location_cmd,omitempty"` // command printing {"lat":..,"lng":..}
	StaticLat    float64 `json:"static_lat,omitempty"`   // pinned fix when no location command
	StaticLng    float64 `json:"static_lng,omitempty"`
}

// ConfigPath returns the path to ~/.ronda/config.json.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ronda", "config.json"), nil
}

// LoadConfig reads ~/.ronda/config.json.
// Returns an error if no config is found - caller should handle accordingly.
func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes ~/.ronda/config.json.
func SaveConfig(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create .ronda dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Token inside; keep it out of group/world reach.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is not set - run: ronda init")
	}
	if c.LocationCmd == "" && c.StaticLat == 0 && c.StaticLng == 0 {
		return fmt.Errorf("no location source configured - set location_cmd or static_lat/static_lng")
	}
	return nil
}
