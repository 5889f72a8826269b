// Package config provides configuration loading and management for galpitch.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers specifies how many radii are transformed concurrently
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Annulus assembly parameters
	Annulus struct {
		// Reverse grows the annulus inward from the outer radius
		Reverse bool `yaml:"reverse"`

		// FixedWindow is the annulus width in pixels; 0 disables it
		FixedWindow int `yaml:"fixedWindow"`

		// MaskCore zeroes pixels at least as bright as the galaxy center
		MaskCore bool `yaml:"maskCore"`

		// MaskBar zeroes everything inside the detected central bar
		MaskBar bool `yaml:"maskBar"`

		// ZeroPad blanks the angular wrap rows before transforming
		ZeroPad bool `yaml:"zeroPad"`

		// HighPass suppresses frequencies below each mode's own number
		HighPass bool `yaml:"highPass"`
	} `yaml:"annulus"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// Warn enables per-radius skip warnings
		Warn bool `yaml:"warn"`

		// PolarImage saves the innermost annulus grid as an image
		PolarImage bool `yaml:"polarImage"`
	} `yaml:"output"`

	// Inverse reconstruction parameters
	Inverse struct {
		// Start is the innermost radius to rebuild; 0 means the default
		Start int `yaml:"start"`

		// End is the outermost radius to rebuild; 0 means 90% of the
		// measured outer radius
		End int `yaml:"end"`

		// Modes selects which modes contribute; empty means all
		Modes []int `yaml:"modes"`
	} `yaml:"inverse"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU()

	cfg.Annulus.Reverse = false
	cfg.Annulus.FixedWindow = 0
	cfg.Annulus.MaskCore = false
	cfg.Annulus.MaskBar = false
	cfg.Annulus.ZeroPad = false
	cfg.Annulus.HighPass = false

	cfg.Output.Verbose = false
	cfg.Output.Warn = false
	cfg.Output.PolarImage = false

	cfg.Inverse.Start = 1
	cfg.Inverse.End = 0
	cfg.Inverse.Modes = nil

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
