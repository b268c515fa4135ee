// Package config provides configuration loading and management for the seed
// generation pipeline. It handles loading configuration from YAML files and
// provides default values.
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
		// NumCores specifies how many CPU cores to use for the peak scan
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Seed generation parameters
	Seeds struct {
		// GaussianSigma is the standard deviation of the Gaussian kernel
		// smoothing the distance field; higher sigma means a smoother field
		GaussianSigma float64 `yaml:"gaussianSigma"`

		// MinDistance is the minimum number of voxels separating seeds.
		// Set to 1 to find the maximum number of seeds.
		MinDistance int `yaml:"minDistance"`

		// ThresholdRel keeps only seeds reaching this fraction of the
		// maximum internal distance; because it applies to the distance
		// field it acts as a minimum object size
		ThresholdRel float64 `yaml:"thresholdRel"`

		// ExcludeBorder suppresses seeds within this many voxels of the
		// image border
		ExcludeBorder int `yaml:"excludeBorder"`

		// MaxSeeds is the maximum number of seeds to generate; -1 (or any
		// non-positive value) means no limit. When the limit is exceeded,
		// seeds with the largest internal distance are kept.
		MaxSeeds int `yaml:"maxSeeds"`
	} `yaml:"seeds"`

	// Structuring element for seed dilation. Volumetric inputs require a
	// volumetric shape (ball, cube or octahedron).
	Element struct {
		// Shape is one of disk, square, diamond, ball, cube, octahedron
		Shape string `yaml:"shape"`

		// Size is the radius (disk, diamond, ball, octahedron) or edge
		// width (square, cube) of the element
		Size int `yaml:"size"`
	} `yaml:"structuringElement"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save each pipeline
		// stage as PNG renderings
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is the directory for intermediary stage output
		IntermediaryDir string `yaml:"intermediaryDir"`

		// Verbose controls the level of progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU()

	// Set default seed parameters
	cfg.Seeds.GaussianSigma = 1.0
	cfg.Seeds.MinDistance = 1
	cfg.Seeds.ThresholdRel = 0.0
	cfg.Seeds.ExcludeBorder = 0
	cfg.Seeds.MaxSeeds = -1

	// Set default structuring element
	cfg.Element.Shape = "disk"
	cfg.Element.Size = 1

	// Set default output parameters
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
