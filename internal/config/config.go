// Package config loads the analysis settings from YAML and provides defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"cytocv/internal/logger"
)

const component = "config"

// Default tuning values.
const (
	DefaultKernelSize         = 13
	DefaultKernelDeviation    = 5
	DefaultMCherryLineWidth   = 1
	DefaultGFPDistance        = 37
	DefaultGFPProximityRadius = 13
	DefaultLegacyGFPMinArea   = 14
	DefaultLegacyGFPMaxCount  = 8
	DefaultDotMethod          = "current"
)

// Config represents the analysis configuration loaded from YAML.
type Config struct {
	Processing struct {
		// KernelSize is the coarse Gaussian kernel; even values are bumped to odd.
		KernelSize int `yaml:"kernel_size"`

		// KernelDeviation is the coarse Gaussian sigma.
		KernelDeviation float64 `yaml:"kernel_deviation"`

		// MCherryLineWidth is the stroke width for line sampling and debug circles.
		MCherryLineWidth int `yaml:"mCherry_line_width"`

		// DotMethod selects the detector strategy, "current" or "legacy".
		DotMethod string `yaml:"mCherry_dot_method"`

		LegacyGFPOtsuBias  float64 `yaml:"legacy_gfp_otsu_bias"`
		LegacyGFPMinArea   int     `yaml:"legacy_gfp_min_area"`
		LegacyGFPMaxCount  int     `yaml:"legacy_gfp_max_count"`
		GFPDistance        float64 `yaml:"gfp_distance"`
		GFPProximityRadius float64 `yaml:"gfp_proximity_radius"`

		// Workers is the number of cells processed in parallel.
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Channels maps channel labels to layer indices.
	Channels map[string]int `yaml:"channels"`

	Plugins struct {
		// Enabled lists plugin IDs; empty means all registered plugins.
		Enabled []string `yaml:"enabled"`
	} `yaml:"plugins"`

	Output struct {
		// DebugDir receives per-cell overlay PNGs when set.
		DebugDir string `yaml:"debug_dir"`
		Verbose  bool   `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.KernelSize = DefaultKernelSize
	cfg.Processing.KernelDeviation = DefaultKernelDeviation
	cfg.Processing.MCherryLineWidth = DefaultMCherryLineWidth
	cfg.Processing.DotMethod = DefaultDotMethod
	cfg.Processing.LegacyGFPOtsuBias = 0
	cfg.Processing.LegacyGFPMinArea = DefaultLegacyGFPMinArea
	cfg.Processing.LegacyGFPMaxCount = DefaultLegacyGFPMaxCount
	cfg.Processing.GFPDistance = DefaultGFPDistance
	cfg.Processing.GFPProximityRadius = DefaultGFPProximityRadius
	cfg.Processing.Workers = runtime.NumCPU()

	cfg.Channels = map[string]int{
		"mCherry": 3,
		"GFP":     2,
		"DAPI":    1,
		"DIC":     0,
	}

	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
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

// SaveConfig saves the configuration to a YAML file.
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

// Normalize replaces invalid tuning values with usable ones, logging a
// warning for each change.
func (c *Config) Normalize(log logger.Logger) {
	log = logger.OrNop(log)
	p := &c.Processing

	if p.KernelSize <= 0 {
		log.Warning(component, "kernel_size must be positive, using default", map[string]interface{}{"value": p.KernelSize, "default": DefaultKernelSize})
		p.KernelSize = DefaultKernelSize
	}
	if p.KernelSize%2 == 0 {
		log.Warning(component, "kernel_size must be odd, incrementing", map[string]interface{}{"value": p.KernelSize, "adjusted": p.KernelSize + 1})
		p.KernelSize++
	}
	if p.KernelDeviation < 0 {
		log.Warning(component, "kernel_deviation is negative, using default", map[string]interface{}{"value": p.KernelDeviation})
		p.KernelDeviation = DefaultKernelDeviation
	}
	if p.MCherryLineWidth < 1 {
		log.Warning(component, "mCherry_line_width must be at least 1", map[string]interface{}{"value": p.MCherryLineWidth})
		p.MCherryLineWidth = DefaultMCherryLineWidth
	}

	method := strings.ToLower(strings.TrimSpace(p.DotMethod))
	if method != "current" && method != "legacy" {
		if method != "" {
			log.Warning(component, "unknown mCherry_dot_method, using current", map[string]interface{}{"value": p.DotMethod})
		}
		method = DefaultDotMethod
	}
	p.DotMethod = method

	if p.GFPDistance < 0 {
		log.Warning(component, "gfp_distance is negative, using default", map[string]interface{}{"value": p.GFPDistance})
		p.GFPDistance = DefaultGFPDistance
	}
	if p.GFPProximityRadius < 0 {
		log.Warning(component, "gfp_proximity_radius is negative, using default", map[string]interface{}{"value": p.GFPProximityRadius})
		p.GFPProximityRadius = DefaultGFPProximityRadius
	}
	if p.LegacyGFPMinArea < 0 {
		log.Warning(component, "legacy_gfp_min_area is negative, using default", map[string]interface{}{"value": p.LegacyGFPMinArea})
		p.LegacyGFPMinArea = DefaultLegacyGFPMinArea
	}
	if p.LegacyGFPMaxCount < 0 {
		log.Warning(component, "legacy_gfp_max_count is negative, using default", map[string]interface{}{"value": p.LegacyGFPMaxCount})
		p.LegacyGFPMaxCount = DefaultLegacyGFPMaxCount
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
}
