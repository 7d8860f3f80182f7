// Package config loads gfo configuration from YAML files and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for go-flow-obfuscator.
type Config struct {
	// FakeBlocks is the number of fake unreachable states added while
	// flattening.
	FakeBlocks int `yaml:"fake_blocks" env:"GFO_FAKE_BLOCKS"`

	// Complexity is the predicate injection tier: low, medium, or high.
	Complexity string `yaml:"complexity" env:"GFO_COMPLEXITY"`

	// PredicatesPerBranch is the guard nesting depth around critical
	// operations at the high tier.
	PredicatesPerBranch int `yaml:"predicates_per_branch" env:"GFO_PREDICATES_PER_BRANCH"`

	// Seed makes transforms reproducible when non-zero; zero means a
	// fresh time-based seed per run.
	Seed int64 `yaml:"seed" env:"GFO_SEED"`

	// CacheDir is where protect results are cached. Caching is skipped
	// when empty.
	CacheDir string `yaml:"cache_dir" env:"GFO_CACHE_DIR"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose" env:"GFO_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FakeBlocks:          5,
		Complexity:          "medium",
		PredicatesPerBranch: 2,
		Seed:                0,
		CacheDir:            filepath.Join(".gfo", "cache"),
		Verbose:             false,
	}
}

// globalConfigFilePath returns the global config file path (~/.gfo/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gfo/config.yaml"
	}
	return filepath.Join(home, ".gfo", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.gfo/config.yaml)
func projectConfigFilePath() string {
	return ".gfo/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.gfo/config.yaml)
// 3. Global config (~/.gfo/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg, err := LoadUnchecked()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadUnchecked reads configuration like Load but skips validation, so a
// diagnostic caller can inspect and report invalid values instead of
// failing before it gets the chance.
func LoadUnchecked() (*Config, error) {
	cfg := DefaultConfig()

	globalPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalPath, err)
		}
	}

	projectPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectPath, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// EffectivePath returns the config file that takes effect under the Load
// priority: the project file if present, otherwise the global file,
// otherwise empty (defaults only).
func EffectivePath() string {
	if _, err := os.Stat(projectConfigFilePath()); err == nil {
		return projectConfigFilePath()
	}
	if _, err := os.Stat(globalConfigFilePath()); err == nil {
		return globalConfigFilePath()
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GFO_FAKE_BLOCKS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			cfg.FakeBlocks = i
		}
	}
	if v := os.Getenv("GFO_COMPLEXITY"); v != "" {
		cfg.Complexity = v
	}
	if v := os.Getenv("GFO_PREDICATES_PER_BRANCH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.PredicatesPerBranch = i
		}
	}
	if v := os.Getenv("GFO_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = i
		}
	}
	if v := os.Getenv("GFO_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("GFO_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
}

// Validate checks that the configuration has valid required fields.
func (c *Config) Validate() error {
	switch c.Complexity {
	case "low", "medium", "high":
		// Valid
	default:
		return fmt.Errorf("invalid complexity: %s (must be 'low', 'medium' or 'high')", c.Complexity)
	}

	if c.FakeBlocks < 0 {
		return fmt.Errorf("fake_blocks must be non-negative")
	}
	if c.PredicatesPerBranch <= 0 {
		return fmt.Errorf("predicates_per_branch must be positive")
	}

	return nil
}
