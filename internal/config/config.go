// Package config loads cfquery configuration from yaml files with
// environment overrides, and the optional user-supplied function
// summary file merged into the resolver.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"cfquery/pkg/target"
)

// Config holds all configuration for cfquery.
type Config struct {
	// ArtifactDir is where analysis artifacts are looked up when a
	// command is given a bare binary name instead of a path.
	ArtifactDir string `yaml:"artifact_dir"`

	// SummariesPath points at a yaml file of extra function summaries
	// merged over the built-in libc set.
	SummariesPath string `yaml:"summaries_path"`

	// MaxSeconds is the default search budget. Zero means unbounded.
	MaxSeconds float64 `yaml:"max_seconds"`

	// Output toggles. Derivation always runs; these only control what
	// the reporter shows.
	ShowConditions        bool `yaml:"show_conditions"`
	ShowCalls             bool `yaml:"show_calls"`
	ShowStringConstraints bool `yaml:"show_string_constraints"`

	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ArtifactDir:           ".",
		MaxSeconds:            30,
		ShowConditions:        true,
		ShowCalls:             true,
		ShowStringConstraints: true,
	}
}

// globalConfigFilePath returns ~/.cfquery/config.yaml.
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cfquery/config.yaml"
	}
	return filepath.Join(home, ".cfquery", "config.yaml")
}

// projectConfigFilePath returns ./.cfquery/config.yaml.
func projectConfigFilePath() string {
	return ".cfquery/config.yaml"
}

// Load reads configuration with the following priority (highest to
// lowest): project config, environment variables, global config,
// defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", globalPath, err)
		}
	}

	applyEnv(cfg)

	projectPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", projectPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a single config file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from CFQUERY_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CFQUERY_ARTIFACT_DIR"); v != "" {
		cfg.ArtifactDir = v
	}
	if v := os.Getenv("CFQUERY_SUMMARIES"); v != "" {
		cfg.SummariesPath = v
	}
	if v := os.Getenv("CFQUERY_MAX_SECONDS"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxSeconds = secs
		}
	}
	if v := os.Getenv("CFQUERY_VERBOSE"); v == "1" || v == "true" {
		cfg.Verbose = true
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.MaxSeconds < 0 {
		return fmt.Errorf("max_seconds must not be negative, got %v", c.MaxSeconds)
	}
	return nil
}

// Save writes the config as yaml, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// summaryFile is the on-disk shape of a summaries yaml file.
type summaryFile struct {
	Summaries []target.Summary `yaml:"summaries"`
}

// LoadSummaries returns the built-in summaries with the file at path
// (when non-empty) merged on top. Entries with the same name replace
// the built-in ones.
func LoadSummaries(path string) ([]target.Summary, error) {
	summaries := target.DefaultSummaries()
	if path == "" {
		return summaries, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summaries file %s: %w", path, err)
	}
	var sf summaryFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing summaries file %s: %w", path, err)
	}

	byName := make(map[string]int, len(summaries))
	for i, s := range summaries {
		byName[s.Name] = i
	}
	for _, s := range sf.Summaries {
		if i, ok := byName[s.Name]; ok {
			summaries[i] = s
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
