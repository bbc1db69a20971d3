// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Slug        string `json:"slug,omitempty"`         // Prospect slug, names the agent directory
	Dossier     string `json:"dossier,omitempty"`      // Explicit dossier path, overrides the ingested layout
	AgentsDir   string `json:"agents_dir,omitempty"`   // Root directory for built agent libraries
	IngestedDir string `json:"ingested_dir,omitempty"` // Root directory for intake dossiers

	// Limits
	MinFiles int `json:"min_files,omitempty"` // Minimum KB files expected from a full build
	MinPages int `json:"min_pages,omitempty"` // Minimum crawl pages before discovery mode
	MaxDepth int `json:"max_depth,omitempty"` // Maximum crawl depth from the seed URL
	MaxPages int `json:"max_pages,omitempty"` // Maximum pages fetched per crawl

	// Behavior
	APIKey     string `json:"api_key,omitempty"`     // Gemini API key
	UseBrowser bool   `json:"use_browser,omitempty"` // Use headless browser for SPA sites
	Verbose    bool   `json:"verbose,omitempty"`     // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MinFiles < 0 {
		return fmt.Errorf("config error: 'min_files' must be non-negative")
	}
	if c.MinPages < 0 {
		return fmt.Errorf("config error: 'min_pages' must be non-negative")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("config error: 'max_depth' must be non-negative")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("config error: 'max_pages' must be non-negative")
	}

	if c.Dossier != "" {
		if _, err := os.Stat(c.Dossier); os.IsNotExist(err) {
			return fmt.Errorf("config error: dossier file not found: %s", c.Dossier)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Slug == "" {
		result.Slug = defaults.Slug
	}
	if result.Dossier == "" {
		result.Dossier = defaults.Dossier
	}
	if result.AgentsDir == "" {
		result.AgentsDir = defaults.AgentsDir
	}
	if result.IngestedDir == "" {
		result.IngestedDir = defaults.IngestedDir
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}

	// Int fields: use default if zero
	if result.MinFiles == 0 {
		result.MinFiles = defaults.MinFiles
	}
	if result.MinPages == 0 {
		result.MinPages = defaults.MinPages
	}
	if result.MaxDepth == 0 {
		result.MaxDepth = defaults.MaxDepth
	}
	if result.MaxPages == 0 {
		result.MaxPages = defaults.MaxPages
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
