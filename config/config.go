// Package config resolves the tool configuration from an optional YAML
// file and environment overrides. Precedence, lowest to highest:
// defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crateops/categorycheck/registry"
)

// Environment variable names.
const (
	// EnvAPIURL overrides the registry API base URL.
	EnvAPIURL = "CATEGORYCHECK_API_URL"

	// EnvDelay overrides the courtesy delay before uncached requests,
	// as a Go duration string ("0", "500ms", "2s").
	EnvDelay = "CATEGORYCHECK_DELAY"

	// EnvTimeout overrides the per-request HTTP timeout.
	EnvTimeout = "CATEGORYCHECK_TIMEOUT"
)

// Config is the resolved tool configuration.
type Config struct {
	// RegistryURL is the registry API base URL.
	RegistryURL string

	// RequestDelay is the courtesy pause before each uncached lookup.
	RequestDelay time.Duration

	// Timeout is the per-request HTTP timeout. Zero means none: a hung
	// registry blocks the run, and CI callers should wrap the
	// invocation with an external timeout.
	Timeout time.Duration

	// ManifestGlobs are the discovery patterns for package manifests.
	// Empty means the loader default.
	ManifestGlobs []string

	// Exclude lists package names to skip during validation.
	Exclude []string
}

// fileConfig is the YAML shape. Durations are strings so the file reads
// naturally ("500ms", "2s").
type fileConfig struct {
	RegistryURL   string   `yaml:"registry_url"`
	RequestDelay  string   `yaml:"request_delay"`
	Timeout       string   `yaml:"timeout"`
	ManifestGlobs []string `yaml:"manifest_globs"`
	Exclude       []string `yaml:"exclude"`
}

// Load resolves the configuration. path may be empty (no file); a named
// file that does not exist is an error, so CI misconfigurations fail loud.
func Load(path string) (*Config, error) {
	cfg := &Config{
		RegistryURL:  registry.DefaultBaseURL,
		RequestDelay: registry.DefaultRequestDelay,
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.RegistryURL != "" {
		c.RegistryURL = fc.RegistryURL
	}
	if fc.RequestDelay != "" {
		d, err := time.ParseDuration(fc.RequestDelay)
		if err != nil {
			return fmt.Errorf("config %s: request_delay: %w", path, err)
		}
		c.RequestDelay = d
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("config %s: timeout: %w", path, err)
		}
		c.Timeout = d
	}
	if len(fc.ManifestGlobs) > 0 {
		c.ManifestGlobs = fc.ManifestGlobs
	}
	if len(fc.Exclude) > 0 {
		c.Exclude = fc.Exclude
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.RegistryURL = v
	}
	if v := os.Getenv(EnvDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDelay, err)
		}
		c.RequestDelay = d
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return c.validate()
}

func (c *Config) validate() error {
	if c.RegistryURL == "" {
		return errors.New("registry URL must not be empty")
	}
	if c.RequestDelay < 0 {
		return errors.New("request delay must not be negative")
	}
	return nil
}

// Excluded reports whether a package name is configured to be skipped.
func (c *Config) Excluded(name string) bool {
	for _, e := range c.Exclude {
		if e == name {
			return true
		}
	}
	return false
}
