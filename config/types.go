package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/moby/patternmatcher"
)

const (
	DefaultConcurrency = 8
	DefaultCacheSize   = 256
)

// Config is the pyfinder configuration loaded from pyfinder.toml or pyfinder.yml.
type Config struct {
	Search  SearchConfig  `yaml:"search,omitempty" toml:"search,omitempty" jsonschema:"description=Where and how environments are searched for"`
	Resolve ResolveConfig `yaml:"resolve,omitempty" toml:"resolve,omitempty" jsonschema:"description=On-demand resolve settings"`

	// Extensions holds every top-level section that is not part of the core
	// schema (for example "logging"). Decode them with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:"-" toml:"-" jsonschema:"-"`
}

// SearchConfig controls the bulk refresh.
type SearchConfig struct {
	Exclude         []string `yaml:"exclude,omitempty" toml:"exclude,omitempty" jsonschema:"description=Glob patterns of directories never scanned"`
	SearchPaths     []string `yaml:"search_paths,omitempty" toml:"search_paths,omitempty" jsonschema:"description=Workspace directories checked for in-project environments"`
	VirtualEnvPaths []string `yaml:"virtual_env_paths,omitempty" toml:"virtual_env_paths,omitempty" jsonschema:"description=Directories whose children are virtual environments"`
	CondaExecutable string   `yaml:"conda_executable,omitempty" toml:"conda_executable,omitempty" jsonschema:"description=Explicit conda binary"`
	Watch           *bool    `yaml:"watch,omitempty" toml:"watch,omitempty" jsonschema:"description=Re-run discovery when pyenv or conda install new environments (default: true)"`
	Concurrency     int      `yaml:"concurrency,omitempty" toml:"concurrency,omitempty" jsonschema:"minimum=1,maximum=64,description=Parallel classification workers"`
}

// ResolveConfig controls the on-demand resolve of a single executable.
type ResolveConfig struct {
	CacheSize int    `yaml:"cache_size,omitempty" toml:"cache_size,omitempty" jsonschema:"minimum=1,description=Number of resolved executables kept in memory"`
	Timeout   string `yaml:"timeout,omitempty" toml:"timeout,omitempty" jsonschema:"description=Interpreter introspection timeout such as 5s (empty means none)"`
}

// WatchEnabled reports whether the session should watch manager directories.
func (s SearchConfig) WatchEnabled() bool {
	return s.Watch == nil || *s.Watch
}

// TimeoutDuration parses Timeout. An empty value yields zero, meaning no limit.
func (r ResolveConfig) TimeoutDuration() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(r.Timeout)
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Search.Concurrency <= 0 {
		c.Search.Concurrency = DefaultConcurrency
	}
	if c.Resolve.CacheSize <= 0 {
		c.Resolve.CacheSize = DefaultCacheSize
	}
}

// Validate performs the checks the JSON schema cannot express.
func (c *Config) Validate() error {
	if _, err := patternmatcher.New(c.Search.Exclude); err != nil {
		return fmt.Errorf("search.exclude: %w", err)
	}
	if d, err := c.Resolve.TimeoutDuration(); err != nil {
		return fmt.Errorf("resolve.timeout: %w", err)
	} else if d < 0 {
		return fmt.Errorf("resolve.timeout: must not be negative")
	}
	return nil
}

// UnmarshalExtension decodes a specific extension's configuration into the
// provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// Missing sections leave the target zero-valued.
		return nil
	}

	if err := decode(extensionConfig, target); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// decode maps a generic document onto a yaml-tagged struct.
func decode(input, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	return decoder.Decode(input)
}
