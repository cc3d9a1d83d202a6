package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding file values
const (
	EnvLogLevel        = "REDB_UPGRADE_LOG_LEVEL"
	EnvOutputFormat    = "REDB_UPGRADE_OUTPUT_FORMAT"
	EnvTemporaryPrefix = "REDB_UPGRADE_TEMP_PREFIX"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds the upgrade tool configuration
type Config struct {
	Planner Planner `yaml:"planner"`
	Logging Logging `yaml:"logging"`
	Output  Output  `yaml:"output"`
}

// Planner configures sequence synthesis
type Planner struct {
	// TemporaryPrefix is prepended to node names during cyclic renames
	TemporaryPrefix string `yaml:"temporary_prefix"`
}

type Logging struct {
	Level string `yaml:"level"`
	Color *bool  `yaml:"color,omitempty"`
}

type Output struct {
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Planner: Planner{TemporaryPrefix: "Temp_"},
		Logging: Logging{Level: "INFO"},
		Output:  Output{Format: FormatText},
	}
}

// Load reads the configuration file at path, fills in defaults and applies environment overrides.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // path is supplied by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if c.Planner.TemporaryPrefix == "" {
		c.Planner.TemporaryPrefix = defaults.Planner.TemporaryPrefix
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Output.Format == "" {
		c.Output.Format = defaults.Output.Format
	}
}

// ApplyEnv overrides values from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvOutputFormat); ok && v != "" {
		c.Output.Format = v
	}
	if v, ok := lookup(EnvTemporaryPrefix); ok && v != "" {
		c.Planner.TemporaryPrefix = v
	}
}

// Validate checks enumerated values
func (c *Config) Validate() error {
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Output.Format) {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid output.format %q: must be %s or %s", c.Output.Format, FormatText, FormatJSON)
	}

	if strings.ContainsAny(c.Planner.TemporaryPrefix, "/\\") {
		return fmt.Errorf("invalid planner.temporary_prefix %q: must not contain path separators", c.Planner.TemporaryPrefix)
	}
	return nil
}
