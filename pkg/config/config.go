// Package config loads flowscope settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/traverse"
	"github.com/dd0wney/cluso-flowscope/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the supported report formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// Config is the complete flowscope configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Traversal TraversalConfig `yaml:"traversal"`
	Report    ReportConfig    `yaml:"report"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type TraversalConfig struct {
	// BudgetFactor multiplies the structural visit bound of every pass.
	BudgetFactor int `yaml:"budget_factor" validate:"min=1,max=1024"`
}

type ReportConfig struct {
	Format string `yaml:"format" validate:"oneof=text json yaml"`
	// Strict makes the CLI exit non-zero when a structural error is found.
	Strict bool `yaml:"strict"`
	Color  bool `yaml:"color"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info", Format: "text"},
		Metrics:   MetricsConfig{Namespace: "flowscope"},
		Traversal: TraversalConfig{BudgetFactor: traverse.DefaultBudgetFactor},
		Report:    ReportConfig{Format: FormatText, Color: true},
	}
}

// Load reads and validates a YAML configuration file. Missing keys keep their
// defaults and LOG_LEVEL overrides the file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default, applies environment overrides and
// validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Log.Format = strings.ToLower(format)
	}
}

// Validate checks the struct tags, then the rules spanning several fields.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	return validation.NewConfigValidator("config").
		When(c.Metrics.Enabled, func(cv *validation.ConfigValidator) {
			cv.Required("metrics.namespace", c.Metrics.Namespace)
		}).
		Validate()
}

// Logger builds the logger described by the log section.
func (c Config) Logger(w io.Writer) logging.Logger {
	return logging.New(w, logging.ParseLevel(c.Log.Level), logging.ParseFormat(c.Log.Format))
}
