// Package config provides settings loading for the reviewgame CLI.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AppConfig contains all reviewgame CLI settings. Experiment parameters live
// in experiment files, not here.
type AppConfig struct {
	// Store contains settings for run persistence.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Runner contains settings for executing runs and sweeps.
	Runner RunnerConfig `json:"runner" yaml:"runner"`

	// Metrics contains settings for the Prometheus text dump.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// StoreConfig configures the SQLite run store.
type StoreConfig struct {
	// Path is the database file. Supports ${VAR} syntax for env vars.
	Path string `json:"path" yaml:"path" validate:"required"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "trace" logs every tick.
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=error warn info debug trace"`

	// Format is "text" (default) or "json".
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// RunnerConfig configures run execution.
type RunnerConfig struct {
	// Parallel is the number of sweep runs executed concurrently.
	Parallel int `json:"parallel" yaml:"parallel" validate:"gte=1,lte=64"`

	// AuditEvery audits the review population every N ticks. 0 audits only
	// at the end of a run.
	AuditEvery int `json:"audit_every" yaml:"audit_every" validate:"gte=0"`
}

// MetricsConfig configures the metrics dump written after a command.
type MetricsConfig struct {
	// Output is a file path for the text exposition format; "" disables it.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Default returns an AppConfig with sensible defaults.
func Default() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			Path: "reviewgame.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Runner: RunnerConfig{
			Parallel:   4,
			AuditEvery: 1000,
		},
	}
}

// Load loads configuration from path, or from ~/.reviewgame/config.yaml when
// path is empty, and then applies environment variable overrides.
// Order: defaults -> file -> environment variables
func Load(path string) (*AppConfig, error) {
	config := Default()

	if path == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(homeDir, ".reviewgame", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)
	config.Store.Path = expandEnvVars(config.Store.Path)
	config.Metrics.Output = expandEnvVars(config.Metrics.Output)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks that the configuration is valid.
func (c *AppConfig) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "AppConfig.")
		if fe.Param() != "" {
			return fmt.Errorf("invalid %s: %v (must satisfy %s=%s)", field, fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid %s: %v (must satisfy %s)", field, fe.Value(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %w", err)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *AppConfig) {
	if v := os.Getenv("REVIEWGAME_DB"); v != "" {
		config.Store.Path = v
	}

	if v := os.Getenv("REVIEWGAME_LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("REVIEWGAME_LOG_FORMAT"); v != "" {
		config.Logging.Format = strings.ToLower(v)
	}

	if v := os.Getenv("REVIEWGAME_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Runner.Parallel = n
		}
	}
	if v := os.Getenv("REVIEWGAME_AUDIT_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Runner.AuditEvery = n
		}
	}

	if v := os.Getenv("REVIEWGAME_METRICS_OUT"); v != "" {
		config.Metrics.Output = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
