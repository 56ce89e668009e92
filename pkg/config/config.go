// Package config provides loading, environment overrides, defaults and validation
// for the per-project bundler configuration stored in .bundler/config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"bundler/pkg/logx"
)

// Project config constants.
const (
	ProjectConfigDir      = ".bundler"
	ProjectConfigFilename = "config.json"
	EnvPrefix             = "BUNDLER_"
)

// Build backend names.
const (
	BackendDryRun  = "dry-run"
	BackendProcess = "process"
)

// Defaults.
const (
	DefaultOutputDir  = "build"
	DefaultTimeoutSec = 600
	DefaultSpoolFile  = "usage.db"
)

// BuildConfig selects and configures the build backend.
type BuildConfig struct {
	Backend         string   `json:"backend"`          // "dry-run" or "process"
	PipelineCommand []string `json:"pipeline_command"` // argv prefix for the assemble step
	BuilderCommand  []string `json:"builder_command"`  // argv prefix for the bundle builder
	OutputDir       string   `json:"output_dir"`       // Root for per-configuration build directories
	TimeoutSec      int      `json:"timeout_sec"`
}

// AnalyticsConfig controls where usage dimensions are recorded.
type AnalyticsConfig struct {
	Enabled     bool   `json:"enabled"`
	SpoolPath   string `json:"spool_path"`   // SQLite spool; relative paths resolve under .bundler
	MetricsFile string `json:"metrics_file"` // Prometheus textfile output; empty disables
}

// Config is the project-level bundler configuration.
type Config struct {
	Features  map[string]bool `json:"features"`
	Build     BuildConfig     `json:"build"`
	Analytics AnalyticsConfig `json:"analytics"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Path returns the config file location for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, ProjectConfigDir, ProjectConfigFilename)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Analytics.Enabled = true
	applyDefaults(cfg)
	return cfg
}

// Load reads the project's config file. A missing file yields defaults with
// environment overrides applied.
func Load(projectDir string) (*Config, error) {
	path := Path(projectDir)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logx.NewLogger("config").Debug("No config at %s, using defaults", path)
		cfg := Default()
		applyEnvOverrides(cfg)
		if err := validateConfig(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads and validates configuration from a JSON file with environment variable substitution.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dataStr := envVarRegex.ReplaceAllStringFunc(string(data), func(match string) string {
		envVar := match[2 : len(match)-1]
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})

	cfg := &Config{}
	cfg.Analytics.Enabled = true
	if err := json.Unmarshal([]byte(dataStr), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to the project's config file.
func Save(projectDir string, cfg *Config) error {
	path := Path(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SpoolPath resolves the analytics spool location for a project directory.
func (c *Config) SpoolPath(projectDir string) string {
	if filepath.IsAbs(c.Analytics.SpoolPath) {
		return c.Analytics.SpoolPath
	}
	return filepath.Join(projectDir, ProjectConfigDir, c.Analytics.SpoolPath)
}

// applyEnvOverrides sets scalar fields from BUNDLER_<SECTION>_<FIELD> variables,
// e.g. BUNDLER_BUILD_BACKEND=process.
func applyEnvOverrides(cfg *Config) {
	v := reflect.ValueOf(cfg).Elem()
	applyEnvOverridesRecursive(v, v.Type(), EnvPrefix)
}

func applyEnvOverridesRecursive(v reflect.Value, t reflect.Type, prefix string) {
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		jsonTag := fieldType.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		envKey := strings.ToUpper(prefix + strings.Split(jsonTag, ",")[0])

		if field.Kind() == reflect.Struct {
			applyEnvOverridesRecursive(field, field.Type(), envKey+"_")
			continue
		}

		if envValue := os.Getenv(envKey); envValue != "" {
			setFieldFromEnv(field, envValue)
		}
	}
}

func setFieldFromEnv(field reflect.Value, envValue string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int:
		if val, err := strconv.Atoi(envValue); err == nil {
			field.SetInt(int64(val))
		}
	case reflect.Bool:
		if val, err := strconv.ParseBool(envValue); err == nil {
			field.SetBool(val)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(strings.Fields(envValue)))
		}
	}
}

// applyDefaults sets default values for missing configuration.
func applyDefaults(cfg *Config) {
	if cfg.Features == nil {
		cfg.Features = make(map[string]bool)
	}
	if cfg.Build.Backend == "" {
		cfg.Build.Backend = BackendDryRun
	}
	if cfg.Build.OutputDir == "" {
		cfg.Build.OutputDir = DefaultOutputDir
	}
	if cfg.Build.TimeoutSec == 0 {
		cfg.Build.TimeoutSec = DefaultTimeoutSec
	}
	if cfg.Analytics.SpoolPath == "" {
		cfg.Analytics.SpoolPath = DefaultSpoolFile
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Build.Backend {
	case BackendDryRun:
	case BackendProcess:
		if len(cfg.Build.PipelineCommand) == 0 {
			return fmt.Errorf("build.pipeline_command is required for the %s backend", BackendProcess)
		}
		if len(cfg.Build.BuilderCommand) == 0 {
			return fmt.Errorf("build.builder_command is required for the %s backend", BackendProcess)
		}
	default:
		return fmt.Errorf("unknown build backend: %s", cfg.Build.Backend)
	}

	if cfg.Build.TimeoutSec < 0 {
		return fmt.Errorf("build.timeout_sec must not be negative")
	}
	return nil
}
