// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < explicit file < env < flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/logflow/procmine/pkg/errors"
)

// Config holds all procmine configuration.
type Config struct {
	Version int `yaml:"version"`

	Ingest    IngestConfig    `yaml:"ingest"`
	Display   DisplayConfig   `yaml:"display"`
	Sources   SourcesConfig   `yaml:"sources"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// IngestConfig controls trace extraction.
type IngestConfig struct {
	PrefixScale int64  `yaml:"prefix_scale"` // case id divisor of the prefix index
	Checkpoints int    `yaml:"checkpoints"`  // progress reports per run
	ErrorPolicy string `yaml:"error_policy"` // skip | strict | quarantine
	MaxErrors   int    `yaml:"max_errors"`   // 0 = unlimited
}

// DisplayConfig controls terminal output.
type DisplayConfig struct {
	Color     bool `yaml:"color"`
	Progress  bool `yaml:"progress"`
	MaxTraces int  `yaml:"max_traces"` // 0 = all
}

// SourcesConfig configures remote sources.
type SourcesConfig struct {
	S3          S3Config      `yaml:"s3"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// S3Config for s3:// sources.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// LoggingConfig for diagnostics on stderr.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// TelemetryConfig for optional OTLP tracing.
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Endpoint      string  `yaml:"endpoint"`
	ServiceName   string  `yaml:"service_name"`
	SamplingRatio float64 `yaml:"sampling_ratio"`
	Insecure      bool    `yaml:"insecure"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Ingest: IngestConfig{
			PrefixScale: 100000,
			Checkpoints: 100,
			ErrorPolicy: "skip",
		},
		Display: DisplayConfig{
			Color:    true,
			Progress: true,
		},
		Sources: SourcesConfig{
			HTTPTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			Endpoint:      "localhost:4317",
			ServiceName:   "procmine",
			SamplingRatio: 1.0,
			Insecure:      true,
		},
	}
}

// Validate checks values that have a closed set of options.
func (c *Config) Validate() error {
	if c.Ingest.PrefixScale <= 0 {
		return errors.InvalidConfig("ingest.prefix_scale", c.Ingest.PrefixScale)
	}
	if c.Ingest.Checkpoints <= 0 {
		return errors.InvalidConfig("ingest.checkpoints", c.Ingest.Checkpoints)
	}
	if c.Ingest.MaxErrors < 0 {
		return errors.InvalidConfig("ingest.max_errors", c.Ingest.MaxErrors)
	}
	switch c.Ingest.ErrorPolicy {
	case "skip", "strict", "quarantine":
	default:
		return errors.InvalidConfig("ingest.error_policy", c.Ingest.ErrorPolicy)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.InvalidConfig("logging.level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.InvalidConfig("logging.format", c.Logging.Format)
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return errors.InvalidConfig("telemetry.sampling_ratio", c.Telemetry.SamplingRatio)
	}
	return nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	search []string // candidate files, lowest priority first
	paths  []string // files that were loaded
	getenv func(string) string
}

// NewManager creates a manager searching the standard locations.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
		search: defaultConfigPaths(),
		getenv: os.Getenv,
	}
}

// NewManagerWithPaths creates a manager searching only the given files.
func NewManagerWithPaths(paths ...string) *Manager {
	m := NewManager()
	m.search = paths
	return m
}

// Load loads configuration from all sources in priority order. explicit,
// when set, is loaded after the standard files and must exist.
func (m *Manager) Load(explicit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.search {
		if err := m.loadFile(path); err != nil {
			// Missing files are expected; broken ones are not.
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	if explicit != "" {
		if err := m.loadFile(explicit); err != nil {
			if os.IsNotExist(err) {
				return errors.FileNotFound(explicit)
			}
			return err
		}
		m.paths = append(m.paths, explicit)
	}

	m.loadEnv()
	return m.config.Validate()
}

// defaultConfigPaths returns config file paths in priority order.
func defaultConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/procmine/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".procmine", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".procmine.yaml"))
	}
	return paths
}

// loadFile decodes a config file over the current values. Keys absent from
// the file keep their value, so explicit zero values such as
// "color: false" still apply.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, m.config); err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "cannot parse config file").WithContext("path", path)
	}
	return nil
}

// loadEnv loads configuration from PROCMINE_* environment variables.
func (m *Manager) loadEnv() {
	env := m.getenv

	if v := env("PROCMINE_PREFIX_SCALE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			m.config.Ingest.PrefixScale = n
		}
	}
	if v := env("PROCMINE_CHECKPOINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Ingest.Checkpoints = n
		}
	}
	if v := env("PROCMINE_ERROR_POLICY"); v != "" {
		m.config.Ingest.ErrorPolicy = v
	}
	if v := env("PROCMINE_MAX_ERRORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Ingest.MaxErrors = n
		}
	}
	if v := env("PROCMINE_LOG_LEVEL"); v != "" {
		m.config.Logging.Level = v
	}
	if v := env("PROCMINE_LOG_FORMAT"); v != "" {
		m.config.Logging.Format = v
	}
	if v := env("PROCMINE_S3_REGION"); v != "" {
		m.config.Sources.S3.Region = v
	}
	if v := env("PROCMINE_S3_ENDPOINT"); v != "" {
		m.config.Sources.S3.Endpoint = v
	}
	if v := env("PROCMINE_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Endpoint = v
		m.config.Telemetry.Enabled = true
	}
	// https://no-color.org
	if env("NO_COLOR") != "" {
		m.config.Display.Color = false
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// UserConfigPath returns the per-user config file location.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".procmine", "config.yaml"), nil
}
