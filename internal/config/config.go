// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads appconn settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/appconn/internal/log"
	appconnerrors "github.com/tombee/appconn/pkg/errors"
	"github.com/tombee/appconn/pkg/security"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config represents the complete appconn configuration.
type Config struct {
	Log     LogConfig                   `yaml:"log"`
	HTTP    HTTPConfig                  `yaml:"http"`
	Guard   security.HTTPSecurityConfig `yaml:"guard"`
	Probe   ProbeConfig                 `yaml:"probe"`
	Metrics MetricsConfig               `yaml:"metrics"`
	Tracing TracingConfig               `yaml:"tracing"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	AddSource bool `yaml:"add_source"`
}

// HTTPConfig configures the outbound HTTP client used for probes.
type HTTPConfig struct {
	// Timeout bounds a whole probe request, including reading the body.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent with every probe.
	UserAgent string `yaml:"user_agent"`
}

// ProbeConfig configures the probe transport.
type ProbeConfig struct {
	// RateLimit caps probes per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is the limiter burst size.
	Burst int `yaml:"burst"`

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile, when set, receives the metrics in Prometheus text format
	// after each command, for a node_exporter textfile collector.
	Textfile string `yaml:"textfile"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled writes spans to stderr.
	Enabled bool `yaml:"enabled"`

	// ServiceName is the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "appconn/1.0",
		},
		Guard: *security.DefaultHTTPSecurityConfig(),
		Probe: ProbeConfig{
			Burst:        1,
			MaxBodyBytes: 1 << 20,
		},
		Tracing: TracingConfig{
			ServiceName: "appconn",
		},
	}
}

// Load loads configuration from an optional YAML file and environment
// variables. Environment variables take precedence over the file.
// If configPath is empty, only environment variables are used.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &appconnerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	// Fill zero values left by minimal files
	cfg.applyDefaults()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, &appconnerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// LoadDefault loads the config file at ConfigPath when it exists, and
// environment variables otherwise.
func LoadDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Load("")
	}
	if _, err := os.Stat(path); err != nil {
		return Load("")
	}
	return Load(path)
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = defaults.HTTP.Timeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaults.HTTP.UserAgent
	}

	if len(c.Guard.AllowedSchemes) == 0 {
		c.Guard.AllowedSchemes = defaults.Guard.AllowedSchemes
	}
	if c.Guard.MaxLabelLength == 0 {
		c.Guard.MaxLabelLength = defaults.Guard.MaxLabelLength
	}
	if c.Guard.MaxSubdomainDepth == 0 {
		c.Guard.MaxSubdomainDepth = defaults.Guard.MaxSubdomainDepth
	}

	if c.Probe.Burst == 0 {
		c.Probe.Burst = defaults.Probe.Burst
	}
	if c.Probe.MaxBodyBytes == 0 {
		c.Probe.MaxBodyBytes = defaults.Probe.MaxBodyBytes
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaults.Tracing.ServiceName
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv overrides settings from environment variables. Unlike the
// log variables, malformed numeric values are reported rather than ignored.
func (c *Config) loadFromEnv() error {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("APPCONN_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = parseBool(val)
	}
	if val := os.Getenv("APPCONN_DEBUG"); parseBool(val) {
		c.Log.Level = "debug"
		c.Log.AddSource = true
	}

	if val := os.Getenv("APPCONN_HTTP_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return envError("APPCONN_HTTP_TIMEOUT", err)
		}
		c.HTTP.Timeout = d
	}
	if val := os.Getenv("APPCONN_USER_AGENT"); val != "" {
		c.HTTP.UserAgent = val
	}

	if val := os.Getenv("APPCONN_GUARD_DENY_PRIVATE_IPS"); val != "" {
		c.Guard.DenyPrivateIPs = parseBool(val)
	}

	if val := os.Getenv("APPCONN_PROBE_RATE_LIMIT"); val != "" {
		limit, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return envError("APPCONN_PROBE_RATE_LIMIT", err)
		}
		c.Probe.RateLimit = limit
	}

	if val := os.Getenv("APPCONN_METRICS_TEXTFILE"); val != "" {
		c.Metrics.Textfile = val
	}
	if val := os.Getenv("APPCONN_TRACING"); val != "" {
		c.Tracing.Enabled = parseBool(val)
	}

	return nil
}

func envError(key string, err error) error {
	return &appconnerrors.ConfigError{
		Key:    key,
		Reason: "invalid environment value",
		Cause:  err,
	}
}

func parseBool(val string) bool {
	return val == "1" || strings.ToLower(val) == "true"
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("http.timeout must be positive, got %v", c.HTTP.Timeout))
	}
	if c.HTTP.UserAgent == "" {
		errs = append(errs, "http.user_agent must not be empty")
	}

	if err := c.Guard.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("guard: %v", err))
	}

	if c.Probe.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("probe.rate_limit must be non-negative, got %v", c.Probe.RateLimit))
	}
	if c.Probe.Burst < 1 {
		errs = append(errs, fmt.Sprintf("probe.burst must be at least 1, got %d", c.Probe.Burst))
	}
	if c.Probe.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Sprintf("probe.max_body_bytes must be non-negative, got %d", c.Probe.MaxBodyBytes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}

// LoggerConfig converts the log settings for log.New.
func (c *Config) LoggerConfig(output io.Writer) *log.Config {
	return &log.Config{
		Level:     c.Log.Level,
		Format:    log.Format(c.Log.Format),
		Output:    output,
		AddSource: c.Log.AddSource,
	}
}
