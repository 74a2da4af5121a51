// Package config holds the server configuration: built-in defaults, an
// optional YAML or JSON file, then LINEHTTPD_* environment overrides.
package config

import (
	"fmt"
)

// EnvPrefix prefixes every environment override, e.g. LINEHTTPD_WORKERS.
const EnvPrefix = "LINEHTTPD"

// Config is the complete server configuration.
type Config struct {
	// Addr is the listening address.
	Addr string `yaml:"addr" json:"addr"`

	// Workers is the fixed worker pool size.
	Workers int `yaml:"workers" json:"workers"`

	// ReadBufferSize bounds the single read taken per connection.
	ReadBufferSize int `yaml:"read_buffer_size" json:"read_buffer_size"`

	// Root is the directory files are served from; empty means the
	// working directory.
	Root string `yaml:"root" json:"root"`

	// NotFoundPage is the body of every 404, relative to Root.
	NotFoundPage string `yaml:"not_found_page" json:"not_found_page"`

	// ParseErrorPolicy is "not_found" or "drop".
	ParseErrorPolicy string `yaml:"parse_error_policy" json:"parse_error_policy"`

	// AcceptRetry keeps the accept loop alive across Accept failures.
	AcceptRetry bool `yaml:"accept_retry" json:"accept_retry"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
	Exporter    string `yaml:"exporter" json:"exporter"` // stdout or zipkin
	Endpoint    string `yaml:"endpoint" json:"endpoint"` // zipkin collector URL
}

// Default returns the built-in configuration: loopback port 7878, four
// workers, 1 KiB reads.
func Default() *Config {
	return &Config{
		Addr:             "127.0.0.1:7878",
		Workers:          4,
		ReadBufferSize:   1024,
		NotFoundPage:     "404.html",
		ParseErrorPolicy: "not_found",
		LogLevel:         "info",
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
		Tracing: TracingConfig{
			ServiceName: "linehttpd",
			Exporter:    "stdout",
		},
	}
}

// Validators returns the rules a Config must satisfy.
func Validators() []Validator {
	return []Validator{
		RequiredFields("Addr", "NotFoundPage"),
		RangeValidator("Workers", 1, 1024),
		RangeValidator("ReadBufferSize", 64, 1<<20),
		OneOfValidator("ParseErrorPolicy", "not_found", "drop"),
		OneOfValidator("LogLevel", "debug", "info", "warn", "error"),
		OneOfValidator("Tracing.Exporter", "stdout", "zipkin"),
		ValidatorFunc(func(c interface{}) error {
			cfg := c.(*Config)
			if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
				return fmt.Errorf("metrics enabled without metrics.addr")
			}
			if cfg.Tracing.Enabled && cfg.Tracing.Exporter == "zipkin" && cfg.Tracing.Endpoint == "" {
				return fmt.Errorf("zipkin exporter without tracing.endpoint")
			}
			return nil
		}),
	}
}

// Validate checks c against Validators.
func (c *Config) Validate() error {
	return Validate(c, Validators()...)
}

// LoadConfig builds the effective configuration. path may be empty, in
// which case only defaults and environment overrides apply.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := Load(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnvOverrides(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
