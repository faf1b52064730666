package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all agent configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Agent    AgentConfig    `yaml:"agent"`
	Reporter ReporterConfig `yaml:"reporter"`
	Logging  LogConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// AgentConfig holds instrumentation settings. A value copy of this struct is
// captured when a transaction starts, so all enrichment decisions for one
// request see the same configuration even if it is reloaded mid-flight.
type AgentConfig struct {
	ServiceName string `envconfig:"AGENT_SERVICE_NAME" default:"tracekit" yaml:"service_name"`

	// TransactionIgnoreUrls are wildcard patterns matched (case-insensitively)
	// against the request path. Matching requests are not instrumented at all.
	TransactionIgnoreUrls []string `envconfig:"AGENT_IGNORE_URLS" default:"/health,/metrics" yaml:"transaction_ignore_urls"`

	// CaptureHeaders controls whether request/response headers are recorded
	// on sampled transactions.
	CaptureHeaders bool `envconfig:"AGENT_CAPTURE_HEADERS" default:"true" yaml:"capture_headers"`

	// CaptureBody controls request body recording: "off", "errors" (only when
	// a capture is forced by an error path) or "all".
	CaptureBody string `envconfig:"AGENT_CAPTURE_BODY" default:"errors" yaml:"capture_body"`

	// BodyLimit caps the number of body bytes recorded per transaction.
	BodyLimit int `envconfig:"AGENT_BODY_LIMIT" default:"2048" yaml:"body_limit"`

	// SanitizeFieldNames are wildcard patterns for form field names whose
	// values must be replaced by a redaction marker in captured bodies.
	SanitizeFieldNames []string `envconfig:"AGENT_SANITIZE_FIELD_NAMES" default:"password,passwd,pwd,secret,*key,*token*,*session*,*credit*,*card*,*auth*,set-cookie" yaml:"sanitize_field_names"`

	// SampleRate is the ratio of fresh traces that are sampled. Continued
	// traces always keep the caller's sampling decision.
	SampleRate float64 `envconfig:"AGENT_SAMPLE_RATE" default:"1.0" yaml:"sample_rate"`
}

// ReporterConfig holds collector export configuration.
type ReporterConfig struct {
	Enabled       bool          `envconfig:"REPORTER_ENABLED" default:"false" yaml:"enabled"`
	ServerURL     string        `envconfig:"REPORTER_URL" default:"http://localhost:8200" yaml:"server_url"`
	Timeout       time.Duration `envconfig:"REPORTER_TIMEOUT" default:"10s" yaml:"timeout"`
	MaxRetries    int           `envconfig:"REPORTER_MAX_RETRIES" default:"3" yaml:"max_retries"`
	RatePerSecond float64       `envconfig:"REPORTER_RATE" default:"100" yaml:"rate_per_second"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads environment configuration and overlays a YAML file on top.
// File values win over environment values for every key the file sets.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Agent: AgentConfig{
			ServiceName:           "tracekit",
			TransactionIgnoreUrls: []string{"/health", "/metrics"},
			CaptureHeaders:        true,
			CaptureBody:           "errors",
			BodyLimit:             2048,
			SanitizeFieldNames: []string{
				"password", "passwd", "pwd", "secret", "*key",
				"*token*", "*session*", "*credit*", "*card*", "*auth*", "set-cookie",
			},
			SampleRate: 1.0,
		},
		Reporter: ReporterConfig{
			Enabled:       false,
			ServerURL:     "http://localhost:8200",
			Timeout:       10 * time.Second,
			MaxRetries:    3,
			RatePerSecond: 100,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
