// Package config loads s3route configuration from defaults, an optional
// YAML file, S3ROUTE_* environment variables and runtime overrides.
package config

import (
	"fmt"
	"time"
)

// Config is the complete s3route configuration.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Metadata    MetadataConfig    `mapstructure:"metadata" yaml:"metadata"`
	Lookup      LookupConfig      `mapstructure:"lookup" yaml:"lookup"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`

	// Regions overlays the built-in region-to-host table.
	Regions map[string]string `mapstructure:"regions" yaml:"regions,omitempty"`

	// Workers bounds concurrent bucket resolutions.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetadataConfig configures instance metadata access.
type MetadataConfig struct {
	// Timeout bounds the whole instance-profile fetch.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Endpoint overrides the metadata service address.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// LookupConfig configures bucket location lookups.
type LookupConfig struct {
	// Timeout bounds each location request.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RateLimit caps location requests per second. Zero disables it.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Endpoint overrides the S3 endpoint used for location requests.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// CredentialsConfig carries explicitly supplied credential fields. They
// take precedence over the environment.
type CredentialsConfig struct {
	AccessKeyID   string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecurityToken string `mapstructure:"security_token" yaml:"security_token,omitempty"`
}

// Defaults.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultMetadataTimeout = 5 * time.Second
	DefaultLookupTimeout   = 10 * time.Second
	DefaultWorkers         = 4
)

// Validate checks value ranges that decoding cannot.
func (c *Config) Validate() error {
	if c.Metadata.Timeout <= 0 {
		return &ValidationError{Key: "metadata.timeout", Message: "must be positive"}
	}
	if c.Lookup.Timeout <= 0 {
		return &ValidationError{Key: "lookup.timeout", Message: "must be positive"}
	}
	if c.Lookup.RateLimit < 0 {
		return &ValidationError{Key: "lookup.rate_limit", Message: "must not be negative"}
	}
	if c.Workers < 1 {
		return &ValidationError{Key: "workers", Message: "must be >= 1"}
	}
	for region, host := range c.Regions {
		if host == "" {
			return &ValidationError{Key: "regions." + region, Message: "host must not be empty"}
		}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Credentials.SecurityToken != "" {
		c.Credentials.SecurityToken = "[redacted]"
	}
	if c.Credentials.AccessKeyID != "" {
		c.Credentials.AccessKeyID = "[set]"
	}
	return c
}

// ValidationError reports an out-of-range configuration value.
type ValidationError struct {
	Key     string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Message)
}
