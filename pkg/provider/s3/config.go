// Package s3 connects credential and endpoint resolution to AWS: bucket
// location lookups over S3 and instance-profile credentials over IMDS.
package s3

import (
	"strings"

	"github.com/3leaps/s3route/pkg/credentials"
	"github.com/3leaps/s3route/pkg/endpoint"
)

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// Config configures an S3 client.
//
// Credentials are always static: they come from a resolved
// credentials.Credential rather than the SDK default chain, so that the
// caller decides precedence.
//
// Region handling:
//   - For AWS S3: If Region is empty and not set via environment/profile,
//     defaults to us-east-1.
//   - For S3-compatible stores: When Endpoint is set, no default region is
//     applied.
type Config struct {
	// Credential is the resolved credential. It must be complete.
	Credential credentials.Credential

	// Region is the signing region.
	Region string

	// Endpoint is a custom endpoint URL, e.g. https://s3-us-west-2.amazonaws.com
	// or http://localhost:5555. Leave empty for the SDK default.
	Endpoint string

	// ForcePathStyle forces path-style URLs (bucket in path, not subdomain).
	ForcePathStyle bool
}

// ConfigFor returns the client configuration that addresses the bucket
// described by info.
//
// Virtual-hosted buckets use the SDK default endpoint. Path-style buckets
// are pinned to the resolved endpoint host and its signing region.
func ConfigFor(cred credentials.Credential, info endpoint.CallingInfo) Config {
	cfg := Config{Credential: cred}
	if info.Format != endpoint.PathStyle {
		return cfg
	}

	cfg.ForcePathStyle = true
	if info.EndpointHost != "" {
		cfg.Endpoint = "https://" + info.EndpointHost
		cfg.Region = endpoint.SigningRegion(info.Region)
	}
	return cfg
}

// Validate checks that required configuration is present.
//
// An incomplete credential is reported with the error from
// credentials.RequireComplete so callers can tell it apart from a malformed
// endpoint.
func (c *Config) Validate() error {
	if err := credentials.RequireComplete(c.Credential); err != nil {
		return err
	}

	if c.Endpoint != "" && !strings.HasPrefix(c.Endpoint, "https://") && !strings.HasPrefix(c.Endpoint, "http://") {
		return &ConfigError{
			Field:   "Endpoint",
			Message: "endpoint must start with http:// or https://",
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}
