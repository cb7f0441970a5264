package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s3route.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(ctx, "")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
		assert.Equal(t, 5*time.Second, cfg.Metadata.Timeout)
		assert.Equal(t, 10*time.Second, cfg.Lookup.Timeout)
		assert.Zero(t, cfg.Lookup.RateLimit)
		assert.Empty(t, cfg.Regions)
		assert.Empty(t, cfg.Credentials.AccessKeyID)
		assert.Equal(t, 4, cfg.Workers)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"logging": map[string]any{
				"level": "debug",
			},
			"credentials": map[string]any{
				"access_key_id": "AKIDEXAMPLE",
			},
		}

		cfg, err := Load(ctx, "", overrides)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "AKIDEXAMPLE", cfg.Credentials.AccessKeyID)

		// Non-overridden values remain default
		assert.Equal(t, 10*time.Second, cfg.Lookup.Timeout)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("S3ROUTE_LOG_LEVEL", "warn")
		t.Setenv("S3ROUTE_LOOKUP_TIMEOUT", "45s")
		t.Setenv("S3ROUTE_WORKERS", "8")

		cfg, err := Load(ctx, "")
		require.NoError(t, err)

		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, 45*time.Second, cfg.Lookup.Timeout)
		assert.Equal(t, 8, cfg.Workers)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := writeConfigFile(t, `
logging:
  level: error
metadata:
  timeout: 2s
lookup:
  rate_limit: 5
regions:
  eu-central-1: s3.eu-central-1.amazonaws.com
  us-west-2: s3.dualstack.us-west-2.amazonaws.com
`)

		cfg, err := Load(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, "error", cfg.Logging.Level)
		assert.Equal(t, 2*time.Second, cfg.Metadata.Timeout)
		assert.Equal(t, 5.0, cfg.Lookup.RateLimit)
		assert.Equal(t, map[string]string{
			"eu-central-1": "s3.eu-central-1.amazonaws.com",
			"us-west-2":    "s3.dualstack.us-west-2.amazonaws.com",
		}, cfg.Regions)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		path := writeConfigFile(t, "lookup:\n  timeout: 20s\nlogging:\n  level: error\n")
		t.Setenv("S3ROUTE_LOOKUP_TIMEOUT", "30s")

		overrides := map[string]any{"lookup": map[string]any{"timeout": "40s"}}

		cfg, err := Load(ctx, path, overrides)
		require.NoError(t, err)

		// Runtime override beats env, env beats file.
		assert.Equal(t, 40*time.Second, cfg.Lookup.Timeout)
		assert.Equal(t, "error", cfg.Logging.Level)

		cfg, err = Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.Lookup.Timeout)
	})

	t.Run("MissingConfigFile", func(t *testing.T) {
		_, err := Load(ctx, filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Load(cctx, "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoad_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		overrides map[string]any
		wantKey   string
	}{
		{
			name:      "zero metadata timeout",
			overrides: map[string]any{"metadata": map[string]any{"timeout": "0s"}},
			wantKey:   "metadata.timeout",
		},
		{
			name:      "negative lookup timeout",
			overrides: map[string]any{"lookup": map[string]any{"timeout": "-1s"}},
			wantKey:   "lookup.timeout",
		},
		{
			name:      "negative rate limit",
			overrides: map[string]any{"lookup": map[string]any{"rate_limit": -1}},
			wantKey:   "lookup.rate_limit",
		},
		{
			name:      "no workers",
			overrides: map[string]any{"workers": 0},
			wantKey:   "workers",
		},
		{
			name:      "empty region host",
			overrides: map[string]any{"regions": map[string]any{"eu-central-1": ""}},
			wantKey:   "regions.eu-central-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(ctx, "", tt.overrides)
			require.Error(t, err)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantKey, vErr.Key)
		})
	}
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()

	cfg, err := Load(ctx, "", map[string]any{"workers": 6})
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Workers, retrieved.Workers)

	// A failed load leaves the previous config in place.
	_, err = Load(ctx, "", map[string]any{"workers": 0})
	require.Error(t, err)
	assert.Equal(t, 6, GetConfig().Workers)
}

func TestEnvSpecs(t *testing.T) {
	specs := getEnvSpecs()
	assert.NotEmpty(t, specs)

	v := viper.New()
	SetDefaults(v)

	envVarNames := make(map[string]bool)
	for _, spec := range specs {
		envVarNames[spec.Name] = true
		assert.True(t, v.IsSet(spec.Key), "%s maps to unknown key %s", spec.Name, spec.Key)
	}

	assert.True(t, envVarNames["S3ROUTE_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, envVarNames["S3ROUTE_METADATA_TIMEOUT"], "METADATA_TIMEOUT env var must be mapped")
	assert.True(t, envVarNames["S3ROUTE_LOOKUP_TIMEOUT"], "LOOKUP_TIMEOUT env var must be mapped")
}

func TestYAML_RedactsCredentials(t *testing.T) {
	cfg := &Config{
		Logging:     LoggingConfig{Level: "info", Format: "console"},
		Metadata:    MetadataConfig{Timeout: DefaultMetadataTimeout},
		Lookup:      LookupConfig{Timeout: DefaultLookupTimeout},
		Credentials: CredentialsConfig{AccessKeyID: "AKIDEXAMPLE", SecurityToken: "very-secret-token"},
		Workers:     DefaultWorkers,
	}

	out, err := YAML(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "AKIDEXAMPLE")
	assert.NotContains(t, string(out), "very-secret-token")
	assert.Contains(t, string(out), "[redacted]")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Contains(t, decoded, "logging")

	// The original is untouched.
	assert.Equal(t, "very-secret-token", cfg.Credentials.SecurityToken)
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"logging": map[string]any{"level": "debug"},
		"regions": map[string]any{"eu-central-1": "host"},
		"workers": 2,
	})

	assert.Equal(t, map[string]any{
		"logging.level": "debug",
		"regions":       map[string]any{"eu-central-1": "host"},
		"workers":       2,
	}, got)
}
