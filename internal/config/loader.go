package config

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable s3route reads for its
// own configuration.
const EnvPrefix = "S3ROUTE"

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// EnvSpec maps a short environment variable to a configuration key.
type EnvSpec struct {
	Name string
	Key  string
}

// getEnvSpecs lists the short aliases accepted besides the automatic
// S3ROUTE_<SECTION>_<KEY> form.
func getEnvSpecs() []EnvSpec {
	return []EnvSpec{
		{Name: EnvPrefix + "_LOG_LEVEL", Key: "logging.level"},
		{Name: EnvPrefix + "_LOG_FORMAT", Key: "logging.format"},
		{Name: EnvPrefix + "_METADATA_TIMEOUT", Key: "metadata.timeout"},
		{Name: EnvPrefix + "_METADATA_ENDPOINT", Key: "metadata.endpoint"},
		{Name: EnvPrefix + "_LOOKUP_TIMEOUT", Key: "lookup.timeout"},
		{Name: EnvPrefix + "_LOOKUP_RATE_LIMIT", Key: "lookup.rate_limit"},
		{Name: EnvPrefix + "_LOOKUP_ENDPOINT", Key: "lookup.endpoint"},
		{Name: EnvPrefix + "_WORKERS", Key: "workers"},
	}
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("metadata.timeout", DefaultMetadataTimeout.String())
	v.SetDefault("metadata.endpoint", "")
	v.SetDefault("lookup.timeout", DefaultLookupTimeout.String())
	v.SetDefault("lookup.rate_limit", 0)
	v.SetDefault("lookup.endpoint", "")
	v.SetDefault("credentials.access_key_id", "")
	v.SetDefault("credentials.security_token", "")
	v.SetDefault("workers", DefaultWorkers)
}

// Load builds the configuration.
//
// Precedence, lowest first: defaults, the YAML file at configFile (if
// non-empty), environment variables, runtime overrides. The result is
// validated and becomes the value returned by GetConfig.
func Load(ctx context.Context, configFile string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Key, spec.Name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", spec.Name, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	for _, override := range overrides {
		for key, value := range flatten("", override) {
			v.Set(key, value)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc()))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the configuration from the last successful Load, or
// nil before the first one.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// YAML renders cfg with credentials redacted.
func YAML(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

// flatten turns nested maps into dotted keys so that overrides can be
// applied with Set and win over the environment.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		// The regions table is a leaf: its keys are data, not config paths.
		if nested, ok := val.(map[string]any); ok && key != "regions" {
			for fk, fv := range flatten(key, nested) {
				out[fk] = fv
			}
			continue
		}
		out[key] = val
	}
	return out
}
