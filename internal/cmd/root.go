// Package cmd implements the s3route command line.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3route/internal/config"
	"github.com/3leaps/s3route/internal/observability"
)

// AppIdentity names the binary and its configuration.
type AppIdentity struct {
	BinaryName string
	ConfigName string
	EnvPrefix  string
}

var (
	versionInfo = struct {
		Version   string
		Commit    string
		BuildDate string
	}{
		Version:   "dev",
		Commit:    "HEAD",
		BuildDate: "unknown",
	}

	appIdentity *AppIdentity

	// appConfig is loaded before any subcommand runs.
	appConfig *config.Config
)

var (
	cfgFile       string
	verbose       bool
	logLevel      string
	logFormat     string
	accessKeyID   string
	securityToken string
)

var rootCmd = &cobra.Command{
	Use:   "s3route",
	Short: "Resolve S3 credentials and bucket endpoints",
	Long: `s3route works out how to reach an S3 bucket.

It resolves AWS credentials from the environment, the command line and the
EC2 instance profile, and decides per bucket whether requests go
virtual-hosted or path-style to a regional endpoint.

Records are written to stdout as JSONL; logs go to stderr.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (YAML)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console, json")
	pf.StringVar(&accessKeyID, "access-key-id", "", `AWS access key ID, or "instance-profile" to read the instance role`)
	pf.StringVar(&securityToken, "security-token", "", "AWS security token")
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the identity set by initRuntime, or nil before it.
func GetAppIdentity() *AppIdentity {
	return appIdentity
}

// initRuntime loads configuration and the logger.
func initRuntime(cmd *cobra.Command, _ []string) error {
	appIdentity = &AppIdentity{
		BinaryName: "s3route",
		ConfigName: "s3route",
		EnvPrefix:  config.EnvPrefix,
	}

	cfg, err := config.Load(cmd.Context(), cfgFile, flagOverrides(cmd))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	appConfig = cfg

	if err := observability.ConfigureCLILogger(appIdentity.BinaryName, observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("config_file", cfgFile),
		zap.Duration("metadata_timeout", cfg.Metadata.Timeout),
		zap.Duration("lookup_timeout", cfg.Lookup.Timeout),
		zap.Int("regions", len(cfg.Regions)))
	return nil
}

// flagOverrides maps explicitly set persistent flags to config keys.
// Unset flags are left out so they do not mask the environment.
func flagOverrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	logging := map[string]any{}
	creds := map[string]any{}

	if flags.Changed("log-level") {
		logging["level"] = logLevel
	}
	if flags.Changed("verbose") && verbose {
		logging["level"] = "debug"
	}
	if flags.Changed("log-format") {
		logging["format"] = logFormat
	}
	if flags.Changed("access-key-id") {
		creds["access_key_id"] = accessKeyID
	}
	if flags.Changed("security-token") {
		creds["security_token"] = securityToken
	}

	out := map[string]any{}
	if len(logging) > 0 {
		out["logging"] = logging
	}
	if len(creds) > 0 {
		out["credentials"] = creds
	}
	return out
}

// currentConfig returns the loaded config, loading defaults when a command
// runs without the root pre-run (tests).
func currentConfig(ctx context.Context) (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx, "")
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code for err: 0 for nil, the carried code for
// an ExitError, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
