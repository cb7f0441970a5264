package cmd

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3route/internal/config"
	"github.com/3leaps/s3route/internal/observability"
	"github.com/3leaps/s3route/pkg/credentials"
	"github.com/3leaps/s3route/pkg/endpoint"
)

var doctorBuckets []string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the environment and suggest fixes for common issues.

Examples:
  s3route doctor                          # Environment and credential checks
  s3route doctor --bucket my.dotted.bucket  # Also resolve bucket endpoints`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringArrayVar(&doctorBuckets, "bucket", nil, "Resolve the endpoint of this bucket (repeatable)")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	identity := GetAppIdentity()
	bannerName := "doctor"
	if identity != nil && identity.BinaryName != "" {
		bannerName = identity.BinaryName + " doctor"
	}
	observability.CLILogger.Info("=== " + bannerName + " ===")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("Running diagnostic checks...")
	observability.CLILogger.Info("")

	allChecks := true
	checkNum := 1
	totalChecks := 4 + len(doctorBuckets)

	// Check 1: Go version
	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking Go version... ✅ %s", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
		allChecks = false
	}
	checkNum++

	// Check 2: Configuration
	cfg, err := currentConfig(ctx)
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking configuration... ❌ Invalid configuration", checkNum, totalChecks),
			zap.Error(err))
		return exitError(exitInvalidConfig, "Invalid configuration", err)
	}
	regions := endpoint.NewRegionTable(cfg.Regions)
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking configuration... ✅ %d regions known", checkNum, totalChecks, regions.Len()),
		zap.String("config_file", cfgFile),
		zap.Duration("metadata_timeout", cfg.Metadata.Timeout),
		zap.Duration("lookup_timeout", cfg.Lookup.Timeout))
	checkNum++

	// Check 3: Environment
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s/%s", checkNum, totalChecks, runtime.GOOS, runtime.GOARCH),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))
	checkNum++

	// Check 4: Credentials
	cred, ok := runCredentialCheck(ctx, cfg, checkNum, totalChecks)
	allChecks = allChecks && ok
	checkNum++

	// Bucket checks
	if len(doctorBuckets) > 0 {
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Bucket Checks:")
		resolver := endpoint.NewResolver(
			endpoint.WithRegionHosts(cfg.Regions),
			endpoint.WithLogger(observability.CLILogger),
		)
		for _, bucket := range doctorBuckets {
			allChecks = runBucketCheck(ctx, cfg, resolver, cred, ok, bucket, checkNum, totalChecks) && allChecks
			checkNum++
		}
	}

	observability.CLILogger.Info("")
	if allChecks {
		observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s setup is healthy.", bannerName))
	} else {
		observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	observability.CLILogger.Info("")
	observability.CLILogger.Info("=== End Diagnostics ===")

	if !allChecks {
		return exitError(foundry.ExitInvalidArgument, "Diagnostic checks failed", fmt.Errorf("see output above"))
	}
	return nil
}

// runCredentialCheck resolves credentials and reports each field's source.
func runCredentialCheck(ctx context.Context, cfg *config.Config, checkNum, totalChecks int) (credentials.Credential, bool) {
	cred, err := newCredentialResolver(cfg).Resolve(ctx, cfg.Credentials.AccessKeyID, cfg.Credentials.SecurityToken)
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot resolve credentials", checkNum, totalChecks),
			zap.Error(err))
		printAWSCredentialsHelp()
		return credentials.Credential{}, false
	}

	if err := credentials.RequireComplete(cred); err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Credentials are incomplete", checkNum, totalChecks))
		logIncomplete(err)
		printAWSCredentialsHelp()
		return cred, false
	}

	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking AWS credentials... ✅ Found credentials", checkNum, totalChecks),
		zap.String("access_key", maskAccessKey(cred.Key.Value)),
		zap.String("key_source", cred.Key.Source.String()),
		zap.String("secret_source", cred.Secret.Source.String()),
		zap.Bool("token", cred.Token.IsSet()))
	return cred, true
}

// runBucketCheck resolves one bucket's endpoint.
func runBucketCheck(ctx context.Context, cfg *config.Config, resolver *endpoint.Resolver, cred credentials.Credential, credOK bool, bucket string, checkNum, totalChecks int) bool {
	label := fmt.Sprintf("[%d/%d] Resolving %s...", checkNum, totalChecks, bucket)

	info := resolver.Resolve(bucket)
	if info.NeedsResolution() {
		if !credOK {
			observability.CLILogger.Error(label+" ❌ Region lookup needs complete credentials",
				zap.String("bucket", bucket))
			return false
		}

		var err error
		info, err = completeWithCredential(ctx, cfg, resolver, info, cred)
		if err != nil {
			observability.CLILogger.Error(label+" ❌ Region lookup failed",
				zap.String("bucket", bucket),
				zap.Error(err))
			return false
		}
	}

	fields := []zap.Field{
		zap.String("bucket", bucket),
		zap.String("format", info.Format.String()),
		zap.String("host", info.Host()),
	}
	if info.State == endpoint.StateLegacy {
		observability.CLILogger.Warn(label+" ⚠️  legacy region "+info.Host(), fields...)
		return true
	}
	observability.CLILogger.Info(label+" ✅ "+info.Host(), fields...)
	return true
}

func completeWithCredential(ctx context.Context, cfg *config.Config, resolver *endpoint.Resolver, info endpoint.CallingInfo, cred credentials.Credential) (endpoint.CallingInfo, error) {
	looker, err := newRegionLooker(ctx, cfg, cfg.Lookup.Endpoint, cred)
	if err != nil {
		return info, err
	}
	return resolver.Complete(ctx, info, looker)
}

// printAWSCredentialsHelp prints help for configuring AWS credentials.
func printAWSCredentialsHelp() {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To configure AWS credentials:")
	observability.CLILogger.Info("  1. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY (and AWS_SECURITY_TOKEN for temporary credentials), or")
	observability.CLILogger.Info("  2. Pass --access-key-id and --security-token, with the secret in AWS_SECRET_ACCESS_KEY, or")
	observability.CLILogger.Info("  3. Pass --access-key-id " + credentials.InstanceProfilePlaceholder + " on EC2 to use the instance role")
	observability.CLILogger.Info("")
}
