package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3route/internal/config"
	"github.com/3leaps/s3route/internal/observability"
	"github.com/3leaps/s3route/pkg/credentials"
	"github.com/3leaps/s3route/pkg/output"
	"github.com/3leaps/s3route/pkg/provider"
	"github.com/3leaps/s3route/pkg/provider/s3"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Resolve AWS credentials and report where each part came from (JSONL)",
	Long: `Resolve the access key, secret key and security token.

Sources, lowest precedence first:
  - AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SECURITY_TOKEN
  - --access-key-id and --security-token (or the credentials config keys)
  - the EC2 instance profile, when the access key is "instance-profile"

Values are never printed. The access key is shown masked.

Examples:
  s3route credentials
  s3route credentials --access-key-id instance-profile
  s3route credentials --text`,
	Args: cobra.NoArgs,
	RunE: runCredentials,
}

var credentialsText bool

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.Flags().BoolVar(&credentialsText, "text", false, "Print a one-line summary instead of JSONL")
}

func runCredentials(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := currentConfig(ctx)
	if err != nil {
		return exitError(exitInvalidConfig, "Invalid configuration", err)
	}

	jobID := uuid.New().String()
	w := output.NewJSONLWriter(cmd.OutOrStdout(), jobID, string(provider.ProviderS3))
	defer func() { _ = w.Close() }()

	cred, err := newCredentialResolver(cfg).Resolve(ctx, cfg.Credentials.AccessKeyID, cfg.Credentials.SecurityToken)
	if err != nil {
		observability.CLILogger.Error("Failed to resolve credentials", zap.Error(err))
		if !credentialsText {
			_ = w.WriteError(ctx, errorRecord("", "failed to resolve credentials", err))
		}
		return exitError(classify(err).ExitCode, "Failed to resolve credentials", err)
	}

	if credentialsText {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cred.String())
	} else if err := w.WriteCredentials(ctx, credentialsRecord(cred)); err != nil {
		return exitError(exitWriteFailure, "Failed to write output", err)
	}

	if err := credentials.RequireComplete(cred); err != nil {
		logIncomplete(err)
		if !credentialsText {
			_ = w.WriteError(ctx, errorRecord("", "credentials are not usable", err))
		}
		return exitError(classify(err).ExitCode, "Credentials are not usable", err)
	}
	return nil
}

// newCredentialResolver wires the resolver to the instance metadata service.
func newCredentialResolver(cfg *config.Config) *credentials.Resolver {
	fetcher := s3.NewMetadataClient(s3.NewIMDSClient(cfg.Metadata.Endpoint), cfg.Metadata.Timeout)
	return credentials.NewResolver(
		credentials.WithMetadataFetcher(fetcher),
		credentials.WithLogger(observability.CLILogger),
	)
}

// credentialsRecord describes cred without its values.
func credentialsRecord(cred credentials.Credential) *output.CredentialsRecord {
	rec := &output.CredentialsRecord{
		Key:             fieldRecord(cred.Key),
		Secret:          fieldRecord(cred.Secret),
		Token:           fieldRecord(cred.Token),
		Complete:        cred.IsComplete(),
		InstanceProfile: cred.Key.Source.IsInstanceProfile(),
	}
	if cred.Key.IsSet() {
		rec.Key.Masked = maskAccessKey(cred.Key.Value)
	}
	return rec
}

func fieldRecord(f credentials.Field) output.FieldRecord {
	rec := output.FieldRecord{Name: f.Name, Set: f.IsSet()}
	if f.IsSet() {
		rec.Source = f.Source.String()
	}
	return rec
}

// logIncomplete writes the per-field breakdown and hint at warn level.
func logIncomplete(err error) {
	var incomplete *credentials.IncompleteCredentialsError
	if errors.As(err, &incomplete) {
		observability.CLILogger.Warn(incomplete.Message,
			zap.Strings("status", incomplete.Status),
			zap.String("hint", incomplete.Hint))
		return
	}
	observability.CLILogger.Error("Credentials are not usable", zap.Error(err))
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
