package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/s3route/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, the config file, S3ROUTE_*
environment variables and flags have been applied.

The security token is redacted and the access key ID is reported only as
set or unset.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := currentConfig(cmd.Context())
	if err != nil {
		return exitError(exitInvalidConfig, "Invalid configuration", err)
	}

	out, err := config.YAML(cfg)
	if err != nil {
		return exitError(exitFailure, "Failed to render configuration", err)
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return exitError(exitWriteFailure, "Failed to write output", err)
	}
	return nil
}
