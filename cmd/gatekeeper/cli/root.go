package cli

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

// Execute creates the root command tree and runs it.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatekeeper",
		Short: "API key, session and scan target gatekeeping service",
		Long: `gatekeeper authenticates dashboard sessions and API keys, enforces scopes
and per-plan rate limits, records API key usage and vets scan targets
against SSRF before they reach the scanner.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(envFile) == "" {
				return nil
			}
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file applied before reading configuration")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newTargetCmd())
	cmd.AddCommand(newUsageCmd())

	return cmd
}
