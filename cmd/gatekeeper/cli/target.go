package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/checkvibe/gatekeeper/internal/targeturl"
	"github.com/spf13/cobra"
)

func newTargetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Inspect scan targets",
	}
	cmd.AddCommand(newTargetCheckCmd())
	return cmd
}

func newTargetCheckCmd() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Check whether a URL is an acceptable scan target",
		Example: `  gatekeeper target check example.com
  gatekeeper target check --resolve https://app.example.com/login`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !resolve {
				target, err := targeturl.Validate(args[0])
				if err != nil {
					return fmt.Errorf("rejected: %w", err)
				}
				fmt.Fprintf(out, "OK %s\n", target)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			resolution, err := targeturl.NewResolver(nil).ResolveAndValidate(ctx, args[0])
			if err != nil {
				return fmt.Errorf("rejected: %w", err)
			}
			fmt.Fprintf(out, "OK %s\n", resolution.URL)
			for _, addr := range resolution.Addrs {
				fmt.Fprintf(out, "  %s\n", addr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "Also resolve the host and reject private addresses")
	return cmd
}
