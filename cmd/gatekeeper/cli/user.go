package cli

import (
	"context"
	"fmt"

	authdomain "github.com/checkvibe/gatekeeper/internal/auth/domain"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard users",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserSetPlanCmd())

	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		plan     string
		domains  []string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a user that can sign in and own API keys",
		Example: `  gatekeeper user create --email ops@example.com --password 's3cret-pass' --plan pro`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var users authdomain.Service
			return withApp(func(ctx context.Context) error {
				user, err := users.CreateUser(ctx, authdomain.CreateUserRequest{
					Email:          email,
					Password:       password,
					Plan:           plan,
					AllowedDomains: domains,
				})
				if err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User created:\n\n")
				fmt.Fprintf(out, "  ID:    %s\n", user.ID)
				fmt.Fprintf(out, "  Email: %s\n", user.Email)
				fmt.Fprintf(out, "  Plan:  %s\n", user.Plan)
				return nil
			}, &users)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password, at least 8 characters (required)")
	cmd.Flags().StringVar(&plan, "plan", "", "Plan tier (defaults to none)")
	cmd.Flags().StringSliceVar(&domains, "allowed-domain", nil, "Domain the user may scan (repeatable)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newUserSetPlanCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "set-plan <plan>",
		Short: "Change a user's plan tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				users authdomain.Service
				repo  authdomain.Repository
			)
			return withApp(func(ctx context.Context) error {
				user, err := repo.FindByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("find user %q: %w", email, err)
				}
				if err := users.SetPlan(ctx, user.ID, args[0]); err != nil {
					return fmt.Errorf("set plan: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Plan for %s set to %s.\n", user.Email, args[0])
				return nil
			}, &users, &repo)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the user (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
