package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	apikeydomain "github.com/checkvibe/gatekeeper/internal/apikey/domain"
	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	authdomain "github.com/checkvibe/gatekeeper/internal/auth/domain"
	"github.com/spf13/cobra"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke the API keys a user authenticates with.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		email   string
		name    string
		scopes  []string
		domains []string
		ips     []string
		days    int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key for a user. The raw key is shown once and cannot be retrieved again.",
		Example: `  gatekeeper key create --email ops@example.com --name ci --scope scan:read --scope scan:write
  gatekeeper key create --email ops@example.com --allowed-ip 203.0.113.0/24 --expires-in-days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := apikeydomain.CreateRequest{
				Name:           name,
				Scopes:         scopes,
				AllowedDomains: domains,
				AllowedIPs:     ips,
			}
			if cmd.Flags().Changed("expires-in-days") {
				req.ExpiresInDays = &days
			}

			var (
				users  authdomain.Repository
				keys   apikeydomain.Service
				audits auditdomain.Service
			)
			return withApp(func(ctx context.Context) error {
				user, err := users.FindByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("find user %q: %w", email, err)
				}
				created, err := keys.Create(ctx, user.ID, req)
				if err != nil {
					return fmt.Errorf("create api key: %w", err)
				}
				recordCLIAudit(ctx, audits, auditdomain.Entry{
					UserID:     user.ID,
					Action:     auditdomain.ActionAPIKeyCreated,
					TargetType: auditdomain.TargetTypeAPIKey,
					TargetID:   created.ID,
					Metadata:   map[string]any{"name": created.Name, "key_prefix": created.KeyPrefix, "source": "cli"},
				})

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "API Key created:")
				fmt.Fprintln(out)
				fmt.Fprintf(out, "  Key:     %s\n", created.Key)
				fmt.Fprintf(out, "  ID:      %s\n", created.ID)
				fmt.Fprintf(out, "  Scopes:  %s\n", strings.Join(created.Scopes, ", "))
				if created.ExpiresAt != nil {
					fmt.Fprintf(out, "  Expires: %s\n", created.ExpiresAt.Format(time.RFC3339))
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "  Save this key now - it cannot be retrieved again.")
				return nil
			}, &users, &keys, &audits)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Owner's email (required)")
	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the key")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scope to grant (repeatable, default scan:read)")
	cmd.Flags().StringSliceVar(&domains, "allowed-domain", nil, "Restrict scan targets to this domain (repeatable)")
	cmd.Flags().StringSliceVar(&ips, "allowed-ip", nil, "Restrict callers to this IP or CIDR (repeatable)")
	cmd.Flags().IntVar(&days, "expires-in-days", apikeydomain.DefaultExpiryDays, "Days until the key expires (1-365)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		email      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a user's API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				users authdomain.Repository
				keys  apikeydomain.Service
			)
			return withApp(func(ctx context.Context) error {
				user, err := users.FindByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("find user %q: %w", email, err)
				}
				list, err := keys.List(ctx, user.ID)
				if err != nil {
					return fmt.Errorf("list api keys: %w", err)
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No API keys found.")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tPREFIX\tNAME\tSCOPES\tSTATUS\tLAST USED")
				for _, key := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						key.ID, key.KeyPrefix, key.Name,
						strings.Join(key.Scopes, ","),
						keyStatus(key, time.Now()),
						formatOptionalTime(key.LastUsedAt),
					)
				}
				return w.Flush()
			}, &users, &keys)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Owner's email (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				users  authdomain.Repository
				keys   apikeydomain.Service
				audits auditdomain.Service
			)
			return withApp(func(ctx context.Context) error {
				user, err := users.FindByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("find user %q: %w", email, err)
				}
				if err := keys.Revoke(ctx, user.ID, args[0]); err != nil {
					return fmt.Errorf("revoke api key %s: %w", args[0], err)
				}
				recordCLIAudit(ctx, audits, auditdomain.Entry{
					UserID:     user.ID,
					Action:     auditdomain.ActionAPIKeyRevoked,
					TargetType: auditdomain.TargetTypeAPIKey,
					TargetID:   args[0],
					Metadata:   map[string]any{"source": "cli"},
				})
				fmt.Fprintf(cmd.OutOrStdout(), "API key %s revoked.\n", args[0])
				return nil
			}, &users, &keys, &audits)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Owner's email (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func keyStatus(key apikeydomain.Response, now time.Time) string {
	switch {
	case key.RevokedAt != nil:
		return "revoked"
	case key.ExpiresAt != nil && !now.Before(*key.ExpiresAt):
		return "expired"
	default:
		return "active"
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}
