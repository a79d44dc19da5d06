package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// expireLayout is the --expire date format
const expireLayout = "2006-01-02"

// NewApiKeyCommand creates the apikey command group
func NewApiKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apikey",
		Aliases: []string{"apikeys", "key"},
		Short:   "Manage API keys",
	}
	cmd.AddCommand(newApiKeyListCommand())
	cmd.AddCommand(newApiKeyCreateCommand())
	cmd.AddCommand(newApiKeyDeleteCommand())
	return cmd
}

func newApiKeyListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			keys, err := a.svc.FetchApiKeys(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch api keys: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No API keys")
				return nil
			}
			w := newTable(out)
			fmt.Fprintln(w, "ID\tNAME\tEXPIRES\t")
			for _, k := range keys {
				expired := ""
				if k.Expired {
					expired = "expired"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k.ID, k.Name, k.ExpireLabel, expired)
			}
			return w.Flush()
		}),
	}
}

func newApiKeyCreateCommand() *cobra.Command {
	var name, expire string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key; the secret is printed once",
		Args:  cobra.NoArgs,
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			var expireAt time.Time
			if expire != "" {
				t, err := time.ParseInLocation(expireLayout, expire, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --expire %q, want YYYY-MM-DD: %w", expire, err)
				}
				expireAt = t
			}
			key, err := a.svc.CreateApiKey(cmd.Context(), name, expireAt)
			if err != nil {
				return fmt.Errorf("failed to create api key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "Key name")
	cmd.Flags().StringVar(&expire, "expire", "", "Expiry date (YYYY-MM-DD), defaults to three months from now")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newApiKeyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.svc.DeleteApiKey(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete api key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key %s deleted\n", args[0])
			return nil
		}),
	}
}
