package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// PasswordEnv is read when --password is not given
const PasswordEnv = "SPLIT_SPECS_PASSWORD"

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Account email")
	cmd.Flags().StringVar(&f.password, "password", "", "Account password (or "+PasswordEnv+")")
	_ = cmd.MarkFlagRequired("email")
}

func (f *credentialFlags) resolve() (string, string) {
	password := f.password
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	return f.email, password
}

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			email, password := flags.resolve()
			if err := a.svc.SignIn(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("failed to sign in: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", email)
			return nil
		}),
	}
	flags.bind(cmd)
	return cmd
}

// NewRegisterCommand creates the register command
func NewRegisterCommand() *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			email, password := flags.resolve()
			if err := a.svc.SignUp(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("failed to sign up: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created, signed in as %s\n", email)
			return nil
		}),
	}
	flags.bind(cmd)
	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.svc.SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("failed to sign out: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		}),
	}
}
