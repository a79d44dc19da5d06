package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/split-specs-dashboard/internal/api"
	"github.com/strrl/split-specs-dashboard/internal/sessions"
)

// NewSessionCommand creates the session command group
func NewSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, drive and delete sessions",
	}
	cmd.AddCommand(newSessionCreateCommand())
	cmd.AddCommand(newSessionNextCommand())
	cmd.AddCommand(newSessionDeleteCommand())
	return cmd
}

func newSessionCreateCommand() *cobra.Command {
	var project, files string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session from a comma separated list of spec files",
		Args:  cobra.NoArgs,
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			info, err := a.svc.CreateSession(cmd.Context(), project, sessions.ParseSpecFiles(files))
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s created in project '%s'\n", info.SessionID, info.ProjectName)
			return nil
		}),
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().StringVar(&files, "files", "", "Spec files, comma separated")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("files")
	return cmd
}

func newSessionNextCommand() *cobra.Command {
	var machine string
	cmd := &cobra.Command{
		Use:   "next <session-id>",
		Short: "Ask for the next spec to run on a machine",
		Args:  cobra.ExactArgs(1),
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			result, err := a.svc.RequestNextSpec(cmd.Context(), args[0], machine)
			if err != nil {
				return fmt.Errorf("failed to request next spec: %w", err)
			}
			if result.Finished {
				fmt.Fprintln(cmd.OutOrStdout(), "session finished")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.File)
			return nil
		}),
	}
	cmd.Flags().StringVar(&machine, "machine", api.DefaultMachineID, "Machine id reported to the service")
	return cmd
}

func newSessionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.svc.DeleteSession(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", args[0])
			return nil
		}),
	}
}

// NewProjectCommand creates the project command group
func NewProjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a project and all of its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.svc.DeleteProject(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete project: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project '%s' deleted\n", args[0])
			return nil
		}),
	})
	return cmd
}
