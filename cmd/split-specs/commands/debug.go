package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
)

// NewDebugCommand creates the debug-session command
func NewDebugCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "debug-session <session-id>",
		Short: "Debug a specific session to see raw data",
		Args:  cobra.ExactArgs(1),
		RunE:  withLogin(runDebugSession),
	}
}

func runDebugSession(cmd *cobra.Command, args []string, a *app) error {
	sessionID := args[0]
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Debugging session: %s\n", sessionID)
	fmt.Fprintf(out, "Endpoint: %s\n", a.cfg.Endpoint)
	fmt.Fprintln(out, "==========================================")

	session, err := a.svc.FetchSession(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to debug session: %w", err)
	}

	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	fmt.Fprintf(out, "%s\n", raw)

	if len(session.Backlog) == 0 {
		fmt.Fprintln(out, "No specs found for this session")
		return nil
	}
	fmt.Fprintf(out, "\nFound %d specs:\n", len(session.Backlog))
	for i, spec := range session.Backlog {
		label := viewmodel.ClassifySpec(spec).Label
		if label == "" {
			label = "pending"
		}
		fmt.Fprintf(out, "--- Spec %d --- %s [%s] assigned=%q start=%d end=%d\n",
			i+1, spec.File, label, spec.AssignedTo, spec.Start, spec.End)
	}
	return nil
}
