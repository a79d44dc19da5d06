package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strrl/split-specs-dashboard/internal/format"
	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
)

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "show [project] [session-id]",
		Short: "Show projects, sessions, or a session's specs without TUI",
		Long: `Show projects, sessions, or specs in a non-interactive format.
Without arguments: lists all projects
With project name: lists one page of that project's sessions
With project name and session ID: shows the session and its backlog`,
		Args: cobra.MaximumNArgs(2),
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			out := cmd.OutOrStdout()
			switch len(args) {
			case 0:
				return showProjects(cmd, a, out)
			case 1:
				return showSessions(cmd, a, out, args[0], page)
			default:
				return showSession(cmd, a, out, args[1])
			}
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page of sessions to show (1-based)")
	return cmd
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func showProjects(cmd *cobra.Command, a *app, out io.Writer) error {
	projects, err := a.svc.FetchProjects(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found")
		return nil
	}

	fmt.Fprintln(out, "Projects:")
	fmt.Fprintln(out, "=========")
	for i, project := range projects {
		fmt.Fprintf(out, "%d. %s\n", i+1, project)
	}
	return nil
}

func showSessions(cmd *cobra.Command, a *app, out io.Writer, projectName string, page int) error {
	if page < 1 {
		return fmt.Errorf("--page must be at least 1, got %d", page)
	}
	pager := viewmodel.Pager{PageSize: a.svc.PageSize(), Page: page - 1}
	result, err := a.svc.FetchProjectPage(cmd.Context(), projectName, pager)
	if err != nil {
		return fmt.Errorf("failed to fetch sessions: %w", err)
	}

	if len(result.Sessions) == 0 {
		fmt.Fprintf(out, "No sessions found for project '%s'\n", projectName)
		return nil
	}

	fmt.Fprintf(out, "Sessions for project '%s' (page %d of %d, %s):\n",
		projectName, result.Pager.Page+1, result.Pager.PageCount(), format.Count("session", result.Pager.Total))

	w := newTable(out)
	fmt.Fprintln(w, "ID\tSTART\tEND\tDURATION\tSAVED\tMACHINES\tSPECS")
	for _, sum := range result.Summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			sum.ID,
			format.Timestamp(sum.Start),
			format.Timestamp(sum.End),
			orPlaceholder(sum.DurationLabel),
			orPlaceholder(sum.SavedLabel),
			sum.MachineCount,
			sum.SpecCount)
	}
	return w.Flush()
}

func showSession(cmd *cobra.Command, a *app, out io.Writer, sessionID string) error {
	session, err := a.svc.FetchSession(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to fetch session: %w", err)
	}
	sum := viewmodel.SummarizeSession(*session)

	fmt.Fprintf(out, "Session %s\n", sum.ID)
	fmt.Fprintf(out, "Start: %s  End: %s  Duration: %s\n",
		format.Timestamp(sum.Start), format.Timestamp(sum.End), orPlaceholder(sum.DurationLabel))
	fmt.Fprintf(out, "Expected serial: %s  Saved: %s  Speed-up: %s  Avg spec: %s\n",
		format.Duration(sum.ExpectedSerialDuration), orPlaceholder(sum.SavedLabel),
		sum.SpeedUp, sum.AverageSpecDuration)
	for _, ms := range viewmodel.MachineStats(*session) {
		fmt.Fprintf(out, "  %s: %s, %s\n", ms.Machine, format.Count("spec", ms.Specs), format.Duration(ms.Duration))
	}
	fmt.Fprintln(out)

	w := newTable(out)
	fmt.Fprintln(w, "FILE\tESTIMATE\tSTART\tEND\tMACHINE\tSTATUS")
	for _, row := range viewmodel.SpecRows(session.Backlog) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.File, row.Estimated, row.Start, row.End, row.Machine, orPlaceholder(row.Status.Label))
	}
	return w.Flush()
}

func orPlaceholder(s string) string {
	if s == "" {
		return format.Placeholder
	}
	return s
}
