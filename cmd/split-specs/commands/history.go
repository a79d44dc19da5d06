package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/split-specs-dashboard/internal/format"
	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <project> <file>",
		Short: "Show how one spec file ran across completed sessions",
		Args:  cobra.ExactArgs(2),
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			project, file := args[0], args[1]
			records, err := a.svc.FetchSpecHistory(cmd.Context(), project, file)
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No completed session of '%s' ran %s\n", project, file)
				return nil
			}

			fmt.Fprintf(out, "History of %s in '%s' (%s):\n", file, project, format.Count("run", len(records)))
			w := newTable(out)
			fmt.Fprintln(w, "SESSION\tSESSION START\tSESSION END\tESTIMATE\tMACHINE\tSHARE %\tRESULT")
			for _, r := range records {
				status := viewmodel.ClassifySpec(models.Spec{AssignedTo: r.AssignedTo, Start: r.Start, End: r.End, Passed: r.Passed})
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.SessionID,
					format.Timestamp(r.SessionStart),
					format.Timestamp(r.SessionEnd),
					format.Duration(r.EstimatedDuration),
					orPlaceholder(r.AssignedTo),
					r.Share,
					orPlaceholder(status.Label))
			}
			return w.Flush()
		}),
	}
}

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <project>",
		Short: "Aggregate spec durations and results over a project's completed sessions",
		Args:  cobra.ExactArgs(1),
		RunE: withLogin(func(cmd *cobra.Command, args []string, a *app) error {
			analyzer, err := a.analyzer()
			if err != nil {
				return fmt.Errorf("failed to open stats database: %w", err)
			}
			project, err := a.svc.FetchProject(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch project: %w", err)
			}
			files, summary, err := analyzer.Analyze(cmd.Context(), *project)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s, %s, pass rate %s\n", project.ProjectName,
				format.Count("completed session", summary.Sessions), format.Count("run", summary.Runs), summary.PassRate.PercentLabel())
			if len(files) == 0 {
				fmt.Fprintln(out, "No completed runs yet")
				return nil
			}

			w := newTable(out)
			fmt.Fprintln(w, "FILE\tRUNS\tAVG\tMIN\tMAX\tPASSED\tFAILED\tMACHINES\tLAST SEEN")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					f.File, f.Runs,
					format.Duration(int64(f.AvgDuration)),
					format.Duration(f.MinDuration),
					format.Duration(f.MaxDuration),
					f.Passed, f.Failed, f.Machines,
					format.Timestamp(f.LastSeen))
			}
			return w.Flush()
		}),
	}
}
