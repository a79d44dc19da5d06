// Package stats aggregates spec runs across a project's completed sessions
// in DuckDB.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// FileStats is the aggregate of one spec file over all completed runs.
// Durations are measured from the run's start and end, not the estimate.
type FileStats struct {
	File        string
	Runs        int
	AvgDuration float64
	MaxDuration int64
	MinDuration int64
	Passed      int
	Failed      int
	Machines    int
	LastSeen    int64 // latest session end
}

// Summary covers a whole project.
type Summary struct {
	Sessions int
	Runs     int
	Passed   int
	Failed   int
	PassRate viewmodel.Ratio
}

// Analyzer loads project snapshots into DuckDB and queries them.
type Analyzer struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewAnalyzer creates an analyzer on a database opened with db.Open.
func NewAnalyzer(database *sql.DB, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		db:     database,
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

// Load replaces the stored runs of project with the finished spec runs of
// its completed sessions.
func (a *Analyzer) Load(ctx context.Context, project models.Project) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM spec_runs WHERE project = ?`, project.ProjectName); err != nil {
		return fmt.Errorf("failed to clear runs of %q: %w", project.ProjectName, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spec_runs (project, session_id, session_start, session_end, file,
			estimated_duration, assigned_to, start, "end", passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for _, session := range project.Sessions {
		if session.Start <= 0 || session.End <= 0 {
			continue
		}
		for _, spec := range session.Backlog {
			if spec.Start <= 0 || spec.End <= 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				project.ProjectName, session.ID, session.Start, session.End, spec.File,
				spec.EstimatedDuration, spec.AssignedTo, spec.Start, spec.End, spec.Passed,
			); err != nil {
				return fmt.Errorf("failed to insert run of %q: %w", spec.File, err)
			}
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit runs: %w", err)
	}
	a.logger.Debug().Str("project", project.ProjectName).Int("runs", rows).Msg("project loaded")
	return nil
}

const fileStatsQuery = `
SELECT
	file,
	COUNT(*)                                  AS runs,
	ROUND(AVG("end" - start), 2)              AS avg_duration,
	MAX("end" - start)                        AS max_duration,
	MIN("end" - start)                        AS min_duration,
	COUNT(*) FILTER (WHERE passed)            AS passed,
	COUNT(*) FILTER (WHERE NOT passed)        AS failed,
	COUNT(DISTINCT NULLIF(assigned_to, ''))   AS machines,
	MAX(session_end)                          AS last_seen
FROM spec_runs
WHERE project = ?
GROUP BY file
ORDER BY avg_duration DESC, file`

// FileStats returns one row per file of a loaded project, slowest first.
func (a *Analyzer) FileStats(ctx context.Context, projectName string) ([]FileStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.QueryContext(ctx, fileStatsQuery, projectName)
	if err != nil {
		return nil, fmt.Errorf("failed to query file stats: %w", err)
	}
	defer rows.Close()

	var out []FileStats
	for rows.Next() {
		var s FileStats
		if err := rows.Scan(&s.File, &s.Runs, &s.AvgDuration, &s.MaxDuration, &s.MinDuration,
			&s.Passed, &s.Failed, &s.Machines, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan file stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Summary returns project-wide totals of a loaded project.
func (a *Analyzer) Summary(ctx context.Context, projectName string) (Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var s Summary
	err := a.db.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT session_id),
			COUNT(*),
			COUNT(*) FILTER (WHERE passed),
			COUNT(*) FILTER (WHERE NOT passed)
		FROM spec_runs
		WHERE project = ?`, projectName).Scan(&s.Sessions, &s.Runs, &s.Passed, &s.Failed)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to query summary: %w", err)
	}
	s.PassRate = viewmodel.Percent(float64(s.Passed), float64(s.Runs))
	return s, nil
}

// Analyze loads project and returns its file stats and summary.
func (a *Analyzer) Analyze(ctx context.Context, project models.Project) ([]FileStats, Summary, error) {
	if err := a.Load(ctx, project); err != nil {
		return nil, Summary{}, err
	}
	files, err := a.FileStats(ctx, project.ProjectName)
	if err != nil {
		return nil, Summary{}, err
	}
	summary, err := a.Summary(ctx, project.ProjectName)
	if err != nil {
		return nil, Summary{}, err
	}
	return files, summary, nil
}
