package viewmodel

import (
	"sort"

	"github.com/strrl/split-specs-dashboard/internal/format"
	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// SessionSummary is the aggregated view of one session
type SessionSummary struct {
	ID         string
	Start      int64
	End        int64
	IsStarted  bool
	IsFinished bool
	// IsCompleted is IsStarted && IsFinished
	IsCompleted bool

	SpecCount     int
	ExecutionTime int64 // only meaningful when IsCompleted

	Machines     []string
	MachineCount int
	MachineLabel string

	ExpectedSerialDuration int64
	// SavedDuration may be negative when parallel overhead exceeded the
	// serial estimate. It is never clamped.
	SavedDuration int64

	SpeedUp             Ratio
	AverageSpecDuration Ratio

	DurationLabel string
	SavedLabel    string
}

// SummarizeSession computes the session aggregate
func SummarizeSession(session models.Session) SessionSummary {
	s := SessionSummary{
		ID:         session.ID,
		Start:      session.Start,
		End:        session.End,
		IsStarted:  session.Start > 0,
		IsFinished: session.End > 0,
		SpecCount:  len(session.Backlog),
	}
	s.IsCompleted = s.IsStarted && s.IsFinished
	s.ExecutionTime = session.End - session.Start

	s.Machines = Machines(session.Backlog)
	s.MachineCount = len(s.Machines)
	s.MachineLabel = format.Count("machine", s.MachineCount)

	s.ExpectedSerialDuration = ExpectedSerialDuration(session.Backlog)
	s.SavedDuration = s.ExpectedSerialDuration - s.ExecutionTime
	s.AverageSpecDuration = Divide(float64(s.ExpectedSerialDuration), float64(s.SpecCount))

	switch {
	case s.IsCompleted:
		s.DurationLabel = format.Duration(s.ExecutionTime)
		s.SavedLabel = format.Duration(s.SavedDuration)
		s.SpeedUp = Divide(float64(s.ExpectedSerialDuration), float64(s.ExecutionTime))
	case s.IsStarted:
		s.DurationLabel = "not finished"
	default:
		s.DurationLabel = "not started"
	}

	return s
}

// Machines returns the sorted distinct non-empty machine ids of a backlog
func Machines(backlog []models.Spec) []string {
	seen := make(map[string]struct{})
	machines := make([]string, 0)
	for _, spec := range backlog {
		if spec.AssignedTo == "" {
			continue
		}
		if _, ok := seen[spec.AssignedTo]; ok {
			continue
		}
		seen[spec.AssignedTo] = struct{}{}
		machines = append(machines, spec.AssignedTo)
	}
	sort.Strings(machines)
	return machines
}

// ExpectedSerialDuration sums the estimated durations of a backlog
func ExpectedSerialDuration(backlog []models.Spec) int64 {
	var total int64
	for _, spec := range backlog {
		total += spec.EstimatedDuration
	}
	return total
}

// MachineStat is the estimated work done by one machine
type MachineStat struct {
	Machine  string
	Specs    int
	Duration int64
}

// MachineStats groups a session backlog by machine, sorted by machine name.
// Unassigned specs are left out.
func MachineStats(session models.Session) []MachineStat {
	byMachine := make(map[string]*MachineStat)
	for _, spec := range session.Backlog {
		if spec.AssignedTo == "" {
			continue
		}
		stat, ok := byMachine[spec.AssignedTo]
		if !ok {
			stat = &MachineStat{Machine: spec.AssignedTo}
			byMachine[spec.AssignedTo] = stat
		}
		stat.Specs++
		stat.Duration += spec.EstimatedDuration
	}

	stats := make([]MachineStat, 0, len(byMachine))
	for _, stat := range byMachine {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Machine < stats[j].Machine
	})
	return stats
}

// OrderSpecs returns a copy of backlog sorted by estimated duration, longest first
func OrderSpecs(backlog []models.Spec) []models.Spec {
	ordered := make([]models.Spec, len(backlog))
	copy(ordered, backlog)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].EstimatedDuration != ordered[j].EstimatedDuration {
			return ordered[i].EstimatedDuration > ordered[j].EstimatedDuration
		}
		return ordered[i].File < ordered[j].File
	})
	return ordered
}

// SpecRow is a display row for one backlog entry
type SpecRow struct {
	File      string
	Estimated string
	Start     string
	End       string
	Machine   string
	Status    SpecStatus
}

// SpecRows renders a backlog, longest spec first
func SpecRows(backlog []models.Spec) []SpecRow {
	ordered := OrderSpecs(backlog)
	rows := make([]SpecRow, 0, len(ordered))
	for _, spec := range ordered {
		machine := spec.AssignedTo
		if machine == "" {
			machine = "none"
		}
		rows = append(rows, SpecRow{
			File:      spec.File,
			Estimated: format.Duration(spec.EstimatedDuration),
			Start:     format.Timestamp(spec.Start),
			End:       format.Timestamp(spec.End),
			Machine:   machine,
			Status:    ClassifySpec(spec),
		})
	}
	return rows
}

// SortSessions returns a copy of sessions ordered by start, most recent
// first. Ties fall back to end (descending) and then id.
func SortSessions(sessions []models.Session) []models.Session {
	ordered := make([]models.Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Start != b.Start {
			return a.Start > b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return a.ID < b.ID
	})
	return ordered
}

// SummarizeSessions orders sessions and summarizes each of them
func SummarizeSessions(sessions []models.Session) []SessionSummary {
	ordered := SortSessions(sessions)
	summaries := make([]SessionSummary, 0, len(ordered))
	for _, session := range ordered {
		summaries = append(summaries, SummarizeSession(session))
	}
	return summaries
}
