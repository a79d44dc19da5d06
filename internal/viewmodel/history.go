package viewmodel

import (
	"sort"

	"github.com/strrl/split-specs-dashboard/pkg/models"
)

// SpecHistoryRecord is one completed session's run of a single file
type SpecHistoryRecord struct {
	SessionID         string
	SessionStart      int64
	SessionEnd        int64
	EstimatedDuration int64
	AssignedTo        string
	Start             int64
	End               int64
	Passed            bool
	// Share is the file's estimated duration as a percentage of the
	// session's wall time. Invalid when the session took zero seconds.
	Share Ratio
}

// SpecHistory cross-references file across every completed session of a
// project, most recently finished first.
func SpecHistory(sessions []models.Session, file string) []SpecHistoryRecord {
	records := make([]SpecHistoryRecord, 0)
	for _, session := range sessions {
		if session.Start <= 0 || session.End <= 0 {
			continue
		}
		spec, ok := findSpec(session.Backlog, file)
		if !ok {
			continue
		}
		records = append(records, SpecHistoryRecord{
			SessionID:         session.ID,
			SessionStart:      session.Start,
			SessionEnd:        session.End,
			EstimatedDuration: spec.EstimatedDuration,
			AssignedTo:        spec.AssignedTo,
			Start:             spec.Start,
			End:               spec.End,
			Passed:            spec.Passed,
			Share:             Percent(float64(spec.EstimatedDuration), float64(session.End-session.Start)),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SessionEnd != records[j].SessionEnd {
			return records[i].SessionEnd > records[j].SessionEnd
		}
		return records[i].SessionID < records[j].SessionID
	})
	return records
}

func findSpec(backlog []models.Spec, file string) (models.Spec, bool) {
	for _, spec := range backlog {
		if spec.File == file {
			return spec, true
		}
	}
	return models.Spec{}, false
}

// SpecFiles lists every distinct file seen in the sessions' backlogs, sorted
func SpecFiles(sessions []models.Session) []string {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	for _, session := range sessions {
		for _, spec := range session.Backlog {
			if _, ok := seen[spec.File]; ok {
				continue
			}
			seen[spec.File] = struct{}{}
			files = append(files, spec.File)
		}
	}
	sort.Strings(files)
	return files
}
