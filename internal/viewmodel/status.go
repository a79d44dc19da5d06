// Package viewmodel derives display records from split-specs API snapshots.
//
// Every function here is a pure transformation of the snapshot it is given.
// Nothing is cached and inputs are never mutated.
package viewmodel

import "github.com/strrl/split-specs-dashboard/pkg/models"

// SpecState is the classified lifecycle state of a spec
type SpecState int

const (
	StatePending SpecState = iota
	StateRunning
	StatePassed
	StateFailed
)

// Tone is the semantic colour of a status label
type Tone int

const (
	ToneNeutral Tone = iota
	ToneWarning
	ToneSuccess
	ToneDanger
)

// SpecStatus is the label shown next to a spec
type SpecStatus struct {
	State SpecState
	Label string
	Tone  Tone
}

// ClassifySpec maps a spec's start/end/passed fields to exactly one status
func ClassifySpec(spec models.Spec) SpecStatus {
	switch {
	case spec.Start <= 0:
		return SpecStatus{State: StatePending, Label: "", Tone: ToneNeutral}
	case spec.End <= 0:
		return SpecStatus{State: StateRunning, Label: "running", Tone: ToneWarning}
	case spec.Passed:
		return SpecStatus{State: StatePassed, Label: "passed", Tone: ToneSuccess}
	default:
		return SpecStatus{State: StateFailed, Label: "failed", Tone: ToneDanger}
	}
}

// Finished reports whether the spec has an outcome
func (s SpecStatus) Finished() bool {
	return s.State == StatePassed || s.State == StateFailed
}
