// Package report provides structured persistence and retrieval of parity
// run results. Results are stored as typed structs and can be queried by
// scenario name or status.
package report

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Suite is a run over a scenario table.
	Suite Kind = "suite"
	// Compare is a one-off comparison of two commands.
	Compare Kind = "compare"
)

// Status is the outcome of one scenario.
type Status string

const (
	StatusPass        Status = "pass"
	StatusMismatch    Status = "mismatch"
	StatusTimeout     Status = "timeout"
	StatusSpawnFailed Status = "spawn_failed"
	StatusError       Status = "error" // precondition or harness error; nothing was compared
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the structured output of a suite or compare run.
type RunResult struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Reference string           `json:"reference"` // reference interpreter or command line
	Candidate string           `json:"candidate"` // candidate interpreter or command line
	Scenarios []ScenarioReport `json:"scenarios"`
}

// ScenarioReport holds the outcome of one scenario.
type ScenarioReport struct {
	Name       string      `json:"name"`
	Script     string      `json:"script,omitempty"`
	Kind       string      `json:"kind,omitempty"` // script or missing
	Fields     []string    `json:"fields"`
	Status     Status      `json:"status"`
	Side       string      `json:"side,omitempty"` // which command timed out or failed to start
	Error      string      `json:"error,omitempty"`
	Mismatches []FieldDiff `json:"mismatches,omitempty"`

	ReferenceRunID string `json:"reference_run_id,omitempty"`
	CandidateRunID string `json:"candidate_run_id,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// Failed reports whether the scenario did not pass.
func (s *ScenarioReport) Failed() bool {
	return s.Status != StatusPass
}

// FieldDiff holds both observed values of one diverging field.
type FieldDiff struct {
	Field     string `json:"field"`
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
	Diff      string `json:"diff,omitempty"` // line diff for stdout and stderr
}

// Expect returns an error if the run's Kind does not match want.
func (r *RunResult) Expect(want Kind) error {
	if r.Kind != want {
		return fmt.Errorf("run %s is a %s run, not a %s run", r.ID, r.Kind, want)
	}
	return nil
}

// Counts returns the number of scenarios per status.
func (r *RunResult) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, s := range r.Scenarios {
		counts[s.Status]++
	}
	return counts
}

// Passed reports whether every scenario passed.
func (r *RunResult) Passed() bool {
	for i := range r.Scenarios {
		if r.Scenarios[i].Failed() {
			return false
		}
	}
	return true
}

// Summary renders the counts as "8 scenarios: 6 pass, 1 mismatch, 1 timeout".
func (r *RunResult) Summary() string {
	counts := r.Counts()
	var parts []string
	for _, st := range []Status{StatusPass, StatusMismatch, StatusTimeout, StatusSpawnFailed, StatusError} {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	noun := "scenarios"
	if len(r.Scenarios) == 1 {
		noun = "scenario"
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d %s", len(r.Scenarios), noun)
	}
	return fmt.Sprintf("%d %s: %s", len(r.Scenarios), noun, strings.Join(parts, ", "))
}

// ByName returns the scenario with the given name.
func ByName(result *RunResult, name string) (*ScenarioReport, bool) {
	for i := range result.Scenarios {
		if result.Scenarios[i].Name == name {
			return &result.Scenarios[i], true
		}
	}
	return nil, false
}

// ByStatus returns the scenarios with the given status, in run order.
func ByStatus(result *RunResult, status Status) []ScenarioReport {
	var out []ScenarioReport
	for _, s := range result.Scenarios {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// Failures returns every scenario that did not pass, in run order.
func Failures(result *RunResult) []ScenarioReport {
	var out []ScenarioReport
	for _, s := range result.Scenarios {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}
