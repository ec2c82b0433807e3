// Package suite drives a table of scenarios through the comparator and
// collects one outcome per scenario.
package suite

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/deixis/parity/internal/compare"
	"github.com/deixis/parity/internal/report"
	"github.com/deixis/parity/internal/runner"
	"github.com/deixis/parity/internal/scenario"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Driver runs scenarios with [Reference, script] and [Candidate, script].
type Driver struct {
	Reference  string        // trusted interpreter
	Candidate  string        // interpreter under test
	Dir        string        // fixture directory scripts are checked against
	Timeout    time.Duration // default per-run timeout; zero means the runner's
	Parallel   int           // scenarios in flight; <= 1 runs them in table order
	Comparator *compare.Comparator

	// Progress, if set, is called once per finished scenario. Calls are
	// serialised but arrive in completion order when Parallel > 1.
	Progress func(ScenarioResult)
}

// ScenarioResult is the outcome of one scenario. Exactly one of
// Comparison and Err is set.
type ScenarioResult struct {
	Scenario   scenario.Scenario
	Comparison *compare.Comparison
	Err        error
	Duration   time.Duration
}

// Status classifies the outcome.
func (r *ScenarioResult) Status() report.Status {
	switch {
	case r.Err == nil && r.Comparison != nil && r.Comparison.Passed():
		return report.StatusPass
	case r.Err == nil && r.Comparison != nil:
		return report.StatusMismatch
	case errors.Is(r.Err, runner.ErrTimedOut):
		return report.StatusTimeout
	case errors.Is(r.Err, runner.ErrSpawnFailed):
		return report.StatusSpawnFailed
	}
	return report.StatusError
}

// Passed reports whether every selected field matched.
func (r *ScenarioResult) Passed() bool {
	return r.Status() == report.StatusPass
}

// Result is the outcome of a whole suite run, in table order.
type Result struct {
	ID        string
	Reference string
	Candidate string
	Scenarios []ScenarioResult
}

// Passed reports whether every scenario passed.
func (r *Result) Passed() bool {
	for i := range r.Scenarios {
		if !r.Scenarios[i].Passed() {
			return false
		}
	}
	return true
}

// Run executes every scenario. A failing scenario never stops the others.
// Run itself only fails for an invalid table or when ctx is cancelled, in
// which case the scenarios finished so far are returned with the error.
func (d *Driver) Run(ctx context.Context, scenarios []scenario.Scenario) (*Result, error) {
	if err := scenario.Validate(scenarios); err != nil {
		return nil, err
	}
	if d.Comparator == nil {
		return nil, errors.New("suite: no comparator")
	}

	res := &Result{
		ID:        uuid.New().String(),
		Reference: d.Reference,
		Candidate: d.Candidate,
	}

	var (
		mu   sync.Mutex
		done = make([]bool, len(scenarios))
		out  = make([]ScenarioResult, len(scenarios))
	)
	finish := func(i int, sr ScenarioResult) {
		mu.Lock()
		defer mu.Unlock()
		out[i] = sr
		done[i] = true
		if d.Progress != nil {
			d.Progress(sr)
		}
	}

	if d.Parallel <= 1 {
		for i, s := range scenarios {
			if ctx.Err() != nil {
				break
			}
			finish(i, d.runOne(ctx, s))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(d.Parallel)
		for i, s := range scenarios {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				finish(i, d.runOne(ctx, s))
				return nil
			})
		}
		_ = g.Wait()
	}

	for i := range out {
		if done[i] {
			res.Scenarios = append(res.Scenarios, out[i])
		}
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("suite interrupted: %w", err)
	}
	return res, nil
}

func (d *Driver) runOne(ctx context.Context, s scenario.Scenario) ScenarioResult {
	start := time.Now()
	sr := ScenarioResult{Scenario: s}

	if err := s.Check(d.Dir); err != nil {
		sr.Err = err
		sr.Duration = time.Since(start)
		return sr
	}

	timeout := s.Timeout
	if timeout == 0 {
		timeout = d.Timeout
	}
	sr.Comparison, sr.Err = d.Comparator.Compare(ctx,
		s.Argv(d.Reference), s.Argv(d.Candidate), s.Fields,
		compare.Options{Input: s.Input, Timeout: timeout})
	sr.Duration = time.Since(start)
	return sr
}

// Report converts the result into its persisted form.
func (r *Result) Report() *report.RunResult {
	rr := &report.RunResult{
		ID:        r.ID,
		Kind:      report.Suite,
		Reference: r.Reference,
		Candidate: r.Candidate,
		Scenarios: make([]report.ScenarioReport, 0, len(r.Scenarios)),
	}
	for i := range r.Scenarios {
		rr.Scenarios = append(rr.Scenarios, r.Scenarios[i].Report())
	}
	return rr
}

// Report converts one scenario outcome into its persisted form.
func (r *ScenarioResult) Report() report.ScenarioReport {
	sr := report.ScenarioReport{
		Name:       r.Scenario.Name,
		Script:     r.Scenario.Script,
		Kind:       r.Scenario.Kind.String(),
		Fields:     r.Scenario.Fields.Names(),
		Status:     r.Status(),
		DurationMs: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		sr.Error = r.Err.Error()
		var runErr *compare.RunError
		if errors.As(r.Err, &runErr) {
			sr.Side = string(runErr.Side)
		}
	}
	if c := r.Comparison; c != nil {
		sr.ReferenceRunID = c.Reference.RunID
		sr.CandidateRunID = c.Candidate.RunID
		sr.Mismatches = FieldDiffs(c.Mismatches)
	}
	return sr
}

// FieldDiffs renders mismatches for reports.
func FieldDiffs(mismatches []compare.Mismatch) []report.FieldDiff {
	var out []report.FieldDiff
	for _, m := range mismatches {
		fd := report.FieldDiff{Field: m.Field.String()}
		switch ref := m.Reference.(type) {
		case int:
			fd.Reference = strconv.Itoa(ref)
			fd.Candidate = strconv.Itoa(m.Candidate.(int))
		case []byte:
			fd.Reference, fd.Candidate = streamText(ref, m.Candidate.([]byte))
			fd.Diff = m.Diff()
		}
		out = append(out, fd)
	}
	return out
}

// streamText renders two stream values as report strings. Unless both are
// valid UTF-8 they are quoted as Go strings, since JSON would replace the
// invalid bytes and make different values look the same.
func streamText(ref, cand []byte) (string, string) {
	if utf8.Valid(ref) && utf8.Valid(cand) {
		return string(ref), string(cand)
	}
	return strconv.Quote(string(ref)), strconv.Quote(string(cand))
}

// CompareCommands runs a one-off comparison of two arbitrary commands and
// records it as a single-scenario compare run named "compare".
func CompareCommands(ctx context.Context, c *compare.Comparator, referenceArgv, candidateArgv []string, fields compare.FieldSet, opts compare.Options) (*ScenarioResult, *report.RunResult, error) {
	if len(referenceArgv) == 0 || len(candidateArgv) == 0 {
		return nil, nil, errors.New("both commands need at least a program name")
	}
	if err := fields.Validate(); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	sr := &ScenarioResult{Scenario: scenario.Scenario{Name: "compare", Fields: fields, Input: opts.Input, Timeout: opts.Timeout}}
	sr.Comparison, sr.Err = c.Compare(ctx, referenceArgv, candidateArgv, fields, opts)
	sr.Duration = time.Since(start)

	rep := sr.Report()
	rep.Kind = ""
	rr := &report.RunResult{
		ID:        uuid.New().String(),
		Kind:      report.Compare,
		Reference: commandLine(referenceArgv),
		Candidate: commandLine(candidateArgv),
		Scenarios: []report.ScenarioReport{rep},
	}
	return sr, rr, nil
}

func commandLine(argv []string) string {
	return strings.Join(argv, " ")
}
