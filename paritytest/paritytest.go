// Package paritytest runs parity scenarios as Go subtests.
//
//	func TestBashCompat(t *testing.T) {
//		paritytest.Run(t, paritytest.Config{
//			Reference: "bash",
//			Candidate: "../build/flassh",
//			Dir:       "testdata",
//		}, paritytest.Default())
//	}
//
// Each scenario becomes a subtest named after it. A mismatch fails the
// subtest with every divergent field; a timeout or a program that cannot
// be started fails it with the runner's error instead.
package paritytest

import (
	"testing"
	"time"

	"github.com/deixis/parity/internal/compare"
	"github.com/deixis/parity/internal/config"
	"github.com/deixis/parity/internal/report"
	"github.com/deixis/parity/internal/runner"
	"github.com/deixis/parity/internal/scenario"
	"github.com/deixis/parity/internal/suite"
)

type (
	Scenario = scenario.Scenario
	Field    = compare.Field
	FieldSet = compare.FieldSet
	Options  = compare.Options
)

const (
	ExitStatus = compare.ExitStatus
	Stdout     = compare.Stdout
	Stderr     = compare.Stderr

	AllFields     = compare.AllFields
	WithoutStderr = compare.WithoutStderr
)

// New returns a scenario comparing every field of an existing script.
func New(name, script string) Scenario { return scenario.New(name, script) }

// NewWithoutStderr is New without stderr.
func NewWithoutStderr(name, script string) Scenario { return scenario.NewWithoutStderr(name, script) }

// Missing returns a scenario for a script that must not exist.
func Missing(name, script string) Scenario { return scenario.Missing(name, script) }

// Default returns the built-in bash compatibility table.
func Default() []Scenario { return scenario.Default() }

// NewFieldSet builds a field set.
func NewFieldSet(fields ...Field) FieldSet { return compare.NewFieldSet(fields...) }

// Config selects the two interpreters and where scripts live.
type Config struct {
	Reference string        // default: bash
	Candidate string        // required
	Dir       string        // fixture directory; children run here
	Timeout   time.Duration // per-run timeout; default 10s
}

func (c Config) driver() *suite.Driver {
	ref := c.Reference
	if ref == "" {
		ref = config.DefaultReference
	}
	return &suite.Driver{
		Reference:  ref,
		Candidate:  c.Candidate,
		Dir:        c.Dir,
		Timeout:    c.Timeout,
		Comparator: &compare.Comparator{Runner: &runner.Runner{Dir: c.Dir, Timeout: c.Timeout}},
	}
}

// Run registers one subtest per scenario, in table order.
func Run(t *testing.T, cfg Config, scenarios []Scenario) {
	t.Helper()
	if cfg.Candidate == "" {
		t.Fatal("paritytest: no candidate interpreter")
	}
	if err := scenario.Validate(scenarios); err != nil {
		t.Fatalf("paritytest: %v", err)
	}

	d := cfg.driver()
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			res, err := d.Run(t.Context(), []Scenario{s})
			if err != nil {
				t.Fatalf("running %s: %v", s.Name, err)
			}
			check(t, &res.Scenarios[0])
		})
	}
}

// AssertCommandsEqual runs both commands once each under identical
// conditions and fails t if any selected field differs.
func AssertCommandsEqual(t testing.TB, reference, candidate []string, fields FieldSet, opts Options) {
	t.Helper()
	c := &compare.Comparator{Runner: &runner.Runner{}}
	sr, _, err := suite.CompareCommands(t.Context(), c, reference, candidate, fields, opts)
	if err != nil {
		t.Fatalf("paritytest: %v", err)
	}
	check(t, sr)
}

func check(t testing.TB, sr *suite.ScenarioResult) {
	t.Helper()
	rep := sr.Report()
	switch rep.Status {
	case report.StatusPass:
		return
	case report.StatusMismatch:
		for _, m := range rep.Mismatches {
			if m.Diff != "" {
				t.Errorf("%s differs (-reference +candidate):\n%s", m.Field, m.Diff)
				continue
			}
			t.Errorf("%s differs: reference %s, candidate %s", m.Field, m.Reference, m.Candidate)
		}
	default:
		t.Errorf("%s: %v", rep.Status, sr.Err)
	}
}
