// Package compare runs a reference and a candidate command under identical
// conditions and checks a chosen set of their observable fields for
// equality.
package compare

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/parity/internal/runner"
	"github.com/google/go-cmp/cmp"
)

// CommandRunner executes commands.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, req runner.Request) (*runner.Result, error)
}

// Side names which of the two commands an error or value belongs to.
type Side string

const (
	Reference Side = "reference"
	Candidate Side = "candidate"
)

// Options are applied identically to both runs.
type Options struct {
	Input   []byte        // stdin for both commands; nil means none
	Timeout time.Duration // per-run timeout; zero means the runner's
}

// Comparator compares two commands through a CommandRunner.
type Comparator struct {
	Runner CommandRunner
}

// Comparison is the outcome of a completed comparison.
type Comparison struct {
	Fields     FieldSet
	Reference  *runner.Result
	Candidate  *runner.Result
	Mismatches []Mismatch
}

// Passed reports whether every selected field matched.
func (c *Comparison) Passed() bool {
	return len(c.Mismatches) == 0
}

// Mismatch records one field on which the two runs differ. Reference and
// Candidate hold an int for ExitStatus and a []byte for Stdout and Stderr.
type Mismatch struct {
	Field     Field
	Reference any
	Candidate any
}

func (m Mismatch) String() string {
	if m.Field == ExitStatus {
		return fmt.Sprintf("status: reference %v, candidate %v", m.Reference, m.Candidate)
	}
	return fmt.Sprintf("%s: reference %q, candidate %q", m.Field, m.Reference, m.Candidate)
}

// Diff renders a line diff (-reference +candidate) of a stream mismatch,
// or the plain values for ExitStatus.
func (m Mismatch) Diff() string {
	ref, refOK := m.Reference.([]byte)
	cand, candOK := m.Candidate.([]byte)
	if !refOK || !candOK {
		return m.String()
	}
	return cmp.Diff(splitLines(ref), splitLines(cand))
}

func splitLines(b []byte) []string {
	return strings.SplitAfter(string(b), "\n")
}

// RunError reports that one side of a comparison did not produce output,
// because it timed out or could not be started. The comparison is void.
type RunError struct {
	Side Side
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Side, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Compare runs referenceArgv and then candidateArgv with the same input
// and timeout, and checks every field in fields. All differing fields are
// reported. If either run fails to complete, Compare returns a *RunError
// wrapping the runner's error and no Comparison; when the reference fails
// the candidate is not run.
func (c *Comparator) Compare(ctx context.Context, referenceArgv, candidateArgv []string, fields FieldSet, opts Options) (*Comparison, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	ref, err := c.Runner.Run(ctx, runner.Request{Argv: referenceArgv, Input: opts.Input, Timeout: opts.Timeout})
	if err != nil {
		return nil, &RunError{Side: Reference, Err: err}
	}
	cand, err := c.Runner.Run(ctx, runner.Request{Argv: candidateArgv, Input: opts.Input, Timeout: opts.Timeout})
	if err != nil {
		return nil, &RunError{Side: Candidate, Err: err}
	}

	return &Comparison{
		Fields:     fields,
		Reference:  ref,
		Candidate:  cand,
		Mismatches: Diff(ref, cand, fields),
	}, nil
}

// Diff checks the fields in fields and returns one Mismatch per differing
// field, in status, stdout, stderr order. Fields outside the set are not
// read.
func Diff(ref, cand *runner.Result, fields FieldSet) []Mismatch {
	var out []Mismatch
	for _, f := range fields.Fields() {
		switch f {
		case ExitStatus:
			if ref.ExitCode != cand.ExitCode {
				out = append(out, Mismatch{Field: f, Reference: ref.ExitCode, Candidate: cand.ExitCode})
			}
		case Stdout:
			if !bytes.Equal(ref.Stdout, cand.Stdout) {
				out = append(out, Mismatch{Field: f, Reference: ref.Stdout, Candidate: cand.Stdout})
			}
		case Stderr:
			if !bytes.Equal(ref.Stderr, cand.Stderr) {
				out = append(out, Mismatch{Field: f, Reference: ref.Stderr, Candidate: cand.Stderr})
			}
		}
	}
	return out
}
