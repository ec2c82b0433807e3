// Package scenario defines the named fixtures a parity suite runs.
//
// A scenario binds a script path to the set of fields that must agree
// between the reference and candidate interpreters. There are two kinds:
//
//   - KindScript checks ordinary parity. The script must exist.
//   - KindMissingScript checks that both interpreters report a missing
//     script the same way. The script must NOT exist, and stderr is
//     normally excluded because error wording differs between programs.
//
// The kind is checked before anything is run, so a fixture that goes
// missing by accident cannot silently turn an ordinary scenario into a
// "file not found" comparison, and vice versa.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/deixis/parity/internal/compare"
)

// Kind distinguishes ordinary-script parity from missing-script parity.
type Kind int

const (
	KindScript Kind = iota
	KindMissingScript
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindMissingScript:
		return "missing"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrPrecondition matches errors from Check.
var ErrPrecondition = errors.New("scenario precondition failed")

// Scenario is a static, named comparison case.
type Scenario struct {
	Name    string
	Script  string // passed verbatim as the interpreters' only argument
	Kind    Kind
	Fields  compare.FieldSet
	Input   []byte        // optional stdin for both interpreters
	Timeout time.Duration // optional per-scenario timeout
}

// New returns an ordinary scenario comparing every field.
func New(name, script string) Scenario {
	return Scenario{Name: name, Script: script, Kind: KindScript, Fields: compare.AllFields}
}

// NewWithoutStderr returns an ordinary scenario that ignores stderr, for
// scripts whose error messages are expected to be worded differently.
func NewWithoutStderr(name, script string) Scenario {
	s := New(name, script)
	s.Fields = compare.WithoutStderr
	return s
}

// Missing returns a missing-script scenario.
func Missing(name, script string) Scenario {
	return Scenario{Name: name, Script: script, Kind: KindMissingScript, Fields: compare.WithoutStderr}
}

// Argv is the command line for running the scenario under interpreter.
func (s Scenario) Argv(interpreter string) []string {
	return []string{interpreter, s.Script}
}

// Check verifies the scenario's on-disk precondition. Relative scripts are
// resolved against dir.
func (s Scenario) Check(dir string) error {
	path := s.Script
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}

	info, err := os.Stat(path)
	switch s.Kind {
	case KindScript:
		if err != nil {
			return fmt.Errorf("%w: %s: script %s: %v", ErrPrecondition, s.Name, s.Script, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s: script %s is a directory", ErrPrecondition, s.Name, s.Script)
		}
	case KindMissingScript:
		if err == nil {
			return fmt.Errorf("%w: %s: script %s exists but the scenario expects it to be missing", ErrPrecondition, s.Name, s.Script)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: script %s: %v", ErrPrecondition, s.Name, s.Script, err)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %v", ErrPrecondition, s.Name, s.Kind)
	}
	return nil
}

// Validate checks a table for empty or duplicate names, empty scripts and
// invalid field sets.
func Validate(scenarios []Scenario) error {
	seen := make(map[string]bool, len(scenarios))
	for i, s := range scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenario %d: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("scenario %s: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if s.Script == "" {
			return fmt.Errorf("scenario %s: script is required", s.Name)
		}
		if err := s.Fields.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		if s.Timeout < 0 {
			return fmt.Errorf("scenario %s: negative timeout", s.Name)
		}
	}
	return nil
}

// Filter returns the scenarios whose name matches pattern, in table order.
// An empty pattern selects everything.
func Filter(scenarios []Scenario, pattern string) ([]Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario filter: %w", err)
	}
	var out []Scenario
	for _, s := range scenarios {
		if re.MatchString(s.Name) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Default is the built-in bash compatibility table. Scripts are relative
// to the fixture directory.
func Default() []Scenario {
	return []Scenario{
		New("all", "bash_compat/all.sh"),
		Missing("nonexistent", "🤔.sh"),
		New("basic", "bash_compat/basic.sh"),
		New("quotes_escapes", "bash_compat/quotes_escapes.sh"),
		NewWithoutStderr("fail_quote", "bash_compat/fail_quote.sh"),
		NewWithoutStderr("fail_escape", "bash_compat/fail_escape.sh"),
		New("whitespace", "bash_compat/whitespace.sh"),
		New("pipe", "bash_compat/pipe.sh"),
	}
}
