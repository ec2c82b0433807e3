package compare

import (
	"fmt"
	"strings"
)

// Field is one observable part of a run.
type Field uint8

const (
	ExitStatus Field = 1 << iota
	Stdout
	Stderr
)

// fieldOrder is the order fields are checked and reported in.
var fieldOrder = [...]Field{ExitStatus, Stdout, Stderr}

func (f Field) String() string {
	switch f {
	case ExitStatus:
		return "status"
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	}
	return fmt.Sprintf("Field(%d)", uint8(f))
}

// ParseField parses "status", "stdout" or "stderr".
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "status", "exit", "exit_status":
		return ExitStatus, nil
	case "stdout":
		return Stdout, nil
	case "stderr":
		return Stderr, nil
	}
	return 0, fmt.Errorf("unknown field %q (want status, stdout or stderr)", s)
}

// FieldSet selects which fields a comparison checks. Fields outside the
// set are never inspected.
type FieldSet uint8

const (
	// AllFields is the default: status, stdout and stderr must all match.
	AllFields = FieldSet(ExitStatus | Stdout | Stderr)
	// WithoutStderr is used where error wording may legitimately differ.
	WithoutStderr = FieldSet(ExitStatus | Stdout)
)

// NewFieldSet builds a set from individual fields.
func NewFieldSet(fields ...Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s |= FieldSet(f)
	}
	return s & AllFields
}

// ParseFieldSet parses a list of field names. An empty list is an error.
func ParseFieldSet(names []string) (FieldSet, error) {
	var s FieldSet
	for _, n := range names {
		f, err := ParseField(n)
		if err != nil {
			return 0, err
		}
		s |= FieldSet(f)
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return s, nil
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	return s&FieldSet(f) != 0
}

// Fields returns the members in reporting order.
func (s FieldSet) Fields() []Field {
	var out []Field
	for _, f := range fieldOrder {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Validate rejects the empty set and unknown bits.
func (s FieldSet) Validate() error {
	if s == 0 {
		return fmt.Errorf("field set is empty")
	}
	if s&^AllFields != 0 {
		return fmt.Errorf("field set %#x has unknown fields", uint8(s))
	}
	return nil
}

// Names returns the member names in reporting order.
func (s FieldSet) Names() []string {
	fields := s.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return names
}

func (s FieldSet) String() string {
	return strings.Join(s.Names(), ",")
}

// MarshalText renders the set as a comma-separated list.
func (s FieldSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a comma-separated list.
func (s *FieldSet) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldSet(strings.Split(string(text), ","))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
