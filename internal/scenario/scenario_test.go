package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/deixis/parity/internal/compare"
	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	table := Default()
	if err := Validate(table); err != nil {
		t.Fatalf("Validate(Default()): %v", err)
	}

	byName := make(map[string]Scenario)
	for _, s := range table {
		byName[s.Name] = s
	}

	missing := byName["nonexistent"]
	if missing.Kind != KindMissingScript {
		t.Errorf("nonexistent.Kind = %v, want missing", missing.Kind)
	}
	if missing.Fields != compare.WithoutStderr {
		t.Errorf("nonexistent.Fields = %v, want %v", missing.Fields, compare.WithoutStderr)
	}
	for _, name := range []string{"fail_quote", "fail_escape"} {
		s := byName[name]
		if s.Kind != KindScript || s.Fields != compare.WithoutStderr {
			t.Errorf("%s = %v/%v, want script/%v", name, s.Kind, s.Fields, compare.WithoutStderr)
		}
	}
	if byName["basic"].Fields != compare.AllFields {
		t.Errorf("basic.Fields = %v, want all", byName["basic"].Fields)
	}
}

func TestArgv(t *testing.T) {
	s := New("basic", "bash_compat/basic.sh")
	if diff := cmp.Diff([]string{"bash", "bash_compat/basic.sh"}, s.Argv("bash")); diff != "" {
		t.Errorf("Argv (-want +got):\n%s", diff)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "present.sh"), []byte("echo hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		s       Scenario
		wantErr bool
	}{
		{"script present", New("a", "present.sh"), false},
		{"script absent", New("b", "absent.sh"), true},
		{"script is dir", New("c", "sub"), true},
		{"missing absent", Missing("d", "absent.sh"), false},
		{"missing present", Missing("e", "present.sh"), true},
		{"absolute path", New("f", filepath.Join(dir, "present.sh")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Check(dir)
			if tt.wantErr {
				if !errors.Is(err, ErrPrecondition) {
					t.Errorf("Check = %v, want ErrPrecondition", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Check: %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		table []Scenario
	}{
		{"empty name", []Scenario{New("", "a.sh")}},
		{"duplicate", []Scenario{New("a", "a.sh"), New("a", "b.sh")}},
		{"empty script", []Scenario{New("a", "")}},
		{"empty fields", []Scenario{{Name: "a", Script: "a.sh"}}},
		{"negative timeout", []Scenario{{Name: "a", Script: "a.sh", Fields: compare.AllFields, Timeout: -1}}},
	}
	for _, tt := range tests {
		if err := Validate(tt.table); err == nil {
			t.Errorf("%s: Validate succeeded, want error", tt.name)
		}
	}
}

func TestFilter(t *testing.T) {
	table := Default()

	all, err := Filter(table, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(table) {
		t.Errorf("empty filter kept %d of %d", len(all), len(table))
	}

	got, err := Filter(table, "^fail_")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"fail_quote", "fail_escape"}, names); diff != "" {
		t.Errorf("Filter (-want +got):\n%s", diff)
	}

	if _, err := Filter(table, "("); err == nil {
		t.Error("invalid pattern accepted")
	}
}
