package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deixis/parity/internal/compare"
	"github.com/deixis/parity/internal/config"
	"github.com/deixis/parity/internal/report"
	"github.com/deixis/parity/internal/scenario"
	"github.com/deixis/parity/internal/suite"
	"github.com/google/go-cmp/cmp"
)

func TestCompareRunner_FixtureDir(t *testing.T) {
	root := t.TempDir()
	fixtures := filepath.Join(root, "fx")
	if err := os.Mkdir(fixtures, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fixtures, "greet.sh"), []byte("echo hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	body := "fixtures: fx\ntimeout: 3s\n"
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := config.Load(root)
	if err != nil {
		t.Fatal(err)
	}

	r := compareRunner(loaded, 0)
	if r.Dir != fixtures || r.Timeout != 3*time.Second {
		t.Errorf("runner = %+v, want Dir %s and the configured timeout", r, fixtures)
	}
	if r := compareRunner(loaded, time.Second); r.Timeout != time.Second {
		t.Errorf("Timeout = %s, want the flag to win", r.Timeout)
	}

	// A relative script resolves against the fixture directory.
	c := &compare.Comparator{Runner: r}
	sr, _, err := suite.CompareCommands(context.Background(), c,
		[]string{"sh", "greet.sh"}, []string{"sh", "greet.sh"}, compare.AllFields, compare.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !sr.Passed() {
		t.Fatalf("compare = %s: %v", sr.Status(), sr.Err)
	}
	if got := string(sr.Comparison.Reference.Stdout); got != "hi\n" {
		t.Errorf("Stdout = %q, want %q", got, "hi\n")
	}
}

func TestSplitCommands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		ref      []string
		cand     []string
		wantFail bool
	}{
		{"plain", []string{"bash", "a.sh", "--", "flassh", "a.sh"}, []string{"bash", "a.sh"}, []string{"flassh", "a.sh"}, false},
		{"leading separator", []string{"--", "bash", "--", "flassh"}, []string{"bash"}, []string{"flassh"}, false},
		{"candidate keeps later separators", []string{"a", "--", "b", "--", "c"}, []string{"a"}, []string{"b", "--", "c"}, false},
		{"no separator", []string{"bash", "a.sh"}, nil, nil, true},
		{"empty reference", []string{"--", "--", "flassh"}, nil, nil, true},
		{"empty candidate", []string{"bash", "--"}, nil, nil, true},
		{"nothing", nil, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, cand, err := splitCommands(tt.args)
			if tt.wantFail {
				if err == nil {
					t.Fatalf("splitCommands(%q) = %q, %q; want error", tt.args, ref, cand)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitCommands(%q): %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.ref, ref); diff != "" {
				t.Errorf("reference (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.cand, cand); diff != "" {
				t.Errorf("candidate (-want +got):\n%s", diff)
			}
		})
	}
}

func sampleRun() *report.RunResult {
	return &report.RunResult{
		ID:        "run-1",
		Kind:      report.Suite,
		Reference: "bash",
		Candidate: "flassh",
		Scenarios: []report.ScenarioReport{
			{Name: "basic", Status: report.StatusPass, DurationMs: 12},
			{
				Name:   "whitespace",
				Status: report.StatusMismatch,
				Mismatches: []report.FieldDiff{
					{Field: "status", Reference: "0", Candidate: "1"},
					{Field: "stdout", Reference: "a\n", Candidate: "b\n", Diff: "-a\n+b\n"},
				},
			},
			{Name: "pipe", Status: report.StatusTimeout, Side: "candidate", Error: "compare: candidate: flassh timed out after 10s"},
		},
	}
}

func TestFormatRunCLI(t *testing.T) {
	out := formatRunCLI(sampleRun(), false)
	for _, want := range []string{
		"ok    basic       12ms\n",
		"FAIL  whitespace  mismatch (status, stdout)\n",
		"FAIL  pipe        timeout: compare: candidate: flassh timed out after 10s\n",
		"\nFAIL\n3 scenarios: 1 pass, 1 mismatch, 1 timeout\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "-reference +candidate") {
		t.Errorf("diff shown without verbose:\n%s", out)
	}
}

func TestFormatRunCLI_Verbose(t *testing.T) {
	out := formatRunCLI(sampleRun(), true)
	for _, want := range []string{
		"      status: reference 0, candidate 1\n",
		"      stdout (-reference +candidate):\n",
		"        -a\n",
		"        +b\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRunCLI_Passed(t *testing.T) {
	rr := &report.RunResult{Scenarios: []report.ScenarioReport{{Name: "basic", Status: report.StatusPass}}}
	out := formatRunCLI(rr, false)
	if !strings.HasSuffix(out, "\nok\n1 scenario: 1 pass\n") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFormatCompareCLI(t *testing.T) {
	rr := &report.RunResult{
		Kind:      report.Compare,
		Reference: "sh -c true",
		Candidate: "sh -c false",
		Scenarios: []report.ScenarioReport{{
			Name:           "compare",
			Status:         report.StatusMismatch,
			Mismatches:     []report.FieldDiff{{Field: "status", Reference: "0", Candidate: "1"}},
			ReferenceRunID: "r1",
			CandidateRunID: "c1",
		}},
	}

	out := formatCompareCLI(rr, false)
	want := "FAIL: mismatch (status)\n  status: reference 0, candidate 1\n"
	if out != want {
		t.Errorf("formatCompareCLI =\n%s\nwant\n%s", out, want)
	}

	out = formatCompareCLI(rr, true)
	if !strings.Contains(out, "reference r1: sh -c true") || !strings.Contains(out, "candidate c1: sh -c false") {
		t.Errorf("verbose output missing run IDs:\n%s", out)
	}

	rr.Scenarios[0] = report.ScenarioReport{Name: "compare", Status: report.StatusPass}
	if out := formatCompareCLI(rr, false); out != "ok\n" {
		t.Errorf("formatCompareCLI = %q, want ok", out)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := writeTable(&buf, scenario.Default()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(scenario.Default())+1 {
		t.Fatalf("got %d lines, want header + %d:\n%s", len(lines), len(scenario.Default()), buf.String())
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Errorf("header = %q", lines[0])
	}
	found := false
	for _, l := range lines {
		if strings.Contains(l, "nonexistent") {
			found = strings.Contains(l, "missing") && strings.Contains(l, "status,stdout")
		}
	}
	if !found {
		t.Errorf("nonexistent row not rendered as missing status,stdout:\n%s", buf.String())
	}
}
