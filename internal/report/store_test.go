package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// memStore is a backing Store that counts loads.
type memStore struct {
	results map[string]*RunResult
	loads   int
}

func newMemStore() *memStore {
	return &memStore{results: make(map[string]*RunResult)}
}

func (m *memStore) Save(r *RunResult) error {
	m.results[r.ID] = r
	return nil
}

func (m *memStore) Load(id string) (*RunResult, error) {
	m.loads++
	r, ok := m.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func sampleRun() *RunResult {
	return &RunResult{
		ID:        "run-1",
		Kind:      Suite,
		Reference: "bash",
		Candidate: "flassh",
		Scenarios: []ScenarioReport{
			{Name: "basic", Status: StatusPass},
			{Name: "pipe", Status: StatusMismatch, Mismatches: []FieldDiff{{Field: "stdout", Reference: "a", Candidate: "b"}}},
			{Name: "loop", Status: StatusTimeout, Side: "candidate"},
			{Name: "all", Status: StatusPass},
		},
	}
}

func TestRunResultQueries(t *testing.T) {
	r := sampleRun()

	if r.Passed() {
		t.Error("Passed = true with failures")
	}
	if got, want := r.Summary(), "4 scenarios: 2 pass, 1 mismatch, 1 timeout"; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}

	s, ok := ByName(r, "pipe")
	if !ok || s.Status != StatusMismatch {
		t.Errorf("ByName(pipe) = %+v, %v", s, ok)
	}
	if _, ok := ByName(r, "missing"); ok {
		t.Error("ByName found a scenario that does not exist")
	}

	var names []string
	for _, f := range Failures(r) {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"pipe", "loop"}, names); diff != "" {
		t.Errorf("Failures (-want +got):\n%s", diff)
	}
	if got := ByStatus(r, StatusPass); len(got) != 2 {
		t.Errorf("ByStatus(pass) = %d scenarios, want 2", len(got))
	}

	if err := r.Expect(Suite); err != nil {
		t.Errorf("Expect(Suite): %v", err)
	}
	if err := r.Expect(Compare); err == nil {
		t.Error("Expect(Compare) succeeded on a suite run")
	}
}

func TestDiskStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	s := NewDiskStore(dir)
	want := sampleRun()

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run-1.json")); err != nil {
		t.Fatalf("result file: %v", err)
	}
	got, err := s.Load("run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load (-want +got):\n%s", diff)
	}

	if _, err := s.Load("../escape"); err == nil {
		t.Error("Load accepted a path-like run id")
	}
	if _, err := s.Load("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(absent) = %v, want ErrNotFound", err)
	}
	if err := s.Save(&RunResult{ID: ".hidden"}); err == nil {
		t.Error("Save accepted a dot-file run id")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("result dir has %d entries, want only run-1.json", len(entries))
	}
}

func TestDiskStoreTempDir(t *testing.T) {
	s := NewDiskStore("")
	dir, err := s.Dir()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	again, err := s.Dir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != again {
		t.Errorf("Dir changed from %q to %q", dir, again)
	}
}

func TestLRUStore(t *testing.T) {
	back := newMemStore()
	s := NewLRUStore(2, back)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(&RunResult{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	// b and c are cached; a was evicted and must come from the backing store.
	if _, err := s.Load("c"); err != nil {
		t.Fatal(err)
	}
	if back.loads != 0 {
		t.Errorf("backing loads = %d after cache hit, want 0", back.loads)
	}
	if _, err := s.Load("a"); err != nil {
		t.Fatal(err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d after miss, want 1", back.loads)
	}

	// Loading a promoted it and evicted b, the least recently used.
	if _, err := s.Load("b"); err != nil {
		t.Fatal(err)
	}
	if back.loads != 2 {
		t.Errorf("backing loads = %d, want 2", back.loads)
	}

	if _, err := s.Load("zzz"); err == nil {
		t.Error("Load of unknown id succeeded")
	}
}

func TestNewLRUStoreClampsCapacity(t *testing.T) {
	s := NewLRUStore(0, newMemStore())
	_ = s.Save(&RunResult{ID: "a"})
	_ = s.Save(&RunResult{ID: "b"})
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
