package runlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// readEvents parses all JSONL lines from a file into a slice of Events.
func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	defer f.Close()
	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("readEvents: unmarshal %q: %v", line, err)
		}
		events = append(events, e)
	}
	return events
}

func TestRegistry_Open_WritesSolveBegin(t *testing.T) {
	// Open creates the log directory and writes solve_begin as the first JSONL line
	dir := filepath.Join(t.TempDir(), "runs")
	r := NewRegistry(dir)
	rl := r.Open("run1", "toy", "Pyperplan")
	if rl == nil {
		t.Fatal("expected non-nil RunLog")
	}
	r.Close("run1", "solved", nil)

	events := readEvents(t, filepath.Join(dir, "run1.jsonl"))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != KindSolveBegin {
		t.Errorf("first event kind = %q, want %q", events[0].Kind, KindSolveBegin)
	}
	if events[0].Problem != "toy" || events[0].Planner != "Pyperplan" {
		t.Errorf("solve_begin = %+v", events[0])
	}
}

func TestRegistry_Open_ReturnsExistingOnDuplicate(t *testing.T) {
	// A second Open for the same run returns the same handle and writes no second solve_begin
	dir := t.TempDir()
	r := NewRegistry(dir)
	a := r.Open("run1", "toy", "Pyperplan")
	b := r.Open("run1", "toy", "Pyperplan")
	if a != b {
		t.Errorf("expected same *RunLog on second Open")
	}
	r.Close("run1", "solved", nil)
	begins := 0
	for _, e := range readEvents(t, filepath.Join(dir, "run1.jsonl")) {
		if e.Kind == KindSolveBegin {
			begins++
		}
	}
	if begins != 1 {
		t.Errorf("expected 1 solve_begin, got %d", begins)
	}
}

func TestRegistry_Close_ReleasesHandle(t *testing.T) {
	// After Close a new Open for the same run starts a fresh handle
	r := NewRegistry(t.TempDir())
	rl := r.Open("run1", "toy", "Pyperplan")
	r.Close("run1", "solved", nil)
	again := r.Open("run1", "toy", "Pyperplan")
	if again == rl {
		t.Errorf("Open after Close returned the closed handle")
	}
	r.Close("run1", "solved", nil)
}

func TestRegistry_Close_WritesStagesAndError(t *testing.T) {
	// solve_end carries status, error text and stage timings in pipeline order
	dir := t.TempDir()
	r := NewRegistry(dir)
	rl := r.Open("run1", "toy", "Pyperplan")
	rl.Grounded(2, 2, 3*time.Millisecond)
	rl.DomainConverted(2, 1, 1, 9, 5*time.Millisecond)
	rl.SearchEnd(false, 4, time.Millisecond)
	r.Close("run1", "failed", errors.New("boom"))

	events := readEvents(t, filepath.Join(dir, "run1.jsonl"))
	end := events[len(events)-1]
	if end.Kind != KindSolveEnd {
		t.Fatalf("last event kind = %q, want %q", end.Kind, KindSolveEnd)
	}
	if end.Status != "failed" || end.Error != "boom" {
		t.Errorf("solve_end status/error = %q/%q", end.Status, end.Error)
	}
	want := []string{StageDomain, StageGround, StageSearch}
	if len(end.Stages) != len(want) {
		t.Fatalf("stages = %+v, want %v", end.Stages, want)
	}
	for i, s := range want {
		if end.Stages[i].Stage != s {
			t.Errorf("stage[%d] = %q, want %q", i, end.Stages[i].Stage, s)
		}
	}

	var search Event
	for _, e := range events {
		if e.Kind == KindSearchEnd {
			search = e
		}
	}
	if search.Found == nil || *search.Found {
		t.Errorf("search_end found must serialise false, got %v", search.Found)
	}
	if search.PlanLength != 0 {
		t.Errorf("plan length for no plan = %d, want 0", search.PlanLength)
	}
}

func TestRegistry_Close_UnknownRunNoop(t *testing.T) {
	// Close on an unregistered run does nothing
	r := NewRegistry(t.TempDir())
	r.Close("nope", "solved", nil)
	if r.GetStats("nope") != nil {
		t.Errorf("expected no stats for unknown run")
	}
}

func TestRegistry_GetStats_ConsumedOnce(t *testing.T) {
	// Stats are cached on Close and removed by the first GetStats
	r := NewRegistry(t.TempDir())
	rl := r.Open("run1", "toy", "Pyperplan")
	rl.ProblemConverted(2, 1, 1, time.Millisecond)
	r.Close("run1", "unsolvable", nil)

	s := r.GetStats("run1")
	if s == nil {
		t.Fatal("expected stats after Close")
	}
	if s.Status != "unsolvable" {
		t.Errorf("status = %q, want unsolvable", s.Status)
	}
	if len(s.Stages) != 1 || s.Stages[0].Stage != StageProblem {
		t.Errorf("stages = %+v", s.Stages)
	}
	if r.GetStats("run1") != nil {
		t.Errorf("second GetStats should return nil")
	}
}

func TestRunLog_NilSafe(t *testing.T) {
	// Every method is a no-op on nil handles
	var rl *RunLog
	rl.DomainConverted(1, 1, 1, 1, time.Millisecond)
	rl.ProblemConverted(1, 1, 1, time.Millisecond)
	rl.Grounded(1, 1, time.Millisecond)
	rl.SearchEnd(true, 1, time.Millisecond)
	rl.CacheHit("k", true, 1)
	if rl.Stats() != nil {
		t.Errorf("nil RunLog should report nothing")
	}

	var r *Registry
	if r.Open("run1", "toy", "Pyperplan") != nil {
		t.Errorf("nil Registry Open should return nil")
	}
	r.Close("run1", "solved", nil)
	if r.GetStats("run1") != nil || r.Dir() != "" {
		t.Errorf("nil Registry should report nothing")
	}
}

func TestRegistry_Open_UnwritableDir(t *testing.T) {
	// An unusable directory yields a nil handle instead of an error
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(filepath.Join(blocker, "runs"))
	if rl := r.Open("run1", "toy", "Pyperplan"); rl != nil {
		t.Errorf("expected nil RunLog when dir cannot be created")
	}
}
