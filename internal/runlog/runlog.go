// Package runlog provides per-solve structured logging for the converter.
//
// Each Solve call gets one JSONL file in a configurable directory. Events
// capture every stage: domain conversion, problem conversion, grounding, the
// search outcome and the final status, each with its sizes and elapsed time.
//
// Design constraints:
//   - All RunLog methods are nil-safe (no-op on nil receiver) so the solver
//     doesn't need nil checks before every log call.
//   - Registry is the sole owner of JSONL persistence; the solver never opens files.
//   - Solve opens a log via Registry.Open and closes it via Registry.Close.
package runlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventKind labels a single structured event in the run log.
type EventKind string

const (
	KindSolveBegin       EventKind = "solve_begin"
	KindSolveEnd         EventKind = "solve_end"
	KindDomainConverted  EventKind = "domain_converted"
	KindProblemConverted EventKind = "problem_converted"
	KindGrounded         EventKind = "grounded"
	KindSearchEnd        EventKind = "search_end"
	KindCacheHit         EventKind = "cache_hit"
)

// Stage names, in pipeline order.
const (
	StageDomain  = "domain"
	StageProblem = "problem"
	StageGround  = "ground"
	StageSearch  = "search"
)

var canonicalStageOrder = []string{StageDomain, StageProblem, StageGround, StageSearch}

// Event is one JSONL line in the run log.
// Fields are omitempty so each event only serialises relevant data.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp string    `json:"ts"`

	// solve_begin / solve_end
	RunID     string      `json:"run_id,omitempty"`
	Problem   string      `json:"problem,omitempty"`
	Planner   string      `json:"planner,omitempty"`
	Status    string      `json:"status,omitempty"` // "solved" | "unsolvable" | "failed"
	Error     string      `json:"error,omitempty"`
	ElapsedMs int64       `json:"elapsed_ms,omitempty"`
	Stages    []StageStat `json:"stages,omitempty"` // solve_end only

	// domain_converted
	Types      int `json:"types,omitempty"`
	Predicates int `json:"predicates,omitempty"`
	Actions    int `json:"actions,omitempty"`
	ExprNodes  int `json:"expr_nodes,omitempty"`

	// problem_converted
	Objects   int `json:"objects,omitempty"`
	InitFacts int `json:"init_facts,omitempty"`
	Goals     int `json:"goals,omitempty"`

	// grounded
	Facts     int `json:"facts,omitempty"`
	Operators int `json:"operators,omitempty"`

	// search_end / cache_hit
	Found      *bool  `json:"found,omitempty"` // pointer: false must be serialised
	PlanLength int    `json:"plan_length,omitempty"`
	CacheKey   string `json:"cache_key,omitempty"`
}

// StageStat is the wall-clock time spent in one pipeline stage.
type StageStat struct {
	Stage     string `json:"stage"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// RunStats summarises a finished run.
//
// Expectations:
//   - Stages is sorted in pipeline order (domain, problem, ground, search)
//   - stages that never ran are omitted
type RunStats struct {
	Status string      `json:"status"`
	Stages []StageStat `json:"stages"`
}

// RunLog is a handle for writing structured events for one Solve call.
//
// Expectations:
//   - All methods are nil-safe (no-op when called on nil *RunLog)
//   - Concurrent writes are safe (mutex-protected)
type RunLog struct {
	runID   string
	started time.Time
	mu      sync.Mutex
	f       *os.File
	stages  map[string]int64 // stage -> elapsed ms
}

// Registry maps run IDs to open RunLogs.
// It is the sole authority for creating and closing run log files.
//
// Expectations:
//   - Open creates the log directory if absent
//   - Open writes a solve_begin event as the first JSONL line
//   - Open returns the existing log without re-opening when called twice for the same runID
//   - Close writes solve_end with status, error and elapsed_ms before flushing
//   - Close removes the runID from the registry and keeps its RunStats until GetStats
//   - Close no-ops gracefully when runID is not registered
//   - every method no-ops on a nil *Registry
type Registry struct {
	dir   string
	mu    sync.Mutex
	logs  map[string]*RunLog
	cache map[string]*RunStats // runID -> stats snapshot saved on Close
}

// NewRegistry creates a Registry that writes one JSONL file per run under dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		logs:  make(map[string]*RunLog),
		cache: make(map[string]*RunStats),
	}
}

func (r *Registry) Dir() string {
	if r == nil {
		return ""
	}
	return r.dir
}

// Open creates a new RunLog for runID, writes a solve_begin event, and registers it.
// Returns nil (a valid no-op handle) when the file cannot be created.
func (r *Registry) Open(runID, problem, planner string) *RunLog {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if rl, ok := r.logs[runID]; ok {
		return rl
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		slog.Error("[RUNLOG] could not create dir", "dir", r.dir, "error", err)
		return nil
	}
	path := filepath.Join(r.dir, runID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("[RUNLOG] could not open log file", "path", path, "error", err)
		return nil
	}

	rl := &RunLog{runID: runID, started: time.Now(), f: f, stages: make(map[string]int64)}
	r.logs[runID] = rl
	rl.write(Event{
		Kind:    KindSolveBegin,
		RunID:   runID,
		Problem: problem,
		Planner: planner,
	})
	return rl
}

// Close writes a solve_end event, closes the file, and removes the entry from
// the registry. cause may be nil.
func (r *Registry) Close(runID, status string, cause error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	rl, ok := r.logs[runID]
	if !ok {
		r.mu.Unlock()
		return
	}
	stats := rl.Stats()
	stats.Status = status
	r.cache[runID] = stats
	delete(r.logs, runID)
	r.mu.Unlock()

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	rl.write(Event{
		Kind:      KindSolveEnd,
		RunID:     runID,
		Status:    status,
		Error:     msg,
		ElapsedMs: time.Since(rl.started).Milliseconds(),
		Stages:    stats.Stages,
	})

	rl.mu.Lock()
	if rl.f != nil {
		_ = rl.f.Close()
		rl.f = nil
	}
	rl.mu.Unlock()
}

// GetStats returns and removes the cached RunStats for runID.
//
// Expectations:
//   - Returns nil for unknown runID
//   - Deletes the cache entry on first call (subsequent calls return nil)
func (r *Registry) GetStats(runID string) *RunStats {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.cache[runID]
	delete(r.cache, runID)
	return s
}

// DomainConverted writes a domain_converted event.
func (rl *RunLog) DomainConverted(types, predicates, actions, exprNodes int, elapsed time.Duration) {
	if rl == nil {
		return
	}
	rl.stage(StageDomain, elapsed)
	rl.write(Event{
		Kind:       KindDomainConverted,
		Types:      types,
		Predicates: predicates,
		Actions:    actions,
		ExprNodes:  exprNodes,
		ElapsedMs:  elapsed.Milliseconds(),
	})
}

// ProblemConverted writes a problem_converted event.
func (rl *RunLog) ProblemConverted(objects, initFacts, goals int, elapsed time.Duration) {
	if rl == nil {
		return
	}
	rl.stage(StageProblem, elapsed)
	rl.write(Event{
		Kind:      KindProblemConverted,
		Objects:   objects,
		InitFacts: initFacts,
		Goals:     goals,
		ElapsedMs: elapsed.Milliseconds(),
	})
}

// Grounded writes a grounded event.
func (rl *RunLog) Grounded(facts, operators int, elapsed time.Duration) {
	if rl == nil {
		return
	}
	rl.stage(StageGround, elapsed)
	rl.write(Event{
		Kind:      KindGrounded,
		Facts:     facts,
		Operators: operators,
		ElapsedMs: elapsed.Milliseconds(),
	})
}

// SearchEnd writes a search_end event. planLength is ignored when found is false.
func (rl *RunLog) SearchEnd(found bool, planLength int, elapsed time.Duration) {
	if rl == nil {
		return
	}
	rl.stage(StageSearch, elapsed)
	f := found
	if !found {
		planLength = 0
	}
	rl.write(Event{
		Kind:       KindSearchEnd,
		Found:      &f,
		PlanLength: planLength,
		ElapsedMs:  elapsed.Milliseconds(),
	})
}

// CacheHit writes a cache_hit event when a stored solution replaced the search.
func (rl *RunLog) CacheHit(key string, found bool, planLength int) {
	if rl == nil {
		return
	}
	f := found
	rl.write(Event{
		Kind:       KindCacheHit,
		CacheKey:   key,
		Found:      &f,
		PlanLength: planLength,
	})
}

// Stats returns a snapshot of the stage timings recorded so far.
//
// Expectations:
//   - Returns nil on nil receiver
//   - Status is empty until the run is closed
func (rl *RunLog) Stats() *RunStats {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	out := &RunStats{}
	for _, s := range canonicalStageOrder {
		ms, ok := rl.stages[s]
		if !ok {
			continue
		}
		out.Stages = append(out.Stages, StageStat{Stage: s, ElapsedMs: ms})
	}
	return out
}

func (rl *RunLog) stage(name string, elapsed time.Duration) {
	rl.mu.Lock()
	rl.stages[name] += elapsed.Milliseconds()
	rl.mu.Unlock()
}

// write appends one JSON line to the run log file. Adds timestamp, mutex-protected.
func (rl *RunLog) write(e Event) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("[RUNLOG] marshal event", "error", err)
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.f == nil {
		return
	}
	if _, err = fmt.Fprintf(rl.f, "%s\n", data); err != nil {
		slog.Error("[RUNLOG] write event", "error", err)
	}
}
