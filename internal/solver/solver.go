// Package solver exposes the Pyperplan one-shot planner over upf problems:
// convert to typed STRIPS, ground and search, decode the solution back.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haricheung/stripsbridge/internal/convert"
	"github.com/haricheung/stripsbridge/internal/plancache"
	"github.com/haricheung/stripsbridge/internal/runlog"
	"github.com/haricheung/stripsbridge/internal/search"
	"github.com/haricheung/stripsbridge/internal/strips"
	"github.com/haricheung/stripsbridge/internal/upf"
)

// Name is the planner name reported to callers.
const Name = "Pyperplan"

const tracerName = "github.com/haricheung/stripsbridge/internal/solver"

// Run statuses recorded in the run log.
const (
	StatusSolved     = "solved"
	StatusUnsolvable = "unsolvable"
	StatusFailed     = "failed"
)

// PlanStore caches raw solution lines by PDDL digest. *plancache.Store implements it.
type PlanStore interface {
	Lookup(key string) (plancache.Entry, bool, error)
	Save(key string, e plancache.Entry) error
}

// Result is the full outcome of one solve.
type Result struct {
	// Plan is nil when Found is false
	Plan  *upf.SequentialPlan
	Found bool
	RunID string
	// CacheHit is true when the solution lines came from the plan store
	CacheHit bool
	// Lines are the raw solution lines that were decoded into Plan
	Lines   []string
	Domain  *strips.Domain
	Problem *strips.Problem
	// Stages holds per-stage timings; nil without a run log
	Stages []runlog.StageStat
}

// Solver is the Pyperplan adapter. Reusable sequentially; not safe for
// concurrent Solve calls.
type Solver struct {
	engine    Engine
	strategy  search.Strategy
	heuristic search.Heuristic
	store     PlanStore
	runs      *runlog.Registry
	tracer    trace.Tracer
	timeout   time.Duration
}

// Option configures a Solver.
type Option func(*Solver)

// WithEngine replaces the in-process grounder and search.
func WithEngine(e Engine) Option {
	return func(s *Solver) { s.engine = e }
}

// WithStrategy selects the search strategy; GreedyBestFirst needs a heuristic.
func WithStrategy(strategy search.Strategy, h search.Heuristic) Option {
	return func(s *Solver) { s.strategy, s.heuristic = strategy, h }
}

// WithPlanStore enables the plan cache.
func WithPlanStore(store PlanStore) Option {
	return func(s *Solver) { s.store = store }
}

// WithRunLog writes one JSONL run log per solve into reg.
func WithRunLog(reg *runlog.Registry) Option {
	return func(s *Solver) { s.runs = reg }
}

// WithTracer sets the tracer for solve spans. The default is the global provider's.
func WithTracer(t trace.Tracer) Option {
	return func(s *Solver) { s.tracer = t }
}

// WithSearchTimeout bounds the search stage. Zero means no bound.
func WithSearchTimeout(d time.Duration) Option {
	return func(s *Solver) { s.timeout = d }
}

// New builds a Solver running breadth-first search with no heuristic.
func New(opts ...Option) *Solver {
	s := &Solver{
		engine:   DefaultEngine(),
		strategy: search.BreadthFirst,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// FromOptions builds a Solver from user-facing planner options. Pyperplan
// takes none, so any key is an InvalidConfiguration error.
func FromOptions(options map[string]string, opts ...Option) (*Solver, error) {
	if len(options) > 0 {
		keys := make([]string, 0, len(options))
		for k := range options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, convert.InvalidConfiguration("%s does not accept any option, got %s", Name, strings.Join(keys, ", "))
	}
	return New(opts...), nil
}

func (s *Solver) Name() string { return Name }

func (s *Solver) IsOneshotPlanner() bool { return true }

// Supports reports whether every feature of kind is within flat typing.
func (s *Solver) Supports(kind upf.ProblemKind) bool {
	return kind.IsSubsetOf(upf.NewProblemKind(upf.FeatureFlatTyping))
}

// Destroy releases nothing; the solver holds no planner process.
func (s *Solver) Destroy() {}

// Solve returns a plan for p, or nil and nil error when p has no solution.
func (s *Solver) Solve(ctx context.Context, p *upf.Problem) (*upf.SequentialPlan, error) {
	res, err := s.SolveResult(ctx, p)
	if err != nil {
		return nil, err
	}
	return res.Plan, nil
}

// SolveResult runs the full pipeline and reports its intermediate products.
//
// Expectations:
//   - unsupported features fail before any conversion or engine call
//   - each call converts with a fresh type registry and expression cache
//   - a plan store hit skips grounding and search; decoding always runs
//   - a plan store failure is logged and the solve continues without it
//   - no solution yields Found=false and a nil Plan with nil error
func (s *Solver) SolveResult(ctx context.Context, p *upf.Problem) (*Result, error) {
	runID := uuid.New().String()
	ctx, span := s.tracer.Start(ctx, "solver.Solve", trace.WithAttributes(
		attribute.String("problem", p.Name()),
		attribute.String("run_id", runID),
	))
	defer span.End()

	rl := s.runs.Open(runID, p.Name(), Name)
	slog.Info("[SOLVER] solve begin", "run_id", runID, "problem", p.Name())

	res, err := s.solve(ctx, p, rl)
	if err != nil {
		s.runs.Close(runID, StatusFailed, err)
		s.runs.GetStats(runID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("[SOLVER] solve failed", "run_id", runID, "problem", p.Name(), "error", err)
		return nil, err
	}
	res.RunID = runID

	status := StatusSolved
	if !res.Found {
		status = StatusUnsolvable
	}
	s.runs.Close(runID, status, nil)
	if stats := s.runs.GetStats(runID); stats != nil {
		res.Stages = stats.Stages
	}
	span.SetAttributes(
		attribute.Bool("found", res.Found),
		attribute.Bool("cache_hit", res.CacheHit),
		attribute.Int("plan_length", len(res.Lines)),
	)
	span.SetStatus(codes.Ok, "")
	slog.Info("[SOLVER] solve end", "run_id", runID, "problem", p.Name(),
		"status", status, "cache_hit", res.CacheHit, "length", len(res.Lines))
	return res, nil
}

func (s *Solver) solve(ctx context.Context, p *upf.Problem, rl *runlog.RunLog) (*Result, error) {
	conv := convert.NewConverter()

	var d *strips.Domain
	start := time.Now()
	err := s.stage(ctx, "convert.domain", func(ctx context.Context) error {
		var err error
		d, err = conv.Domain(p)
		return err
	})
	if err != nil {
		return nil, err
	}
	rl.DomainConverted(len(d.Types), len(d.Predicates), len(d.Actions), conv.Expressions().Conversions(), time.Since(start))

	var sp *strips.Problem
	start = time.Now()
	err = s.stage(ctx, "convert.problem", func(ctx context.Context) error {
		var err error
		sp, err = conv.Problem(d, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	rl.ProblemConverted(len(sp.Objects), len(sp.Initial), len(sp.Goal), time.Since(start))

	res := &Result{Domain: d, Problem: sp}

	var key string
	if s.store != nil {
		key = plancache.Key(s.searchLabel(), d.PDDL(), sp.PDDL())
		entry, ok, err := s.store.Lookup(key)
		switch {
		case err != nil:
			slog.Warn("[SOLVER] plan cache lookup failed; solving without cache", "key", key, "error", err)
		case ok:
			rl.CacheHit(key, entry.Found, len(entry.Lines))
			slog.Info("[SOLVER] plan cache hit", "problem", p.Name(), "key", key, "found", entry.Found)
			res.CacheHit = true
			res.Found = entry.Found
			res.Lines = entry.Lines
			return s.decode(ctx, p, res)
		}
	}

	lines, found, err := s.run(ctx, sp, rl)
	if err != nil {
		return nil, err
	}
	res.Found, res.Lines = found, lines

	if s.store != nil {
		e := plancache.Entry{Problem: p.Name(), Found: found, Lines: lines}
		if err := s.store.Save(key, e); err != nil {
			slog.Warn("[SOLVER] plan cache save failed", "key", key, "error", err)
		}
	}
	return s.decode(ctx, p, res)
}

// searchLabel names the strategy and heuristic an outcome was searched with.
func (s *Solver) searchLabel() string {
	if s.strategy == search.BreadthFirst || s.heuristic == nil {
		return s.strategy.String()
	}
	return fmt.Sprintf("%s/%T", s.strategy, s.heuristic)
}

// run grounds sp and searches the task, returning the solution lines.
func (s *Solver) run(ctx context.Context, sp *strips.Problem, rl *runlog.RunLog) ([]string, bool, error) {
	var task *search.Task
	start := time.Now()
	err := s.stage(ctx, "engine.ground", func(ctx context.Context) error {
		var err error
		task, err = s.engine.Ground(sp)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("ground %s: %w", sp.Name, err)
	}
	rl.Grounded(len(task.Facts), len(task.Operators), time.Since(start))

	var ops []*search.Operator
	start = time.Now()
	err = s.stage(ctx, "engine.search", func(ctx context.Context) error {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		var err error
		ops, err = s.engine.Search(ctx, task, s.strategy, s.heuristic)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("search exceeded %s: %w", s.timeout, err)
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	rl.SearchEnd(ops != nil, len(ops), time.Since(start))
	if ops == nil {
		return nil, false, nil
	}
	lines := make([]string, len(ops))
	for i, op := range ops {
		lines[i] = op.Name
	}
	return lines, true, nil
}

func (s *Solver) decode(ctx context.Context, p *upf.Problem, res *Result) (*Result, error) {
	if !res.Found {
		return res, nil
	}
	err := s.stage(ctx, "decode", func(ctx context.Context) error {
		plan, err := DecodePlan(res.Lines, p)
		res.Plan = plan
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// stage runs fn inside a child span and marks the span with its outcome.
func (s *Solver) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
