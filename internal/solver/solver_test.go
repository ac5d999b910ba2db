package solver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/haricheung/stripsbridge/internal/convert"
	"github.com/haricheung/stripsbridge/internal/plancache"
	"github.com/haricheung/stripsbridge/internal/runlog"
	"github.com/haricheung/stripsbridge/internal/search"
	"github.com/haricheung/stripsbridge/internal/strips"
	"github.com/haricheung/stripsbridge/internal/upf"
)

// flipProblem: objects a, b of type T; fluent on(x:T); flip(x:T) adds on(x)
// and deletes on(a); initially on(a).
func flipProblem(t *testing.T, goals ...string) *upf.Problem {
	t.Helper()
	typ := upf.UserType("T", nil)
	on := upf.NewFluent("on", upf.BoolType(), upf.NewParameter("x", typ))
	a, b := upf.NewObject("a", typ), upf.NewObject("b", typ)
	x := upf.NewParameter("x", typ)
	flip := upf.NewAction("flip", x)
	flip.AddEffect(upf.FluentExp(on, upf.ParamExp(x)), upf.TRUE())
	flip.AddEffect(upf.FluentExp(on, upf.ObjectExp(a)), upf.FALSE())

	p := upf.NewProblem("toy")
	require.NoError(t, p.AddFluent(on))
	require.NoError(t, p.AddObject(a))
	require.NoError(t, p.AddObject(b))
	require.NoError(t, p.AddAction(flip))
	require.NoError(t, p.SetInitialValue(upf.FluentExp(on, upf.ObjectExp(a)), upf.TRUE()))
	for _, g := range goals {
		o, ok := p.Object(g)
		require.True(t, ok, "no object %s", g)
		p.AddGoal(upf.FluentExp(on, upf.ObjectExp(o)))
	}
	return p
}

// fakeEngine records calls and returns a fixed outcome, or a per-strategy
// one when byStrategy has an entry.
type fakeEngine struct {
	grounds, searches int
	ops               []*search.Operator
	byStrategy        map[search.Strategy][]*search.Operator
	strategies        []search.Strategy
	err               error
}

func (f *fakeEngine) Ground(p *strips.Problem) (*search.Task, error) {
	f.grounds++
	return &search.Task{Name: p.Name}, nil
}

func (f *fakeEngine) Search(ctx context.Context, t *search.Task, strategy search.Strategy, h search.Heuristic) ([]*search.Operator, error) {
	f.searches++
	f.strategies = append(f.strategies, strategy)
	if ops, ok := f.byStrategy[strategy]; ok {
		return ops, f.err
	}
	return f.ops, f.err
}

// memStore is an in-memory PlanStore.
type memStore struct {
	entries   map[string]plancache.Entry
	lookupErr error
	saves     int
}

func newMemStore() *memStore { return &memStore{entries: make(map[string]plancache.Entry)} }

func (m *memStore) Lookup(key string) (plancache.Entry, bool, error) {
	if m.lookupErr != nil {
		return plancache.Entry{}, false, m.lookupErr
	}
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *memStore) Save(key string, e plancache.Entry) error {
	m.saves++
	e.Key = key
	m.entries[key] = e
	return nil
}

func TestSolver_Metadata(t *testing.T) {
	// Name, one-shot flag and Supports follow the Pyperplan planner
	s := New()
	assert.Equal(t, "Pyperplan", s.Name())
	assert.True(t, s.IsOneshotPlanner())
	assert.True(t, s.Supports(upf.NewProblemKind()))
	assert.True(t, s.Supports(upf.NewProblemKind(upf.FeatureFlatTyping)))
	assert.False(t, s.Supports(upf.NewProblemKind(upf.FeatureFlatTyping, upf.FeatureNegativeConditions)))
	assert.False(t, s.Supports(upf.NewProblemKind(upf.FeatureHierarchicalTyping)))
	s.Destroy()
}

func TestFromOptions_RejectsAnyKey(t *testing.T) {
	// Pyperplan takes no options; every key is listed in the error
	s, err := FromOptions(nil)
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = FromOptions(map[string]string{"weight": "2", "heuristic": "hff"})
	require.Error(t, err)
	assert.ErrorIs(t, err, convert.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "heuristic, weight")
}

func TestSolve_FlipRoundTrip(t *testing.T) {
	// The toy problem solves to the single step flip(b)
	p := flipProblem(t, "b")
	plan, err := New().Solve(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.Equal(t, 1, plan.Len())
	step := plan.Actions()[0]
	flip, _ := p.Action("flip")
	b, _ := p.Object("b")
	assert.Same(t, flip, step.Action())
	require.Len(t, step.ActualParameters(), 1)
	assert.Same(t, b, step.ActualParameters()[0].Object())
}

func TestSolve_GoalAlreadyHolds(t *testing.T) {
	// A goal true in the initial state gives an empty, non-nil plan
	plan, err := New().Solve(context.Background(), flipProblem(t, "a"))
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, 0, plan.Len())
}

func TestSolve_NoPlanIsNil(t *testing.T) {
	// An engine that finds nothing yields nil plan and nil error
	eng := &fakeEngine{}
	s := New(WithEngine(eng))
	res, err := s.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Plan)
	assert.NotEmpty(t, res.RunID)

	plan, err := s.Solve(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestSolve_UnsupportedFeatureSkipsEngine(t *testing.T) {
	// Negative goals are rejected before the engine is called
	p := flipProblem(t)
	on := p.Fluent("on")
	a, _ := p.Object("a")
	p.AddGoal(upf.Not(upf.FluentExp(on, upf.ObjectExp(a))))

	eng := &fakeEngine{}
	_, err := New(WithEngine(eng)).Solve(context.Background(), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, convert.ErrUnsupportedFeature)
	assert.Zero(t, eng.grounds)
	assert.Zero(t, eng.searches)
}

func TestSolve_EngineErrorPropagates(t *testing.T) {
	// A search failure fails the solve
	boom := errors.New("boom")
	_, err := New(WithEngine(&fakeEngine{err: boom})).Solve(context.Background(), flipProblem(t, "b"))
	assert.ErrorIs(t, err, boom)
}

func TestSolve_BadEngineLineIsPlanParseError(t *testing.T) {
	// A solution line naming an unknown action fails decoding
	eng := &fakeEngine{ops: []*search.Operator{{Name: "(jump b)"}}}
	_, err := New(WithEngine(eng)).Solve(context.Background(), flipProblem(t, "b"))
	assert.ErrorIs(t, err, convert.ErrPlanParse)
}

func TestSolve_CancelledContext(t *testing.T) {
	// The reference search stops on a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Solve(ctx, flipProblem(t, "b"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolve_GreedyStrategy(t *testing.T) {
	// Greedy best-first with goal counting also reaches the goal
	plan, err := New(WithStrategy(search.GreedyBestFirst, search.GoalCount{})).Solve(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "flip(b)", plan.Actions()[0].String())
}

func TestSolve_CacheHitSkipsEngine(t *testing.T) {
	// The second solve of the same problem is served from the plan store
	store := newMemStore()
	eng := &fakeEngine{ops: []*search.Operator{{Name: "(flip b)"}}}
	s := New(WithEngine(eng), WithPlanStore(store))

	first, err := s.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 1, store.saves)

	second, err := s.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, eng.searches)
	require.NotNil(t, second.Plan)
	assert.Equal(t, []string{"(flip b)"}, second.Lines)
	assert.NotSame(t, first.Plan.Actions()[0].Action(), second.Plan.Actions()[0].Action(),
		"cached lines are decoded against the live problem")
}

func TestSolve_CacheKeyedBySearch(t *testing.T) {
	// A plan found by greedy search is not served to a breadth-first solve
	store := newMemStore()
	eng := &fakeEngine{byStrategy: map[search.Strategy][]*search.Operator{
		search.GreedyBestFirst: {{Name: "(flip a)"}, {Name: "(flip b)"}},
		search.BreadthFirst:    {{Name: "(flip b)"}},
	}}

	greedy := New(WithEngine(eng), WithPlanStore(store), WithStrategy(search.GreedyBestFirst, search.GoalCount{}))
	g, err := greedy.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.Len(t, g.Lines, 2)

	bfs := New(WithEngine(eng), WithPlanStore(store))
	b, err := bfs.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.False(t, b.CacheHit)
	assert.Equal(t, []string{"(flip b)"}, b.Lines)
	assert.Equal(t, []search.Strategy{search.GreedyBestFirst, search.BreadthFirst}, eng.strategies)
	assert.Len(t, store.entries, 2)

	again, err := bfs.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
	assert.Equal(t, []string{"(flip b)"}, again.Lines)
}

func TestSolve_CachesUnsolvable(t *testing.T) {
	// A proven unsolvable task is cached too
	store := newMemStore()
	eng := &fakeEngine{}
	s := New(WithEngine(eng), WithPlanStore(store))
	for i := 0; i < 2; i++ {
		res, err := s.SolveResult(context.Background(), flipProblem(t, "b"))
		require.NoError(t, err)
		assert.False(t, res.Found)
	}
	assert.Equal(t, 1, eng.searches)
}

func TestSolve_CacheLookupFailureContinues(t *testing.T) {
	// A broken plan store does not fail the solve
	store := newMemStore()
	store.lookupErr = errors.New("disk gone")
	plan, err := New(WithPlanStore(store)).Solve(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	require.NotNil(t, plan)
}

func TestSolve_LevelDBCache(t *testing.T) {
	// The LevelDB store works as a PlanStore end to end
	store, err := plancache.Open(filepath.Join(t.TempDir(), "plans"))
	require.NoError(t, err)
	defer store.Close()

	s := New(WithPlanStore(store))
	_, err = s.Solve(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	res, err := s.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.True(t, res.CacheHit)

	entries, err := store.Entries("toy")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"(flip b)"}, entries[0].Lines)
}

func TestSolve_Spans(t *testing.T) {
	// Each stage gets a child span of solver.Solve; failures mark the span
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	s := New(WithTracer(tp.Tracer("test-solver")))

	_, err := s.Solve(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	names := make([]string, len(spans))
	for i, sp := range spans {
		names[i] = sp.Name
	}
	assert.Equal(t, []string{"convert.domain", "convert.problem", "engine.ground", "engine.search", "decode", "solver.Solve"}, names)
	root := spans[len(spans)-1]
	for _, sp := range spans[:len(spans)-1] {
		assert.Equal(t, root.SpanContext.SpanID(), sp.Parent.SpanID(), sp.Name)
	}
	assert.Equal(t, codes.Ok, root.Status.Code)

	exporter.Reset()
	p := flipProblem(t)
	p.AddGoal(upf.Or())
	_, err = s.Solve(context.Background(), p)
	require.Error(t, err)
	spans = exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "convert.domain", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.NotEmpty(t, spans[1].Events, "error recorded as span event")
}

func TestSolve_RunLog(t *testing.T) {
	// A solve writes begin, stage and end events to its run log
	dir := t.TempDir()
	reg := runlog.NewRegistry(dir)
	res, err := New(WithRunLog(reg)).SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, res.RunID+".jsonl"))
	require.NoError(t, err)
	defer f.Close()
	var kinds []runlog.EventKind
	var last runlog.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e runlog.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		kinds = append(kinds, e.Kind)
		last = e
	}
	assert.Equal(t, []runlog.EventKind{
		runlog.KindSolveBegin, runlog.KindDomainConverted, runlog.KindProblemConverted,
		runlog.KindGrounded, runlog.KindSearchEnd, runlog.KindSolveEnd,
	}, kinds)
	assert.Equal(t, StatusSolved, last.Status)

	require.NotEmpty(t, res.Stages)
	assert.Equal(t, runlog.StageDomain, res.Stages[0].Stage)
	assert.Nil(t, reg.GetStats(res.RunID), "stats are handed to the result, not retained")
}

func TestSolve_RunLogRetainsNothing(t *testing.T) {
	// Repeated solves, failed or not, leave no stats behind in the registry
	reg := runlog.NewRegistry(t.TempDir())
	s := New(WithRunLog(reg))
	var ids []string
	for i := 0; i < 3; i++ {
		res, err := s.SolveResult(context.Background(), flipProblem(t, "b"))
		require.NoError(t, err)
		assert.NotEmpty(t, res.Stages)
		ids = append(ids, res.RunID)
	}
	p := flipProblem(t)
	p.AddGoal(upf.Or())
	_, err := s.SolveResult(context.Background(), p)
	require.Error(t, err)

	for _, id := range ids {
		assert.Nil(t, reg.GetStats(id), id)
	}
}

func TestSolve_NoRunLogNoStages(t *testing.T) {
	// Without a run log the result carries no stage timings
	res, err := New().SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.Nil(t, res.Stages)
}

func TestSolve_FreshConversionPerCall(t *testing.T) {
	// Sequential solves do not share converted domains
	s := New()
	r1, err := s.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	r2, err := s.SolveResult(context.Background(), flipProblem(t, "b"))
	require.NoError(t, err)
	assert.NotSame(t, r1.Domain, r2.Domain)
	assert.NotEqual(t, r1.RunID, r2.RunID)
}
