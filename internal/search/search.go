package search

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
)

// Strategy selects the order in which states are expanded.
type Strategy int

const (
	BreadthFirst Strategy = iota
	GreedyBestFirst
)

func (s Strategy) String() string {
	switch s {
	case BreadthFirst:
		return "bfs"
	case GreedyBestFirst:
		return "gbf"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Heuristic estimates the distance from a state to the goal.
type Heuristic interface {
	Estimate(t *Task, s State) int
}

// GoalCount counts the goal facts not yet true.
type GoalCount struct{}

func (GoalCount) Estimate(t *Task, s State) int {
	n := 0
	for _, g := range t.Goals {
		if !s.Has(g) {
			n++
		}
	}
	return n
}

type node struct {
	state  State
	parent *node
	op     *Operator
	depth  int
}

func (n *node) plan() []*Operator {
	out := make([]*Operator, n.depth)
	for cur := n; cur.parent != nil; cur = cur.parent {
		out[cur.depth-1] = cur.op
	}
	return out
}

// Search looks for a sequence of operators leading from t.Initial to a state
// satisfying every goal.
//
// Expectations:
//   - returns a nil slice and nil error when the reachable state space holds no goal state
//   - returns an empty, non-nil slice when the initial state already satisfies the goals
//   - BreadthFirst ignores h and returns a shortest plan
//   - GreedyBestFirst requires h
//   - returns ctx.Err() when ctx is cancelled between expansions
func Search(ctx context.Context, t *Task, strategy Strategy, h Heuristic) ([]*Operator, error) {
	var (
		plan     []*Operator
		expanded int
		err      error
	)
	switch strategy {
	case BreadthFirst:
		plan, expanded, err = breadthFirst(ctx, t)
	case GreedyBestFirst:
		if h == nil {
			return nil, fmt.Errorf("search %s: %s needs a heuristic", t.Name, strategy)
		}
		plan, expanded, err = greedyBestFirst(ctx, t, h)
	default:
		return nil, fmt.Errorf("search %s: unknown %s", t.Name, strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", t.Name, err)
	}
	if plan == nil {
		slog.Info("[SEARCH] no solution", "task", t.Name, "strategy", strategy.String(), "expanded", expanded)
		return nil, nil
	}
	slog.Info("[SEARCH] solution found", "task", t.Name, "strategy", strategy.String(),
		"expanded", expanded, "length", len(plan))
	return plan, nil
}

func breadthFirst(ctx context.Context, t *Task) ([]*Operator, int, error) {
	root := &node{state: t.Initial}
	queue := []*node{root}
	closed := map[string]bool{t.Initial.Key(): true}
	expanded := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, expanded, err
		}
		cur := queue[0]
		queue = queue[1:]
		if t.GoalReached(cur.state) {
			return cur.plan(), expanded, nil
		}
		expanded++
		for _, op := range t.Operators {
			if !op.Applicable(cur.state) {
				continue
			}
			next := op.Apply(cur.state)
			key := next.Key()
			if closed[key] {
				continue
			}
			closed[key] = true
			queue = append(queue, &node{state: next, parent: cur, op: op, depth: cur.depth + 1})
		}
	}
	return nil, expanded, nil
}

type entry struct {
	n     *node
	h     int
	order int
}

type openList []entry

func (o openList) Len() int { return len(o) }
func (o openList) Less(i, j int) bool {
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].order < o[j].order
}
func (o openList) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openList) Push(x any)   { *o = append(*o, x.(entry)) }
func (o *openList) Pop() any {
	old := *o
	e := old[len(old)-1]
	*o = old[:len(old)-1]
	return e
}

func greedyBestFirst(ctx context.Context, t *Task, h Heuristic) ([]*Operator, int, error) {
	open := &openList{{n: &node{state: t.Initial}, h: h.Estimate(t, t.Initial)}}
	closed := map[string]bool{t.Initial.Key(): true}
	expanded, order := 0, 1
	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, expanded, err
		}
		cur := heap.Pop(open).(entry).n
		if t.GoalReached(cur.state) {
			return cur.plan(), expanded, nil
		}
		expanded++
		for _, op := range t.Operators {
			if !op.Applicable(cur.state) {
				continue
			}
			next := op.Apply(cur.state)
			key := next.Key()
			if closed[key] {
				continue
			}
			closed[key] = true
			heap.Push(open, entry{
				n:     &node{state: next, parent: cur, op: op, depth: cur.depth + 1},
				h:     h.Estimate(t, next),
				order: order,
			})
			order++
		}
	}
	return nil, expanded, nil
}
