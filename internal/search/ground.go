package search

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/haricheung/stripsbridge/internal/strips"
)

// Ground instantiates every action of p.Domain with every type-compatible
// assignment of objects.
//
// Expectations:
//   - an object can fill a parameter slot when its type is the slot type or a descendant
//   - predicates no action adds or deletes are static; assignments falsifying a
//     static precondition are pruned and static preconditions are dropped
//   - operators are ordered by action name, then by assignment in object-name order
func Ground(p *strips.Problem) (*Task, error) {
	if p == nil || p.Domain == nil {
		return nil, fmt.Errorf("ground: problem has no domain")
	}
	initial := NewState()
	for _, pred := range p.Initial {
		fact, err := groundLiteral(pred, nil)
		if err != nil {
			return nil, fmt.Errorf("ground %s: initial state: %w", p.Name, err)
		}
		initial[fact] = struct{}{}
	}
	goals := make([]string, 0, len(p.Goal))
	for _, pred := range p.Goal {
		fact, err := groundLiteral(pred, nil)
		if err != nil {
			return nil, fmt.Errorf("ground %s: goal: %w", p.Name, err)
		}
		goals = append(goals, fact)
	}

	fluent := make(map[string]bool)
	for _, a := range p.Domain.Actions {
		for _, pred := range a.Effect.AddList.Sorted() {
			fluent[pred.Name] = true
		}
		for _, pred := range a.Effect.DelList.Sorted() {
			fluent[pred.Name] = true
		}
	}

	objectNames := sortedNames(p.Objects)
	var ops []*Operator
	for _, name := range sortedNames(p.Domain.Actions) {
		a := p.Domain.Actions[name]
		candidates := make([][]string, len(a.Signature))
		for i, slot := range a.Signature {
			for _, o := range objectNames {
				if p.Objects[o].IsSubtypeOf(slot.Type) {
					candidates[i] = append(candidates[i], o)
				}
			}
		}
		err := assignments(candidates, func(args []string) error {
			binding := make(map[string]string, len(args))
			for i, slot := range a.Signature {
				binding[slot.Name] = args[i]
			}
			op, ok, err := groundAction(a, args, binding, fluent, initial)
			if err != nil {
				return err
			}
			if ok {
				ops = append(ops, op)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("ground %s: action %s: %w", p.Name, name, err)
		}
	}

	task := &Task{
		Name:      p.Name,
		Facts:     collectFacts(initial, goals, ops),
		Initial:   initial,
		Goals:     goals,
		Operators: ops,
	}
	slog.Debug("[SEARCH] grounded", "task", p.Name, "facts", len(task.Facts), "operators", len(ops))
	return task, nil
}

func groundAction(a *strips.Action, args []string, binding map[string]string, fluent map[string]bool, initial State) (*Operator, bool, error) {
	op := &Operator{Name: "(" + strings.Join(append([]string{a.Name}, args...), " ") + ")"}
	for _, pred := range a.Precondition {
		fact, err := groundLiteral(pred, binding)
		if err != nil {
			return nil, false, err
		}
		if !fluent[pred.Name] {
			if !initial.Has(fact) {
				return nil, false, nil
			}
			continue
		}
		op.Preconditions = append(op.Preconditions, fact)
	}
	var err error
	if op.AddEffects, err = groundAll(a.Effect.AddList.Sorted(), binding); err != nil {
		return nil, false, err
	}
	if op.DelEffects, err = groundAll(a.Effect.DelList.Sorted(), binding); err != nil {
		return nil, false, err
	}
	return op, true, nil
}

func groundAll(preds []*strips.Predicate, binding map[string]string) ([]string, error) {
	out := make([]string, 0, len(preds))
	for _, pred := range preds {
		fact, err := groundLiteral(pred, binding)
		if err != nil {
			return nil, err
		}
		out = append(out, fact)
	}
	return out, nil
}

// groundLiteral renders pred with variables replaced by their binding.
func groundLiteral(pred *strips.Predicate, binding map[string]string) (string, error) {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(pred.Name)
	for _, t := range pred.Signature {
		sb.WriteByte(' ')
		if !t.Variable {
			sb.WriteString(t.Name)
			continue
		}
		v, ok := binding[t.Name]
		if !ok {
			return "", fmt.Errorf("unbound variable ?%s in %s", t.Name, pred)
		}
		sb.WriteString(v)
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

// assignments calls fn with every element of the cartesian product of
// candidates, leftmost slot varying slowest. An empty slot list yields one
// empty assignment; an empty candidate list yields none.
func assignments(candidates [][]string, fn func([]string) error) error {
	for _, c := range candidates {
		if len(c) == 0 {
			return nil
		}
	}
	idx := make([]int, len(candidates))
	args := make([]string, len(candidates))
	for {
		for i, j := range idx {
			args[i] = candidates[i][j]
		}
		if err := fn(append([]string(nil), args...)); err != nil {
			return err
		}
		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(candidates[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return nil
		}
	}
}

func collectFacts(initial State, goals []string, ops []*Operator) []string {
	all := make(State, len(initial))
	for f := range initial {
		all[f] = struct{}{}
	}
	add := func(facts []string) {
		for _, f := range facts {
			all[f] = struct{}{}
		}
	}
	add(goals)
	for _, op := range ops {
		add(op.Preconditions)
		add(op.AddEffects)
		add(op.DelEffects)
	}
	facts := make([]string, 0, len(all))
	for f := range all {
		facts = append(facts, f)
	}
	sort.Strings(facts)
	return facts
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
