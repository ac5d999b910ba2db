// Package search grounds a typed STRIPS problem into a propositional task and
// searches it for a plan. It stands in for the Pyperplan planner: solution
// lines are operator names of the form "(action obj1 obj2)".
package search

import (
	"sort"
	"strings"
)

// State is a set of ground facts. Facts absent from the set are false.
type State map[string]struct{}

// NewState builds a state holding facts.
func NewState(facts ...string) State {
	s := make(State, len(facts))
	for _, f := range facts {
		s[f] = struct{}{}
	}
	return s
}

func (s State) Has(fact string) bool {
	_, ok := s[fact]
	return ok
}

// Key is a canonical rendering of the state used for duplicate detection.
func (s State) Key() string {
	facts := make([]string, 0, len(s))
	for f := range s {
		facts = append(facts, f)
	}
	sort.Strings(facts)
	return strings.Join(facts, "\x00")
}

// Operator is a ground action.
type Operator struct {
	Name          string
	Preconditions []string
	AddEffects    []string
	DelEffects    []string
}

// Applicable reports whether every precondition holds in state.
func (o *Operator) Applicable(state State) bool {
	for _, p := range o.Preconditions {
		if !state.Has(p) {
			return false
		}
	}
	return true
}

// Apply returns the successor of state: delete effects are removed first, then
// add effects inserted, so an operator that both deletes and adds a fact keeps it.
func (o *Operator) Apply(state State) State {
	next := make(State, len(state)+len(o.AddEffects))
	for f := range state {
		next[f] = struct{}{}
	}
	for _, f := range o.DelEffects {
		delete(next, f)
	}
	for _, f := range o.AddEffects {
		next[f] = struct{}{}
	}
	return next
}

func (o *Operator) String() string { return o.Name }

// Task is a grounded planning task.
type Task struct {
	Name      string
	Facts     []string
	Initial   State
	Goals     []string
	Operators []*Operator
}

// GoalReached reports whether every goal fact holds in state.
func (t *Task) GoalReached(state State) bool {
	for _, g := range t.Goals {
		if !state.Has(g) {
			return false
		}
	}
	return true
}
