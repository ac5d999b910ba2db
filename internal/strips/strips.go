// Package strips holds the restricted planning representation the Pyperplan
// search consumes: typed STRIPS domains with conjunctive positive
// preconditions and add/delete effects, plus grounded problems over them.
package strips

import (
	"sort"
	"strings"
)

// RootTypeName is the implicit root of every type hierarchy.
const RootTypeName = "object"

// Type is a node of a single-inheritance type hierarchy.
type Type struct {
	Name   string
	Parent *Type
}

func NewType(name string, parent *Type) *Type {
	return &Type{Name: name, Parent: parent}
}

// IsSubtypeOf reports whether t equals other or descends from it.
func (t *Type) IsSubtypeOf(other *Type) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

func (t *Type) String() string { return t.Name }

// Term is one argument slot of a predicate: a variable bound to an action
// parameter, or a constant naming an object.
type Term struct {
	Name     string
	Type     *Type
	Variable bool
}

func (t Term) String() string {
	if t.Variable {
		return "?" + t.Name
	}
	return t.Name
}

// Predicate is a predicate schema, or a literal of one when its terms are
// action variables or objects.
type Predicate struct {
	Name      string
	Signature []Term
}

func NewPredicate(name string, signature ...Term) *Predicate {
	return &Predicate{Name: name, Signature: signature}
}

func (p *Predicate) Arity() int { return len(p.Signature) }

// Key identifies the literal by name and argument names; types do not take part.
func (p *Predicate) Key() string {
	return p.String()
}

// String renders the literal in PDDL form, e.g. "(on ?x b)".
func (p *Predicate) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(p.Name)
	for _, t := range p.Signature {
		sb.WriteByte(' ')
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// PredicateSet is a set of literals keyed by Key. Iteration order is not part
// of the contract; Sorted gives a stable view.
type PredicateSet struct {
	items map[string]*Predicate
}

func NewPredicateSet(preds ...*Predicate) *PredicateSet {
	s := &PredicateSet{items: make(map[string]*Predicate)}
	for _, p := range preds {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was not already present.
func (s *PredicateSet) Add(p *Predicate) bool {
	k := p.Key()
	if _, ok := s.items[k]; ok {
		return false
	}
	s.items[k] = p
	return true
}

func (s *PredicateSet) Has(p *Predicate) bool {
	_, ok := s.items[p.Key()]
	return ok
}

func (s *PredicateSet) Len() int { return len(s.items) }

// Sorted returns the members ordered by Key.
func (s *PredicateSet) Sorted() []*Predicate {
	out := make([]*Predicate, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Intersect returns the members of s also present in other, sorted.
func (s *PredicateSet) Intersect(other *PredicateSet) []*Predicate {
	var out []*Predicate
	for _, p := range s.Sorted() {
		if other.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Effect is a STRIPS add/delete pair.
type Effect struct {
	AddList *PredicateSet
	DelList *PredicateSet
}

func NewEffect() *Effect {
	return &Effect{AddList: NewPredicateSet(), DelList: NewPredicateSet()}
}

// Action is a lifted STRIPS operator.
type Action struct {
	Name         string
	Signature    []Term
	Precondition []*Predicate
	Effect       *Effect
}

// Domain is the typed schema level of a planning task.
type Domain struct {
	Name       string
	Types      []*Type
	Predicates map[string]*Predicate
	Actions    map[string]*Action
}

// Type returns the type called name, or nil.
func (d *Domain) Type(name string) *Type {
	for _, t := range d.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Problem is a ground instance over a Domain under the closed-world assumption:
// facts absent from Initial are false.
type Problem struct {
	Name    string
	Domain  *Domain
	Objects map[string]*Type
	Initial []*Predicate
	Goal    []*Predicate
}
