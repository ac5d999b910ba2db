package strips

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flipDomain() (*Domain, *Type) {
	root := NewType(RootTypeName, nil)
	block := NewType("T", root)
	x := Term{Name: "x", Type: block, Variable: true}
	eff := NewEffect()
	eff.AddList.Add(NewPredicate("on", x))
	eff.DelList.Add(NewPredicate("on", Term{Name: "a", Type: block}))
	return &Domain{
		Name:       "domain_toy",
		Types:      []*Type{root, block},
		Predicates: map[string]*Predicate{"on": NewPredicate("on", Term{Name: "a_0", Type: block, Variable: true})},
		Actions: map[string]*Action{"flip": {
			Name:      "flip",
			Signature: []Term{x},
			Effect:    eff,
		}},
	}, block
}

func TestType_IsSubtypeOf(t *testing.T) {
	// Subtyping is reflexive and follows parent links only upward
	root := NewType(RootTypeName, nil)
	vehicle := NewType("vehicle", root)
	truck := NewType("truck", vehicle)
	assert.True(t, truck.IsSubtypeOf(truck))
	assert.True(t, truck.IsSubtypeOf(root))
	assert.False(t, vehicle.IsSubtypeOf(truck))
}

func TestPredicateSet_DeduplicatesByKey(t *testing.T) {
	// Two literals with the same name and argument names are one member
	typ := NewType("T", nil)
	s := NewPredicateSet()
	assert.True(t, s.Add(NewPredicate("on", Term{Name: "x", Type: typ, Variable: true})))
	assert.False(t, s.Add(NewPredicate("on", Term{Name: "x", Type: typ, Variable: true})))
	assert.True(t, s.Add(NewPredicate("on", Term{Name: "x", Type: typ})))
	assert.Equal(t, 2, s.Len())
}

func TestPredicateSet_Intersect(t *testing.T) {
	// Intersect returns the shared members in key order
	a := NewPredicateSet(NewPredicate("p", Term{Name: "b"}), NewPredicate("p", Term{Name: "a"}))
	b := NewPredicateSet(NewPredicate("p", Term{Name: "a"}), NewPredicate("q"))
	got := a.Intersect(b)
	require.Len(t, got, 1)
	assert.Equal(t, "(p a)", got[0].String())
}

func TestFormula_IsLiteral(t *testing.T) {
	// Atoms over terms are literals; connectives and nested atoms are not
	x := NewFormula("x", nil, KindVariable)
	atom := NewFormula("on", []*Formula{x}, KindAtom)
	assert.True(t, atom.IsLiteral())
	assert.False(t, NewFormula(KeyAnd, []*Formula{atom}, KindConnective).IsLiteral())
	assert.False(t, NewFormula("on", []*Formula{atom}, KindAtom).IsLiteral())
	assert.Equal(t, "(and (on ?x))", NewFormula(KeyAnd, []*Formula{atom}, KindConnective).String())
}

func TestDomain_PDDL(t *testing.T) {
	// The domain renders types, typed predicates and add/delete effects
	d, _ := flipDomain()
	got := d.PDDL()
	assert.Contains(t, got, "(define (domain domain_toy)")
	assert.Contains(t, got, "(:types T - object)")
	assert.Contains(t, got, "(on ?a_0 - T)")
	assert.Contains(t, got, ":parameters (?x - T)")
	assert.Contains(t, got, ":effect (and (on ?x) (not (on a))))")
}

func TestProblem_PDDL(t *testing.T) {
	// The problem renders objects, init and goal in stable order
	d, block := flipDomain()
	p := &Problem{
		Name:    "toy",
		Domain:  d,
		Objects: map[string]*Type{"b": block, "a": block},
		Initial: []*Predicate{NewPredicate("on", Term{Name: "a", Type: block})},
		Goal:    []*Predicate{NewPredicate("on", Term{Name: "b", Type: block})},
	}
	got := p.PDDL()
	assert.Contains(t, got, "(:objects a - T b - T)")
	assert.Contains(t, got, "(:init (on a))")
	assert.Contains(t, got, "(:goal (and (on b))))")
	assert.Equal(t, block, d.Type("T"))
	assert.Nil(t, d.Type("missing"))
}
