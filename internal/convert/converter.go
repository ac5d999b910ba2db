// Package convert translates a upf problem into the typed STRIPS domain and
// problem the Pyperplan search consumes.
//
// One Converter run is Domain followed by Problem on the same source problem.
// The type registry and expression cache live for exactly that run: Domain
// starts a fresh run, so a Converter can be reused sequentially but must not be
// shared between goroutines.
package convert

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/haricheung/stripsbridge/internal/strips"
	"github.com/haricheung/stripsbridge/internal/upf"
)

// ErrForeignDomain is returned by Problem when the domain was not produced by
// the converter's current run.
var ErrForeignDomain = errors.New("domain was not produced by this conversion run")

// unsupported lists the features the planner rejects, in screening order.
var unsupported = []struct {
	feature upf.Feature
	what    string
}{
	{upf.FeatureNegativeConditions, "negative preconditions or negative goals"},
	{upf.FeatureDisjunctiveConditions, "disjunctive conditions"},
	{upf.FeatureEquality, "an equality symbol"},
	{upf.FeatureContinuousNumbers, "continuous numbers"},
	{upf.FeatureDiscreteNumbers, "discrete numbers"},
	{upf.FeatureConditionalEffects, "conditional effects"},
}

// Screen fails with an UnsupportedFeature error for the first feature of p the
// planner cannot express.
func Screen(p *upf.Problem) error {
	kind := p.Kind()
	for _, u := range unsupported {
		if kind.Has(u.feature) {
			return UnsupportedFeature(p.Name(), u.feature, "problem contains %s; Pyperplan does not support that", u.what)
		}
	}
	return nil
}

// Converter runs the Domain then Problem conversion of one source problem.
type Converter struct {
	registry *TypeRegistry
	exprs    *ExpressionConverter
	problem  *upf.Problem
	domain   *strips.Domain
}

func NewConverter() *Converter { return &Converter{} }

// Registry is the type registry of the current run; nil before Domain.
func (c *Converter) Registry() *TypeRegistry { return c.registry }

// Expressions is the expression converter of the current run; nil before Domain.
func (c *Converter) Expressions() *ExpressionConverter { return c.exprs }

// Domain screens p, then converts its types, fluents and actions. No partial
// domain is returned on failure.
func (c *Converter) Domain(p *upf.Problem) (*strips.Domain, error) {
	c.problem, c.domain = nil, nil
	if err := Screen(p); err != nil {
		return nil, err
	}
	c.registry = NewTypeRegistry()
	c.exprs = NewExpressionConverter(p.Name())
	c.problem = p

	for _, t := range p.UserTypes() {
		if _, err := c.resolveType(t); err != nil {
			return nil, err
		}
	}

	predicates := make(map[string]*strips.Predicate, len(p.Fluents()))
	for _, f := range p.Fluents() {
		pred, err := c.predicate(f)
		if err != nil {
			return nil, err
		}
		predicates[f.Name()] = pred
	}

	actions := make(map[string]*strips.Action, len(p.Actions()))
	for _, a := range p.Actions() {
		sa, err := c.action(a)
		if err != nil {
			return nil, err
		}
		actions[a.Name()] = sa
	}

	d := &strips.Domain{
		Name:       "domain_" + p.Name(),
		Types:      c.registry.Types(),
		Predicates: predicates,
		Actions:    actions,
	}
	c.domain = d
	slog.Debug("[CONVERT] domain converted", "problem", p.Name(),
		"types", len(d.Types), "predicates", len(predicates), "actions", len(actions),
		"expr_nodes", c.exprs.Conversions())
	return d, nil
}

// Problem converts the objects, initial state and goals of p against a domain
// produced by the preceding Domain call on the same problem.
func (c *Converter) Problem(d *strips.Domain, p *upf.Problem) (*strips.Problem, error) {
	if c.domain == nil || d != c.domain || p != c.problem {
		return nil, fmt.Errorf("convert problem %q: %w", p.Name(), ErrForeignDomain)
	}

	objects := make(map[string]*strips.Type, len(p.AllObjects()))
	for _, o := range p.AllObjects() {
		t, err := c.resolveType(o.Type())
		if err != nil {
			return nil, err
		}
		objects[o.Name()] = t
	}

	var initial []*strips.Predicate
	for _, iv := range p.InitialValues() {
		subject := "initial value of " + iv.Fluent.String()
		if !iv.Value.IsBoolConstant() {
			return nil, UnsupportedExpressionShape(p.Name(), subject,
				"value %s is not true or false", iv.Value)
		}
		if !iv.Value.BoolConstantValue() {
			continue
		}
		preds, err := c.conditions([]*upf.FNode{iv.Fluent}, nil, subject, "fact")
		if err != nil {
			return nil, err
		}
		initial = append(initial, preds...)
	}

	goal, err := c.conditions(p.Goals(), nil, "goals", "goal")
	if err != nil {
		return nil, err
	}

	sp := &strips.Problem{
		Name:    p.Name(),
		Domain:  d,
		Objects: objects,
		Initial: initial,
		Goal:    goal,
	}
	slog.Debug("[CONVERT] problem converted", "problem", p.Name(),
		"objects", len(objects), "init", len(initial), "goal", len(goal))
	return sp, nil
}

// resolveType resolves t after its ancestors, so declaration order of the
// source types does not matter.
func (c *Converter) resolveType(t *upf.Type) (*strips.Type, error) {
	if !t.IsUserType() {
		return nil, newError(KindUnsupportedFeature, c.problem.Name(), "type "+t.Name(),
			"only user types can type objects and parameters")
	}
	var chain []*upf.Type
	for cur := t; cur != nil; cur = cur.Father() {
		if _, ok := c.registry.Lookup(cur.Name()); ok {
			break
		}
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		parent := ""
		if f := chain[i].Father(); f != nil {
			parent = f.Name()
		}
		if _, err := c.registry.Resolve(chain[i].Name(), parent); err != nil {
			return nil, err
		}
	}
	st, _ := c.registry.Lookup(t.Name())
	return st, nil
}

func (c *Converter) predicate(f *upf.Fluent) (*strips.Predicate, error) {
	if !f.Type().IsBoolType() {
		feature := upf.FeatureDiscreteNumbers
		if f.Type().Kind() == upf.KindReal {
			feature = upf.FeatureContinuousNumbers
		}
		return nil, UnsupportedFeature(c.problem.Name(), feature, "fluent %s is not Boolean", f.Name())
	}
	sig := make([]strips.Term, f.Arity())
	for i, param := range f.Signature() {
		t, err := c.resolveType(param.Type())
		if err != nil {
			return nil, err
		}
		sig[i] = strips.Term{Name: fmt.Sprintf("a_%d", i), Type: t, Variable: true}
	}
	return strips.NewPredicate(f.Name(), sig...), nil
}

func (c *Converter) action(a *upf.Action) (*strips.Action, error) {
	subject := "action " + a.Name()
	params := make(map[string]strips.Term, len(a.Parameters()))
	sig := make([]strips.Term, len(a.Parameters()))
	for i, p := range a.Parameters() {
		t, err := c.resolveType(p.Type())
		if err != nil {
			return nil, err
		}
		sig[i] = strips.Term{Name: p.Name(), Type: t, Variable: true}
		params[p.Name()] = sig[i]
	}

	pre, err := c.conditions(a.Preconditions(), params, subject, "precondition")
	if err != nil {
		return nil, err
	}

	eff := strips.NewEffect()
	for _, e := range a.Effects() {
		if e.IsConditional() {
			return nil, MalformedEffect(c.problem.Name(), subject, "effect %s is conditional", e)
		}
		if !e.Value().IsBoolConstant() {
			return nil, MalformedEffect(c.problem.Name(), subject, "value of effect %s is not true or false", e)
		}
		f, err := c.exprs.ConvertEffect(e.Fluent())
		if err != nil {
			return nil, err
		}
		lits, bad := flattenConjunction(f)
		if bad != nil || len(lits) != 1 {
			return nil, MalformedEffect(c.problem.Name(), subject, "effect target %s is not a fluent application", e.Fluent())
		}
		pred, err := c.literal(lits[0], params, subject)
		if err != nil {
			return nil, err
		}
		if e.Value().BoolConstantValue() {
			eff.AddList.Add(pred)
		} else {
			eff.DelList.Add(pred)
		}
	}
	if both := eff.AddList.Intersect(eff.DelList); len(both) > 0 {
		return nil, MalformedEffect(c.problem.Name(), subject, "%s is both added and deleted", both[0]).
			WithContext("literal", both[0].String())
	}

	return &strips.Action{
		Name:         a.Name(),
		Signature:    sig,
		Precondition: pre,
		Effect:       eff,
	}, nil
}

// conditions converts each expression as a precondition and flattens the
// conjunction into literals. params nil means only objects may appear.
func (c *Converter) conditions(exprs []*upf.FNode, params map[string]strips.Term, subject, what string) ([]*strips.Predicate, error) {
	var out []*strips.Predicate
	for _, e := range exprs {
		f, err := c.exprs.ConvertPrecondition(e)
		if err != nil {
			var ce *Error
			if errors.As(err, &ce) {
				ce.WithContext("in", subject)
			}
			return nil, err
		}
		lits, bad := flattenConjunction(f)
		if bad != nil {
			return nil, UnsupportedExpressionShape(c.problem.Name(), subject,
				"%s %s is not an AND of fluents: found %s", what, e, bad)
		}
		for _, lit := range lits {
			pred, err := c.literal(lit, params, subject)
			if err != nil {
				return nil, err
			}
			out = append(out, pred)
		}
	}
	return out, nil
}

// literal binds the terms of an atom: variables to action parameters, constants
// to problem objects.
func (c *Converter) literal(f *strips.Formula, params map[string]strips.Term, subject string) (*strips.Predicate, error) {
	terms := make([]strips.Term, len(f.Args))
	for i, a := range f.Args {
		switch a.Kind {
		case strips.KindVariable:
			t, ok := params[a.Key]
			if !ok {
				return nil, UnsupportedExpressionShape(c.problem.Name(), subject,
					"%s refers to %s, which is not a parameter here", f, a)
			}
			terms[i] = t
		case strips.KindConstant:
			o, ok := c.problem.Object(a.Key)
			if !ok {
				return nil, UnsupportedExpressionShape(c.problem.Name(), subject,
					"%s refers to unknown object %s", f, a.Key)
			}
			t, err := c.resolveType(o.Type())
			if err != nil {
				return nil, err
			}
			terms[i] = strips.Term{Name: o.Name(), Type: t}
		}
	}
	return strips.NewPredicate(f.Key, terms...), nil
}
