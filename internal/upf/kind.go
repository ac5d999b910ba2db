package upf

import (
	"sort"
	"strings"
)

// Feature names an optional modelling capability a problem may use.
type Feature string

const (
	FeatureFlatTyping            Feature = "FLAT_TYPING"
	FeatureHierarchicalTyping    Feature = "HIERARCHICAL_TYPING"
	FeatureNegativeConditions    Feature = "NEGATIVE_CONDITIONS"
	FeatureDisjunctiveConditions Feature = "DISJUNCTIVE_CONDITIONS"
	FeatureEquality              Feature = "EQUALITY"
	FeatureExistentialConditions Feature = "EXISTENTIAL_CONDITIONS"
	FeatureUniversalConditions   Feature = "UNIVERSAL_CONDITIONS"
	FeatureContinuousNumbers     Feature = "CONTINUOUS_NUMBERS"
	FeatureDiscreteNumbers       Feature = "DISCRETE_NUMBERS"
	FeatureConditionalEffects    Feature = "CONDITIONAL_EFFECTS"
)

// ProblemKind is the set of features a problem uses. The zero value is the
// empty set and is ready to use.
type ProblemKind struct {
	features map[Feature]bool
}

// NewProblemKind returns a kind holding exactly the given features.
func NewProblemKind(features ...Feature) ProblemKind {
	var k ProblemKind
	for _, f := range features {
		k.Set(f)
	}
	return k
}

func (k *ProblemKind) Set(f Feature) {
	if k.features == nil {
		k.features = make(map[Feature]bool)
	}
	k.features[f] = true
}

func (k ProblemKind) Has(f Feature) bool { return k.features[f] }

func (k ProblemKind) HasNegativeConditions() bool    { return k.Has(FeatureNegativeConditions) }
func (k ProblemKind) HasDisjunctiveConditions() bool { return k.Has(FeatureDisjunctiveConditions) }
func (k ProblemKind) HasEquality() bool              { return k.Has(FeatureEquality) }
func (k ProblemKind) HasContinuousNumbers() bool     { return k.Has(FeatureContinuousNumbers) }
func (k ProblemKind) HasDiscreteNumbers() bool       { return k.Has(FeatureDiscreteNumbers) }
func (k ProblemKind) HasConditionalEffects() bool    { return k.Has(FeatureConditionalEffects) }

// Features returns the set members in sorted order.
func (k ProblemKind) Features() []Feature {
	out := make([]Feature, 0, len(k.features))
	for f, on := range k.features {
		if on {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSubsetOf reports whether every feature of k is also in other.
func (k ProblemKind) IsSubsetOf(other ProblemKind) bool {
	for f, on := range k.features {
		if on && !other.Has(f) {
			return false
		}
	}
	return true
}

func (k ProblemKind) String() string {
	fs := k.Features()
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// kindOf derives the feature set from the problem content.
func kindOf(p *Problem) ProblemKind {
	var k ProblemKind
	for _, t := range p.userTypes {
		if t.father != nil {
			k.Set(FeatureHierarchicalTyping)
		} else {
			k.Set(FeatureFlatTyping)
		}
	}
	if k.Has(FeatureHierarchicalTyping) {
		delete(k.features, FeatureFlatTyping)
	}
	for _, f := range p.fluents {
		markValueType(&k, f.typ)
	}
	for _, a := range p.actions {
		for _, c := range a.preconditions {
			markCondition(&k, c)
		}
		for _, e := range a.effects {
			if e.IsConditional() {
				k.Set(FeatureConditionalEffects)
				markCondition(&k, e.condition)
			}
			markValue(&k, e.value)
		}
	}
	for _, g := range p.goals {
		markCondition(&k, g)
	}
	for _, iv := range p.initial {
		markValue(&k, iv.Value)
	}
	return k
}

func markValueType(k *ProblemKind, t *Type) {
	switch t.kind {
	case KindInt:
		k.Set(FeatureDiscreteNumbers)
	case KindReal:
		k.Set(FeatureContinuousNumbers)
	}
}

func markValue(k *ProblemKind, v *FNode) {
	switch v.op {
	case OpIntConstant:
		k.Set(FeatureDiscreteNumbers)
	case OpRealConstant:
		k.Set(FeatureContinuousNumbers)
	case OpPlus, OpMinus, OpTimes, OpDiv:
		k.Set(FeatureDiscreteNumbers)
	}
}

// markCondition walks a condition and records the connectives it uses.
func markCondition(k *ProblemKind, root *FNode) {
	seen := make(map[*FNode]bool)
	stack := []*FNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		switch n.op {
		case OpNot:
			k.Set(FeatureNegativeConditions)
		case OpOr, OpIff:
			k.Set(FeatureDisjunctiveConditions)
		case OpImplies:
			k.Set(FeatureDisjunctiveConditions)
			k.Set(FeatureNegativeConditions)
		case OpEquals:
			k.Set(FeatureEquality)
		case OpExists:
			k.Set(FeatureExistentialConditions)
		case OpForall:
			k.Set(FeatureUniversalConditions)
		case OpLE, OpLT, OpIntConstant, OpRealConstant, OpPlus, OpMinus, OpTimes, OpDiv:
			markValue(k, n)
			if n.op == OpLE || n.op == OpLT {
				k.Set(FeatureDiscreteNumbers)
			}
		case OpFluentExp:
			markValueType(k, n.fluent.typ)
		}
		stack = append(stack, n.args...)
	}
}
