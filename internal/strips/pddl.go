package strips

import (
	"fmt"
	"sort"
	"strings"
)

// PDDL renders the domain as a PDDL define block. Predicates and actions are
// emitted in name order so the text is stable for a given domain.
func (d *Domain) PDDL() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(define (domain %s)\n", d.Name)
	sb.WriteString("  (:requirements :strips :typing)\n")

	sb.WriteString("  (:types")
	for _, t := range d.Types {
		if t.Parent == nil {
			continue
		}
		fmt.Fprintf(&sb, " %s - %s", t.Name, t.Parent.Name)
	}
	sb.WriteString(")\n")

	sb.WriteString("  (:predicates")
	for _, name := range sortedKeys(d.Predicates) {
		sb.WriteString("\n    ")
		sb.WriteString(typedLiteral(d.Predicates[name]))
	}
	sb.WriteString(")\n")

	for _, name := range sortedKeys(d.Actions) {
		a := d.Actions[name]
		fmt.Fprintf(&sb, "  (:action %s\n", a.Name)
		fmt.Fprintf(&sb, "    :parameters (%s)\n", typedTerms(a.Signature))
		fmt.Fprintf(&sb, "    :precondition (and%s)\n", literals(a.Precondition, false))
		eff := literals(a.Effect.AddList.Sorted(), false) + literals(a.Effect.DelList.Sorted(), true)
		fmt.Fprintf(&sb, "    :effect (and%s))\n", eff)
	}
	sb.WriteString(")\n")
	return sb.String()
}

// PDDL renders the problem as a PDDL define block.
func (p *Problem) PDDL() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(define (problem %s)\n", p.Name)
	fmt.Fprintf(&sb, "  (:domain %s)\n", p.Domain.Name)
	sb.WriteString("  (:objects")
	for _, name := range sortedKeys(p.Objects) {
		fmt.Fprintf(&sb, " %s - %s", name, p.Objects[name].Name)
	}
	sb.WriteString(")\n")
	init := append([]*Predicate(nil), p.Initial...)
	sort.Slice(init, func(i, j int) bool { return init[i].Key() < init[j].Key() })
	fmt.Fprintf(&sb, "  (:init%s)\n", literals(init, false))
	fmt.Fprintf(&sb, "  (:goal (and%s)))\n", literals(p.Goal, false))
	return sb.String()
}

func typedLiteral(p *Predicate) string {
	if len(p.Signature) == 0 {
		return "(" + p.Name + ")"
	}
	return "(" + p.Name + " " + typedTerms(p.Signature) + ")"
}

func typedTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
		if t.Type != nil {
			parts[i] += " - " + t.Type.Name
		}
	}
	return strings.Join(parts, " ")
}

func literals(preds []*Predicate, negated bool) string {
	var sb strings.Builder
	for _, p := range preds {
		sb.WriteByte(' ')
		if negated {
			sb.WriteString("(not " + p.String() + ")")
		} else {
			sb.WriteString(p.String())
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
