package solver

import (
	"regexp"
	"strings"

	"github.com/haricheung/stripsbridge/internal/convert"
	"github.com/haricheung/stripsbridge/internal/upf"
)

// actionLine is "(" token (" " token)* ")" with tokens free of whitespace and parentheses.
var actionLine = regexp.MustCompile(`^\(([^\s()]+(?: [^\s()]+)*)\)$`)

// skipLine matches blank lines and ";" comments in solution files.
var skipLine = regexp.MustCompile(`^\s*(;.*)?$`)

// DecodeAction resolves one solution line such as "(flip b)" against p.
//
// Expectations:
//   - the first token names an action of p, the rest name objects of p
//   - the object count equals the action arity
//   - each object's type is the parameter type or a descendant of it
//   - every failure is a PlanParseError naming the line
func DecodeAction(line string, p *upf.Problem) (*upf.ActionInstance, error) {
	m := actionLine.FindStringSubmatch(line)
	if m == nil {
		return nil, convert.PlanParseError(p.Name(), line, "expected \"(action arg ...)\"")
	}
	toks := strings.Split(m[1], " ")
	action, ok := p.Action(toks[0])
	if !ok {
		return nil, convert.PlanParseError(p.Name(), line, "unknown action %q", toks[0])
	}
	params := action.Parameters()
	if len(toks)-1 != len(params) {
		return nil, convert.PlanParseError(p.Name(), line, "action %s takes %d arguments, got %d",
			action.Name(), len(params), len(toks)-1)
	}
	args := make([]*upf.FNode, len(params))
	for i, name := range toks[1:] {
		o, ok := p.Object(name)
		if !ok {
			return nil, convert.PlanParseError(p.Name(), line, "unknown object %q", name)
		}
		if !isSubtype(o.Type(), params[i].Type()) {
			return nil, convert.PlanParseError(p.Name(), line, "object %s of type %s cannot bind parameter %s",
				name, o.Type().Name(), params[i])
		}
		args[i] = upf.ObjectExp(o)
	}
	return upf.NewActionInstance(action, args...), nil
}

// DecodePlan decodes solution lines in order, skipping blanks and comments.
func DecodePlan(lines []string, p *upf.Problem) (*upf.SequentialPlan, error) {
	steps := make([]*upf.ActionInstance, 0, len(lines))
	for _, line := range lines {
		if skipLine.MatchString(line) {
			continue
		}
		ai, err := DecodeAction(line, p)
		if err != nil {
			return nil, err
		}
		steps = append(steps, ai)
	}
	return upf.NewSequentialPlan(steps...), nil
}

func isSubtype(t, of *upf.Type) bool {
	for cur := t; cur != nil; cur = cur.Father() {
		if cur == of {
			return true
		}
	}
	return false
}
