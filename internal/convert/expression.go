package convert

import (
	"github.com/haricheung/stripsbridge/internal/strips"
	"github.com/haricheung/stripsbridge/internal/upf"
)

// Mode selects the rewrite rules for the position an expression occupies.
type Mode int

const (
	ModePrecondition Mode = iota
	ModeEffect
)

func (m Mode) String() string {
	if m == ModeEffect {
		return "effect"
	}
	return "precondition"
}

type cacheKey struct {
	node *upf.FNode
	mode Mode
}

// ExpressionConverter rewrites upf expression DAGs into strips formulas.
// Results are memoised per node and mode, so a subexpression shared by several
// parents is converted once and every parent points at the same formula.
//
// Expectations:
//   - Walk is iterative (explicit stack), post-order
//   - Conversions counts cache misses only
//   - NOT fails in precondition mode and succeeds in effect mode
//   - Empty OR becomes the constant false; empty AND stays an empty conjunction
//   - Every operator other than and/or/not/fluent/parameter/object fails
type ExpressionConverter struct {
	problem     string
	cache       map[cacheKey]*strips.Formula
	conversions int
}

// NewExpressionConverter returns a converter whose errors name problem.
func NewExpressionConverter(problem string) *ExpressionConverter {
	return &ExpressionConverter{problem: problem, cache: make(map[cacheKey]*strips.Formula)}
}

// Conversions is the number of nodes rewritten so far.
func (c *ExpressionConverter) Conversions() int { return c.conversions }

// ConvertPrecondition converts expr and wraps a non-conjunction root in a singleton AND.
func (c *ExpressionConverter) ConvertPrecondition(expr *upf.FNode) (*strips.Formula, error) {
	return c.convertWrapped(expr, ModePrecondition)
}

// ConvertEffect converts expr and wraps a non-conjunction root in a singleton AND.
func (c *ExpressionConverter) ConvertEffect(expr *upf.FNode) (*strips.Formula, error) {
	return c.convertWrapped(expr, ModeEffect)
}

func (c *ExpressionConverter) convertWrapped(expr *upf.FNode, mode Mode) (*strips.Formula, error) {
	f, err := c.Convert(expr, mode)
	if err != nil {
		return nil, err
	}
	if f.IsAnd() {
		return f, nil
	}
	return strips.NewFormula(strips.KeyAnd, []*strips.Formula{f}, strips.KindConnective), nil
}

type frame struct {
	node     *upf.FNode
	expanded bool
}

// Convert rewrites expr bottom-up without the conjunction wrapper.
func (c *ExpressionConverter) Convert(expr *upf.FNode, mode Mode) (*strips.Formula, error) {
	stack := []frame{{node: expr}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := stack[top]
		if _, done := c.cache[cacheKey{f.node, mode}]; done {
			stack = stack[:top]
			continue
		}
		if !f.expanded {
			stack[top].expanded = true
			args := f.node.Args()
			for i := len(args) - 1; i >= 0; i-- {
				if _, done := c.cache[cacheKey{args[i], mode}]; !done {
					stack = append(stack, frame{node: args[i]})
				}
			}
			continue
		}
		stack = stack[:top]

		args := make([]*strips.Formula, len(f.node.Args()))
		for i, a := range f.node.Args() {
			args[i] = c.cache[cacheKey{a, mode}]
		}
		out, err := c.rewrite(f.node, args, mode)
		if err != nil {
			return nil, err
		}
		c.cache[cacheKey{f.node, mode}] = out
		c.conversions++
	}
	return c.cache[cacheKey{expr, mode}], nil
}

func (c *ExpressionConverter) rewrite(n *upf.FNode, args []*strips.Formula, mode Mode) (*strips.Formula, error) {
	switch n.Op() {
	case upf.OpAnd:
		return strips.NewFormula(strips.KeyAnd, args, strips.KindConnective), nil
	case upf.OpOr:
		if len(args) == 0 {
			return strips.NewFormula(strips.KeyFalse, nil, strips.KindConstant), nil
		}
		return strips.NewFormula(strips.KeyOr, args, strips.KindConnective), nil
	case upf.OpNot:
		if mode == ModePrecondition {
			return nil, UnsupportedExpressionShape(c.problem, n.String(),
				"negation is not allowed in a %s", mode)
		}
		return strips.NewFormula(strips.KeyNot, args, strips.KindConnective), nil
	case upf.OpFluentExp:
		return strips.NewFormula(n.Fluent().Name(), args, strips.KindAtom), nil
	case upf.OpParamExp:
		return strips.NewFormula(n.Parameter().Name(), nil, strips.KindVariable), nil
	case upf.OpObjectExp:
		return strips.NewFormula(n.Object().Name(), nil, strips.KindConstant), nil
	default:
		return nil, UnsupportedExpressionShape(c.problem, n.String(),
			"operator %s is not supported in a %s", n.Op(), mode).WithContext("operator", n.Op().String())
	}
}
