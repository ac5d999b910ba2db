package convert

import "github.com/haricheung/stripsbridge/internal/strips"

// flattenConjunction collects the literals of a conjunction, descending into
// nested ANDs at any depth and keeping left-to-right order. The first node that
// is neither a conjunction nor a literal is returned as offending.
func flattenConjunction(f *strips.Formula) (lits []*strips.Formula, offending *strips.Formula) {
	stack := []*strips.Formula{f}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch {
		case x.IsAnd():
			for i := len(x.Args) - 1; i >= 0; i-- {
				stack = append(stack, x.Args[i])
			}
		case x.IsLiteral():
			lits = append(lits, x)
		default:
			return nil, x
		}
	}
	return lits, nil
}
