package strips

import "strings"

// FormulaKind distinguishes the node kinds of a Formula tree.
type FormulaKind int

const (
	// KindConnective is and/or/not.
	KindConnective FormulaKind = iota
	// KindAtom is a predicate applied to terms.
	KindAtom
	KindVariable
	KindConstant
)

// Connective keys.
const (
	KeyAnd   = "and"
	KeyOr    = "or"
	KeyNot   = "not"
	KeyFalse = "false"
)

// Formula is a logical formula over predicate atoms, as produced from an
// expression before it is flattened into literals.
type Formula struct {
	Key  string
	Args []*Formula
	Kind FormulaKind
}

func NewFormula(key string, args []*Formula, kind FormulaKind) *Formula {
	return &Formula{Key: key, Args: args, Kind: kind}
}

func (f *Formula) IsAnd() bool { return f.Kind == KindConnective && f.Key == KeyAnd }

// IsLiteral reports whether f is an atom whose arguments are all terms.
func (f *Formula) IsLiteral() bool {
	if f.Kind != KindAtom {
		return false
	}
	for _, a := range f.Args {
		if a.Kind != KindVariable && a.Kind != KindConstant {
			return false
		}
	}
	return true
}

func (f *Formula) String() string {
	switch f.Kind {
	case KindVariable:
		return "?" + f.Key
	case KindConstant:
		return f.Key
	}
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(f.Key)
	for _, a := range f.Args {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
