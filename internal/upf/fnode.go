package upf

import (
	"fmt"
	"strconv"
	"strings"
)

// OperatorKind tags the variant held by an FNode.
type OperatorKind int

const (
	OpAnd OperatorKind = iota
	OpOr
	OpNot
	OpImplies
	OpIff
	OpExists
	OpForall
	OpFluentExp
	OpParamExp
	OpObjectExp
	OpBoolConstant
	OpIntConstant
	OpRealConstant
	OpEquals
	OpLE
	OpLT
	OpPlus
	OpMinus
	OpTimes
	OpDiv
)

var operatorNames = map[OperatorKind]string{
	OpAnd:          "and",
	OpOr:           "or",
	OpNot:          "not",
	OpImplies:      "imply",
	OpIff:          "iff",
	OpExists:       "exists",
	OpForall:       "forall",
	OpFluentExp:    "fluent_exp",
	OpParamExp:     "param_exp",
	OpObjectExp:    "object_exp",
	OpBoolConstant: "bool_constant",
	OpIntConstant:  "int_constant",
	OpRealConstant: "real_constant",
	OpEquals:       "=",
	OpLE:           "<=",
	OpLT:           "<",
	OpPlus:         "+",
	OpMinus:        "-",
	OpTimes:        "*",
	OpDiv:          "/",
}

func (k OperatorKind) String() string {
	if s, ok := operatorNames[k]; ok {
		return s
	}
	return fmt.Sprintf("operator(%d)", int(k))
}

// FNode is one node of an expression DAG. Nodes are immutable once built, and a
// node may be shared by several parents; identity is the pointer.
type FNode struct {
	op      OperatorKind
	args    []*FNode
	fluent  *Fluent
	param   *Parameter
	object  *Object
	vars    []*Parameter
	boolVal bool
	intVal  int64
	realVal float64
}

func And(args ...*FNode) *FNode { return &FNode{op: OpAnd, args: args} }
func Or(args ...*FNode) *FNode  { return &FNode{op: OpOr, args: args} }
func Not(arg *FNode) *FNode     { return &FNode{op: OpNot, args: []*FNode{arg}} }

func Implies(a, b *FNode) *FNode { return &FNode{op: OpImplies, args: []*FNode{a, b}} }
func Iff(a, b *FNode) *FNode     { return &FNode{op: OpIff, args: []*FNode{a, b}} }
func Equals(a, b *FNode) *FNode  { return &FNode{op: OpEquals, args: []*FNode{a, b}} }
func LE(a, b *FNode) *FNode      { return &FNode{op: OpLE, args: []*FNode{a, b}} }
func LT(a, b *FNode) *FNode      { return &FNode{op: OpLT, args: []*FNode{a, b}} }
func Plus(a, b *FNode) *FNode    { return &FNode{op: OpPlus, args: []*FNode{a, b}} }
func Minus(a, b *FNode) *FNode   { return &FNode{op: OpMinus, args: []*FNode{a, b}} }
func Times(a, b *FNode) *FNode   { return &FNode{op: OpTimes, args: []*FNode{a, b}} }
func Div(a, b *FNode) *FNode     { return &FNode{op: OpDiv, args: []*FNode{a, b}} }

// Exists quantifies body over vars.
func Exists(body *FNode, vars ...*Parameter) *FNode {
	return &FNode{op: OpExists, args: []*FNode{body}, vars: vars}
}

// Forall quantifies body over vars.
func Forall(body *FNode, vars ...*Parameter) *FNode {
	return &FNode{op: OpForall, args: []*FNode{body}, vars: vars}
}

// NewFluentExp applies f to args, failing when the argument count does not
// match the fluent arity.
func NewFluentExp(f *Fluent, args ...*FNode) (*FNode, error) {
	if len(args) != f.Arity() {
		return nil, fmt.Errorf("fluent %s takes %d arguments, got %d", f.name, f.Arity(), len(args))
	}
	return &FNode{op: OpFluentExp, args: args, fluent: f}, nil
}

// FluentExp is NewFluentExp for arguments known to fit; it panics on an
// arity mismatch. Input-driven callers use NewFluentExp.
func FluentExp(f *Fluent, args ...*FNode) *FNode {
	n, err := NewFluentExp(f, args...)
	if err != nil {
		panic("upf: " + err.Error())
	}
	return n
}

func ParamExp(p *Parameter) *FNode { return &FNode{op: OpParamExp, param: p} }
func ObjectExp(o *Object) *FNode   { return &FNode{op: OpObjectExp, object: o} }

// Bool returns a Boolean constant node.
func Bool(v bool) *FNode { return &FNode{op: OpBoolConstant, boolVal: v} }

func TRUE() *FNode  { return Bool(true) }
func FALSE() *FNode { return Bool(false) }

func Int(v int64) *FNode    { return &FNode{op: OpIntConstant, intVal: v} }
func Real(v float64) *FNode { return &FNode{op: OpRealConstant, realVal: v} }

func (n *FNode) Op() OperatorKind        { return n.op }
func (n *FNode) Args() []*FNode          { return n.args }
func (n *FNode) Arg(i int) *FNode        { return n.args[i] }
func (n *FNode) Fluent() *Fluent         { return n.fluent }
func (n *FNode) Parameter() *Parameter   { return n.param }
func (n *FNode) Object() *Object         { return n.object }
func (n *FNode) Variables() []*Parameter { return n.vars }

func (n *FNode) IsAnd() bool          { return n.op == OpAnd }
func (n *FNode) IsOr() bool           { return n.op == OpOr }
func (n *FNode) IsNot() bool          { return n.op == OpNot }
func (n *FNode) IsFluentExp() bool    { return n.op == OpFluentExp }
func (n *FNode) IsParamExp() bool     { return n.op == OpParamExp }
func (n *FNode) IsObjectExp() bool    { return n.op == OpObjectExp }
func (n *FNode) IsBoolConstant() bool { return n.op == OpBoolConstant }

// BoolConstantValue returns the value of a Boolean constant. It panics on any
// other node kind.
func (n *FNode) BoolConstantValue() bool {
	if n.op != OpBoolConstant {
		panic(fmt.Sprintf("upf: %s is not a bool constant", n))
	}
	return n.boolVal
}

func (n *FNode) IsNumericConstant() bool {
	return n.op == OpIntConstant || n.op == OpRealConstant
}

func (n *FNode) String() string {
	switch n.op {
	case OpFluentExp:
		return n.fluent.name + "(" + joinNodes(n.args, ", ") + ")"
	case OpParamExp:
		return n.param.name
	case OpObjectExp:
		return n.object.name
	case OpBoolConstant:
		return strconv.FormatBool(n.boolVal)
	case OpIntConstant:
		return strconv.FormatInt(n.intVal, 10)
	case OpRealConstant:
		return strconv.FormatFloat(n.realVal, 'g', -1, 64)
	case OpNot:
		return "(not " + n.args[0].String() + ")"
	case OpExists, OpForall:
		vs := make([]string, len(n.vars))
		for i, v := range n.vars {
			vs[i] = v.String()
		}
		return fmt.Sprintf("(%s (%s) %s)", n.op, strings.Join(vs, ", "), n.args[0])
	case OpAnd, OpOr, OpImplies, OpIff, OpEquals, OpLE, OpLT, OpPlus, OpMinus, OpTimes, OpDiv:
		return "(" + joinNodes(n.args, " "+n.op.String()+" ") + ")"
	}
	return n.op.String()
}

func joinNodes(nodes []*FNode, sep string) string {
	parts := make([]string, len(nodes))
	for i, a := range nodes {
		parts[i] = a.String()
	}
	return strings.Join(parts, sep)
}
