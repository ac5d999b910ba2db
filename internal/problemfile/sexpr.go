package problemfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/haricheung/stripsbridge/internal/upf"
)

// sexpr is a parsed s-expression: an atom or a list.
type sexpr struct {
	atom   string
	list   []*sexpr
	isList bool
}

func (s *sexpr) String() string {
	if !s.isList {
		return s.atom
	}
	parts := make([]string, len(s.list))
	for i, e := range s.list {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func tokenize(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

// readSexpr parses exactly one s-expression from src.
func readSexpr(src string) (*sexpr, error) {
	toks := tokenize(src)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	e, rest, err := readTokens(toks)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected %q after expression", strings.Join(rest, " "))
	}
	return e, nil
}

func readTokens(toks []string) (*sexpr, []string, error) {
	if len(toks) == 0 {
		return nil, nil, fmt.Errorf("unexpected end of expression")
	}
	switch toks[0] {
	case ")":
		return nil, nil, fmt.Errorf("unexpected )")
	case "(":
		e := &sexpr{isList: true}
		rest := toks[1:]
		for {
			if len(rest) == 0 {
				return nil, nil, fmt.Errorf("missing )")
			}
			if rest[0] == ")" {
				return e, rest[1:], nil
			}
			var child *sexpr
			var err error
			child, rest, err = readTokens(rest)
			if err != nil {
				return nil, nil, err
			}
			e.list = append(e.list, child)
		}
	}
	return &sexpr{atom: toks[0]}, toks[1:], nil
}

// scope resolves names while building expressions.
type scope struct {
	problem *upf.Problem
	params  map[string]*upf.Parameter
}

func (sc *scope) with(vars []*upf.Parameter) *scope {
	params := make(map[string]*upf.Parameter, len(sc.params)+len(vars))
	for k, v := range sc.params {
		params[k] = v
	}
	for _, v := range vars {
		params[v.Name()] = v
	}
	return &scope{problem: sc.problem, params: params}
}

// parseExpr reads src and builds the expression it denotes.
func (sc *scope) parseExpr(src string) (*upf.FNode, error) {
	e, err := readSexpr(src)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", src, err)
	}
	n, err := sc.build(e)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", src, err)
	}
	return n, nil
}

var binary = map[string]func(a, b *upf.FNode) *upf.FNode{
	"imply": upf.Implies,
	"iff":   upf.Iff,
	"=":     upf.Equals,
	"<=":    upf.LE,
	"<":     upf.LT,
	"-":     upf.Minus,
	"/":     upf.Div,
}

var folding = map[string]func(a, b *upf.FNode) *upf.FNode{
	"+": upf.Plus,
	"*": upf.Times,
}

func (sc *scope) build(e *sexpr) (*upf.FNode, error) {
	if !e.isList {
		return sc.atom(e.atom)
	}
	if len(e.list) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	head := e.list[0]
	if head.isList {
		return nil, fmt.Errorf("operator position holds %s", head)
	}
	op, rest := head.atom, e.list[1:]

	switch op {
	case "and", "or":
		args, err := sc.buildAll(rest)
		if err != nil {
			return nil, err
		}
		if op == "and" {
			return upf.And(args...), nil
		}
		return upf.Or(args...), nil
	case "not":
		if len(rest) != 1 {
			return nil, fmt.Errorf("not takes 1 argument, got %d", len(rest))
		}
		arg, err := sc.build(rest[0])
		if err != nil {
			return nil, err
		}
		return upf.Not(arg), nil
	case "exists", "forall":
		return sc.quantifier(op, rest)
	case ">=", ">":
		// (>= a b) is (<= b a)
		if len(rest) != 2 {
			return nil, fmt.Errorf("%s takes 2 arguments, got %d", op, len(rest))
		}
		args, err := sc.buildAll(rest)
		if err != nil {
			return nil, err
		}
		if op == ">=" {
			return upf.LE(args[1], args[0]), nil
		}
		return upf.LT(args[1], args[0]), nil
	}
	if mk, ok := binary[op]; ok {
		if len(rest) != 2 {
			return nil, fmt.Errorf("%s takes 2 arguments, got %d", op, len(rest))
		}
		args, err := sc.buildAll(rest)
		if err != nil {
			return nil, err
		}
		return mk(args[0], args[1]), nil
	}
	if mk, ok := folding[op]; ok {
		if len(rest) < 2 {
			return nil, fmt.Errorf("%s takes at least 2 arguments, got %d", op, len(rest))
		}
		args, err := sc.buildAll(rest)
		if err != nil {
			return nil, err
		}
		acc := args[0]
		for _, a := range args[1:] {
			acc = mk(acc, a)
		}
		return acc, nil
	}

	f := sc.problem.Fluent(op)
	if f == nil {
		return nil, fmt.Errorf("unknown fluent or operator %q", op)
	}
	args, err := sc.buildAll(rest)
	if err != nil {
		return nil, err
	}
	return upf.NewFluentExp(f, args...)
}

func (sc *scope) buildAll(es []*sexpr) ([]*upf.FNode, error) {
	out := make([]*upf.FNode, len(es))
	for i, e := range es {
		n, err := sc.build(e)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// quantifier builds (exists (?y - T ?z - U) body).
func (sc *scope) quantifier(op string, rest []*sexpr) (*upf.FNode, error) {
	if len(rest) != 2 || !rest[0].isList {
		return nil, fmt.Errorf("%s takes a variable list and a body", op)
	}
	decl := rest[0].list
	var vars []*upf.Parameter
	for i := 0; i < len(decl); i += 3 {
		if i+2 >= len(decl) || decl[i].isList || decl[i+1].atom != "-" || decl[i+2].isList {
			return nil, fmt.Errorf("%s variables must be written ?name - type", op)
		}
		t := sc.problem.UserType(decl[i+2].atom)
		if t == nil {
			return nil, fmt.Errorf("unknown type %q", decl[i+2].atom)
		}
		vars = append(vars, upf.NewParameter(strings.TrimPrefix(decl[i].atom, "?"), t))
	}
	body, err := sc.with(vars).build(rest[1])
	if err != nil {
		return nil, err
	}
	if op == "exists" {
		return upf.Exists(body, vars...), nil
	}
	return upf.Forall(body, vars...), nil
}

// atom resolves true/false, then "?x" or bare parameter names, then objects,
// numbers and 0-ary fluents.
func (sc *scope) atom(a string) (*upf.FNode, error) {
	switch a {
	case "true":
		return upf.TRUE(), nil
	case "false":
		return upf.FALSE(), nil
	}
	if name, ok := strings.CutPrefix(a, "?"); ok {
		p, found := sc.params[name]
		if !found {
			return nil, fmt.Errorf("unknown parameter ?%s", name)
		}
		return upf.ParamExp(p), nil
	}
	if p, ok := sc.params[a]; ok {
		return upf.ParamExp(p), nil
	}
	if o, ok := sc.problem.Object(a); ok {
		return upf.ObjectExp(o), nil
	}
	if i, err := strconv.ParseInt(a, 10, 64); err == nil {
		return upf.Int(i), nil
	}
	if f, err := strconv.ParseFloat(a, 64); err == nil {
		return upf.Real(f), nil
	}
	if f := sc.problem.Fluent(a); f != nil && f.Arity() == 0 {
		return upf.FluentExp(f), nil
	}
	return nil, fmt.Errorf("unknown name %q", a)
}
