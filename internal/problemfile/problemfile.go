// Package problemfile loads planning problems from YAML files. Conditions and
// effects are written as s-expressions over the declared fluents, parameters
// ("?x" or bare names) and objects, e.g. "(and (on ?x) (not (on b)))".
package problemfile

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haricheung/stripsbridge/internal/upf"
)

// ParseError reports where in a problem file a definition is wrong.
type ParseError struct {
	// File is the source path, empty for in-memory input
	File string
	// Section names the failing part, e.g. "action flip: effect 2"
	Section string
	// Message is the human-readable error message
	Message string
	// Err is the underlying error, if any
	Err error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("parse error")
	if e.File != "" {
		sb.WriteString(" in " + e.File)
	}
	if e.Section != "" {
		sb.WriteString(" (" + e.Section + ")")
	}
	sb.WriteString(": " + e.Message)
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads and builds the problem stored at path.
func Load(path string) (*upf.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = path
		}
		return nil, err
	}
	slog.Debug("[PROBLEMFILE] loaded", "path", path, "problem", p.Name(),
		"fluents", len(p.Fluents()), "actions", len(p.Actions()), "objects", len(p.AllObjects()))
	return p, nil
}

// Parse builds a problem from YAML bytes.
//
// Expectations:
//   - types may be declared in any order; parents are created before children
//   - a type declared twice, or a parent cycle, is an error
//   - effect values and initial values default to true
//   - an effect with a condition becomes a conditional effect
//   - every failure is a *ParseError naming the section
func Parse(data []byte) (*upf.Problem, error) {
	var yp yamlProblem
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return nil, &ParseError{Message: "invalid YAML", Err: err}
	}
	return build(&yp)
}

func build(yp *yamlProblem) (*upf.Problem, error) {
	if yp.Name == "" {
		return nil, &ParseError{Message: "'name' field is required"}
	}
	p := upf.NewProblem(yp.Name)

	if err := buildTypes(p, yp.Types); err != nil {
		return nil, err
	}
	typeOf := func(section, name string) (*upf.Type, error) {
		t := p.UserType(name)
		if t == nil {
			return nil, &ParseError{Section: section, Message: fmt.Sprintf("unknown type %q", name)}
		}
		return t, nil
	}
	params := func(section string, decl []yamlTyped) ([]*upf.Parameter, error) {
		out := make([]*upf.Parameter, len(decl))
		for i, d := range decl {
			t, err := typeOf(section, d.Type)
			if err != nil {
				return nil, err
			}
			out[i] = upf.NewParameter(strings.TrimPrefix(d.Name, "?"), t)
		}
		return out, nil
	}

	for _, yf := range yp.Fluents {
		section := "fluent " + yf.Name
		var vt *upf.Type
		switch yf.Type {
		case "", "bool":
			vt = upf.BoolType()
		case "int":
			vt = upf.IntType()
		case "real":
			vt = upf.RealType()
		default:
			return nil, &ParseError{Section: section, Message: fmt.Sprintf("unknown value type %q", yf.Type)}
		}
		sig, err := params(section, yf.Params)
		if err != nil {
			return nil, err
		}
		if err := p.AddFluent(upf.NewFluent(yf.Name, vt, sig...)); err != nil {
			return nil, &ParseError{Section: section, Message: "cannot declare fluent", Err: err}
		}
	}

	for _, yo := range yp.Objects {
		section := "object " + yo.Name
		t, err := typeOf(section, yo.Type)
		if err != nil {
			return nil, err
		}
		if err := p.AddObject(upf.NewObject(yo.Name, t)); err != nil {
			return nil, &ParseError{Section: section, Message: "cannot declare object", Err: err}
		}
	}

	for _, ya := range yp.Actions {
		a, err := buildAction(p, ya, params)
		if err != nil {
			return nil, err
		}
		if err := p.AddAction(a); err != nil {
			return nil, &ParseError{Section: "action " + ya.Name, Message: "cannot declare action", Err: err}
		}
	}

	global := &scope{problem: p}
	for i, yi := range yp.Init {
		section := fmt.Sprintf("init %d", i+1)
		fluent, err := global.parseExpr(yi.Fluent)
		if err != nil {
			return nil, &ParseError{Section: section, Message: "bad fluent", Err: err}
		}
		value, err := global.parseExpr(orTrue(yi.Value))
		if err != nil {
			return nil, &ParseError{Section: section, Message: "bad value", Err: err}
		}
		if err := p.SetInitialValue(fluent, value); err != nil {
			return nil, &ParseError{Section: section, Message: "cannot set initial value", Err: err}
		}
	}

	for i, yg := range yp.Goals {
		g, err := global.parseExpr(yg)
		if err != nil {
			return nil, &ParseError{Section: fmt.Sprintf("goal %d", i+1), Message: "bad goal", Err: err}
		}
		p.AddGoal(g)
	}
	return p, nil
}

func buildAction(p *upf.Problem, ya yamlAction, params func(string, []yamlTyped) ([]*upf.Parameter, error)) (*upf.Action, error) {
	section := "action " + ya.Name
	if ya.Name == "" {
		return nil, &ParseError{Section: "actions", Message: "action without a name"}
	}
	ps, err := params(section, ya.Params)
	if err != nil {
		return nil, err
	}
	a := upf.NewAction(ya.Name, ps...)
	sc := (&scope{problem: p}).with(ps)

	for i, src := range ya.Preconditions {
		cond, err := sc.parseExpr(src)
		if err != nil {
			return nil, &ParseError{Section: fmt.Sprintf("%s: precondition %d", section, i+1), Message: "bad condition", Err: err}
		}
		a.AddPrecondition(cond)
	}
	for i, ye := range ya.Effects {
		where := fmt.Sprintf("%s: effect %d", section, i+1)
		fluent, err := sc.parseExpr(ye.Fluent)
		if err != nil {
			return nil, &ParseError{Section: where, Message: "bad fluent", Err: err}
		}
		if !fluent.IsFluentExp() {
			return nil, &ParseError{Section: where, Message: fmt.Sprintf("%s is not a fluent application", fluent)}
		}
		value, err := sc.parseExpr(orTrue(ye.Value))
		if err != nil {
			return nil, &ParseError{Section: where, Message: "bad value", Err: err}
		}
		if ye.Condition == "" {
			a.AddEffect(fluent, value)
			continue
		}
		cond, err := sc.parseExpr(ye.Condition)
		if err != nil {
			return nil, &ParseError{Section: where, Message: "bad condition", Err: err}
		}
		a.AddConditionalEffect(cond, fluent, value)
	}
	return a, nil
}

// rootType names the implicit root; `parent: object` means no father unless
// the file declares its own object type.
const rootType = "object"

// buildTypes registers declared types, parents first.
func buildTypes(p *upf.Problem, decl []yamlType) error {
	byName := make(map[string]yamlType, len(decl))
	for _, yt := range decl {
		if yt.Name == "" {
			return &ParseError{Section: "types", Message: "type without a name"}
		}
		if _, dup := byName[yt.Name]; dup {
			return &ParseError{Section: "type " + yt.Name, Message: "declared twice"}
		}
		byName[yt.Name] = yt
	}

	made := make(map[string]*upf.Type, len(decl))
	var resolve func(name string, path []string) (*upf.Type, error)
	resolve = func(name string, path []string) (*upf.Type, error) {
		if t, ok := made[name]; ok {
			return t, nil
		}
		for _, seen := range path {
			if seen == name {
				return nil, &ParseError{Section: "type " + name,
					Message: "parent cycle " + strings.Join(append(path, name), " -> ")}
			}
		}
		yt, ok := byName[name]
		if !ok {
			return nil, &ParseError{Section: "type " + path[len(path)-1], Message: fmt.Sprintf("unknown parent %q", name)}
		}
		var father *upf.Type
		_, declared := byName[yt.Parent]
		if yt.Parent != "" && (yt.Parent != rootType || declared) {
			var err error
			if father, err = resolve(yt.Parent, append(path, name)); err != nil {
				return nil, err
			}
		}
		t := upf.UserType(name, father)
		made[name] = t
		return t, nil
	}

	for _, yt := range decl {
		t, err := resolve(yt.Name, nil)
		if err != nil {
			return err
		}
		if err := p.AddUserType(t); err != nil {
			return &ParseError{Section: "type " + yt.Name, Message: "cannot declare type", Err: err}
		}
	}
	return nil
}

func orTrue(s string) string {
	if strings.TrimSpace(s) == "" {
		return "true"
	}
	return s
}
