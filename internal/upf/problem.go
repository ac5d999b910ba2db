package upf

import (
	"fmt"
	"strings"
)

// Effect assigns value to a fluent application, optionally guarded by a condition.
type Effect struct {
	fluent    *FNode
	value     *FNode
	condition *FNode
}

func (e *Effect) Fluent() *FNode    { return e.fluent }
func (e *Effect) Value() *FNode     { return e.value }
func (e *Effect) Condition() *FNode { return e.condition }

// IsConditional reports whether the effect carries a guard other than true.
func (e *Effect) IsConditional() bool {
	return e.condition != nil && !(e.condition.IsBoolConstant() && e.condition.BoolConstantValue())
}

func (e *Effect) String() string {
	if e.IsConditional() {
		return fmt.Sprintf("if %s then %s := %s", e.condition, e.fluent, e.value)
	}
	return fmt.Sprintf("%s := %s", e.fluent, e.value)
}

// Action is an instantaneous parametrized action.
type Action struct {
	name          string
	params        []*Parameter
	preconditions []*FNode
	effects       []*Effect
}

func NewAction(name string, params ...*Parameter) *Action {
	return &Action{name: name, params: params}
}

func (a *Action) Name() string             { return a.name }
func (a *Action) Parameters() []*Parameter { return a.params }
func (a *Action) Preconditions() []*FNode  { return a.preconditions }
func (a *Action) Effects() []*Effect       { return a.effects }

// Parameter returns the parameter called name, or nil.
func (a *Action) Parameter(name string) *Parameter {
	for _, p := range a.params {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (a *Action) AddPrecondition(cond *FNode) {
	a.preconditions = append(a.preconditions, cond)
}

// AddEffect records fluent := value.
func (a *Action) AddEffect(fluent, value *FNode) {
	a.effects = append(a.effects, &Effect{fluent: fluent, value: value})
}

// AddConditionalEffect records "if condition then fluent := value".
func (a *Action) AddConditionalEffect(condition, fluent, value *FNode) {
	a.effects = append(a.effects, &Effect{fluent: fluent, value: value, condition: condition})
}

func (a *Action) String() string {
	ps := make([]string, len(a.params))
	for i, p := range a.params {
		ps[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", a.name, strings.Join(ps, ", "))
}

// InitialValue is one entry of the initial state assignment.
type InitialValue struct {
	Fluent *FNode
	Value  *FNode
}

// Problem owns every entity of a planning problem. Entities are kept in
// insertion order so conversions are deterministic.
type Problem struct {
	name      string
	userTypes []*Type
	typeIndex map[string]*Type
	fluents   []*Fluent
	actions   []*Action
	objects   []*Object
	initial   []InitialValue
	initIndex map[string]int
	goals     []*FNode
}

func NewProblem(name string) *Problem {
	return &Problem{
		name:      name,
		typeIndex: make(map[string]*Type),
		initIndex: make(map[string]int),
	}
}

func (p *Problem) Name() string { return p.name }

// Kind derives the features used by the problem from its content.
func (p *Problem) Kind() ProblemKind { return kindOf(p) }

// AddUserType registers t and, first, every ancestor of t not yet known.
// Registering a different type under an existing name is an error.
func (p *Problem) AddUserType(t *Type) error {
	if !t.IsUserType() {
		return fmt.Errorf("type %s is not a user type", t.name)
	}
	var chain []*Type
	for cur := t; cur != nil; cur = cur.father {
		if known, ok := p.typeIndex[cur.name]; ok {
			if known != cur {
				return fmt.Errorf("type %q already declared", cur.name)
			}
			break
		}
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		p.typeIndex[chain[i].name] = chain[i]
		p.userTypes = append(p.userTypes, chain[i])
	}
	return nil
}

func (p *Problem) UserTypes() []*Type { return p.userTypes }

func (p *Problem) HasType(name string) bool {
	_, ok := p.typeIndex[name]
	return ok
}

// UserType returns the user type called name, or nil.
func (p *Problem) UserType(name string) *Type { return p.typeIndex[name] }

func (p *Problem) AddFluent(f *Fluent) error {
	if p.Fluent(f.name) != nil {
		return fmt.Errorf("fluent %q already declared", f.name)
	}
	for _, param := range f.signature {
		if param.typ.IsUserType() {
			if err := p.AddUserType(param.typ); err != nil {
				return err
			}
		}
	}
	p.fluents = append(p.fluents, f)
	return nil
}

func (p *Problem) Fluents() []*Fluent { return p.fluents }

// Fluent returns the fluent called name, or nil.
func (p *Problem) Fluent(name string) *Fluent {
	for _, f := range p.fluents {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (p *Problem) AddAction(a *Action) error {
	if _, ok := p.Action(a.name); ok {
		return fmt.Errorf("action %q already declared", a.name)
	}
	for _, param := range a.params {
		if param.typ.IsUserType() {
			if err := p.AddUserType(param.typ); err != nil {
				return err
			}
		}
	}
	p.actions = append(p.actions, a)
	return nil
}

func (p *Problem) Actions() []*Action { return p.actions }

// Action looks up an action by name.
func (p *Problem) Action(name string) (*Action, bool) {
	for _, a := range p.actions {
		if a.name == name {
			return a, true
		}
	}
	return nil, false
}

func (p *Problem) AddObject(o *Object) error {
	if _, ok := p.Object(o.name); ok {
		return fmt.Errorf("object %q already declared", o.name)
	}
	if err := p.AddUserType(o.typ); err != nil {
		return err
	}
	p.objects = append(p.objects, o)
	return nil
}

func (p *Problem) AllObjects() []*Object { return p.objects }

// Object looks up an object by name.
func (p *Problem) Object(name string) (*Object, bool) {
	for _, o := range p.objects {
		if o.name == name {
			return o, true
		}
	}
	return nil, false
}

// SetInitialValue assigns value to a ground fluent application. A second
// assignment to the same application replaces the first.
func (p *Problem) SetInitialValue(fluent, value *FNode) error {
	if !fluent.IsFluentExp() {
		return fmt.Errorf("initial value target %s is not a fluent expression", fluent)
	}
	key := fluent.String()
	if i, ok := p.initIndex[key]; ok {
		p.initial[i].Value = value
		return nil
	}
	p.initIndex[key] = len(p.initial)
	p.initial = append(p.initial, InitialValue{Fluent: fluent, Value: value})
	return nil
}

// InitialValues returns the explicit initial assignments in insertion order.
func (p *Problem) InitialValues() []InitialValue { return p.initial }

func (p *Problem) AddGoal(g *FNode) { p.goals = append(p.goals, g) }

func (p *Problem) Goals() []*FNode { return p.goals }

func (p *Problem) String() string { return p.name }
