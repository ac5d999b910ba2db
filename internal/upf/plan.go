package upf

import "strings"

// ActionInstance binds an action to an ordered tuple of actual parameters.
type ActionInstance struct {
	action *Action
	params []*FNode
}

func NewActionInstance(action *Action, params ...*FNode) *ActionInstance {
	return &ActionInstance{action: action, params: params}
}

func (ai *ActionInstance) Action() *Action            { return ai.action }
func (ai *ActionInstance) ActualParameters() []*FNode { return ai.params }

func (ai *ActionInstance) String() string {
	return ai.action.name + "(" + joinNodes(ai.params, ", ") + ")"
}

// SequentialPlan is a totally ordered list of action instances.
type SequentialPlan struct {
	actions []*ActionInstance
}

func NewSequentialPlan(actions ...*ActionInstance) *SequentialPlan {
	return &SequentialPlan{actions: actions}
}

func (p *SequentialPlan) Actions() []*ActionInstance { return p.actions }
func (p *SequentialPlan) Len() int                   { return len(p.actions) }

func (p *SequentialPlan) String() string {
	lines := make([]string, len(p.actions))
	for i, a := range p.actions {
		lines[i] = a.String()
	}
	return strings.Join(lines, "\n")
}
