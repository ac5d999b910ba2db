package convert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haricheung/stripsbridge/internal/upf"
)

// toy is the two-object, one-fluent, one-action problem used across tests:
// objects a, b of type T; fluent on(x:T); flip(x:T) adds on(x) and deletes on(a);
// initially on(a), goal on(b).
type toy struct {
	p    *upf.Problem
	typ  *upf.Type
	on   *upf.Fluent
	a, b *upf.Object
	flip *upf.Action
	x    *upf.Parameter
}

func newToy(t *testing.T) *toy {
	t.Helper()
	typ := upf.UserType("T", nil)
	on := upf.NewFluent("on", nil, upf.NewParameter("x", typ))
	a, b := upf.NewObject("a", typ), upf.NewObject("b", typ)
	x := upf.NewParameter("x", typ)
	flip := upf.NewAction("flip", x)
	flip.AddEffect(upf.FluentExp(on, upf.ParamExp(x)), upf.TRUE())
	flip.AddEffect(upf.FluentExp(on, upf.ObjectExp(a)), upf.FALSE())

	p := upf.NewProblem("toy")
	require.NoError(t, p.AddFluent(on))
	require.NoError(t, p.AddObject(a))
	require.NoError(t, p.AddObject(b))
	require.NoError(t, p.AddAction(flip))
	require.NoError(t, p.SetInitialValue(upf.FluentExp(on, upf.ObjectExp(a)), upf.TRUE()))
	p.AddGoal(upf.FluentExp(on, upf.ObjectExp(b)))
	return &toy{p: p, typ: typ, on: on, a: a, b: b, flip: flip, x: x}
}

func (ty *toy) onExp(arg *upf.FNode) *upf.FNode { return upf.FluentExp(ty.on, arg) }
