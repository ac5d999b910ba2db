package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haricheung/stripsbridge/internal/convert"
	"github.com/haricheung/stripsbridge/internal/upf"
)

// vehicleProblem: vehicle > truck, object t1 - truck, v1 - vehicle, l1 - location;
// drive(v - vehicle, to - location) and load(t - truck).
func vehicleProblem(t *testing.T) *upf.Problem {
	t.Helper()
	vehicle := upf.UserType("vehicle", nil)
	truck := upf.UserType("truck", vehicle)
	location := upf.UserType("location", nil)
	p := upf.NewProblem("logistics")
	for _, typ := range []*upf.Type{vehicle, truck, location} {
		require.NoError(t, p.AddUserType(typ))
	}
	for _, o := range []*upf.Object{
		upf.NewObject("t1", truck), upf.NewObject("v1", vehicle), upf.NewObject("l1", location),
	} {
		require.NoError(t, p.AddObject(o))
	}
	require.NoError(t, p.AddAction(upf.NewAction("drive",
		upf.NewParameter("v", vehicle), upf.NewParameter("to", location))))
	require.NoError(t, p.AddAction(upf.NewAction("load", upf.NewParameter("t", truck))))
	return p
}

func TestDecodeAction_Resolves(t *testing.T) {
	// Action and objects resolve to the problem's own instances
	p := vehicleProblem(t)
	ai, err := DecodeAction("(drive t1 l1)", p)
	require.NoError(t, err)
	drive, _ := p.Action("drive")
	t1, _ := p.Object("t1")
	assert.Same(t, drive, ai.Action())
	require.Len(t, ai.ActualParameters(), 2)
	assert.Same(t, t1, ai.ActualParameters()[0].Object(), "a truck binds a vehicle parameter")
	assert.Equal(t, "drive(t1, l1)", ai.String())
}

func TestDecodeAction_NullaryAction(t *testing.T) {
	// An action without parameters decodes from "(name)"
	p := vehicleProblem(t)
	require.NoError(t, p.AddAction(upf.NewAction("wait")))
	ai, err := DecodeAction("(wait)", p)
	require.NoError(t, err)
	assert.Empty(t, ai.ActualParameters())
}

func TestDecodeAction_Errors(t *testing.T) {
	// Every malformed or unresolvable line is a PlanParseError
	cases := map[string]struct{ line, want string }{
		"no parens":      {"drive t1 l1", "expected"},
		"double space":   {"(drive  t1 l1)", "expected"},
		"leading space":  {"( drive t1 l1)", "expected"},
		"nested":         {"(drive (t1) l1)", "expected"},
		"empty":          {"()", "expected"},
		"unknown action": {"(fly t1 l1)", "unknown action"},
		"unknown object": {"(drive t9 l1)", "unknown object"},
		"too few":        {"(drive t1)", "takes 2 arguments, got 1"},
		"too many":       {"(load t1 l1)", "takes 1 arguments, got 2"},
		"wrong type":     {"(load v1)", "cannot bind parameter"},
		"unrelated type": {"(drive l1 l1)", "cannot bind parameter"},
	}
	p := vehicleProblem(t)
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAction(tc.line, p)
			require.Error(t, err)
			assert.ErrorIs(t, err, convert.ErrPlanParse)
			assert.Contains(t, err.Error(), tc.want)
			assert.Contains(t, err.Error(), tc.line)
		})
	}
}

func TestDecodePlan_SkipsBlankAndComments(t *testing.T) {
	// Blank lines and ";" comments are skipped; order is kept
	p := vehicleProblem(t)
	plan, err := DecodePlan([]string{"(load t1)", "", "   ", "; cost = 2 (unit cost)", "(drive t1 l1)"}, p)
	require.NoError(t, err)
	require.Equal(t, 2, plan.Len())
	assert.Equal(t, "load", plan.Actions()[0].Action().Name())
	assert.Equal(t, "drive", plan.Actions()[1].Action().Name())
}

func TestDecodePlan_StopsAtFirstBadLine(t *testing.T) {
	// The first undecodable line fails the whole plan
	_, err := DecodePlan([]string{"(load t1)", "(load x)"}, vehicleProblem(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, convert.ErrPlanParse)
	assert.Contains(t, err.Error(), "(load x)")
}

func TestDecodePlan_Empty(t *testing.T) {
	// No lines is the empty plan
	plan, err := DecodePlan(nil, vehicleProblem(t))
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, 0, plan.Len())
}
