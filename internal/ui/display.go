// Package ui renders solver output for the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/haricheung/stripsbridge/internal/upf"
)

// ANSI codes
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

// Display writes plans, feature reports and errors to w.
type Display struct {
	w     io.Writer
	color bool
	width int
}

// New returns a Display. width <= 0 selects DefaultWidth.
func New(w io.Writer, color bool, width int) *Display {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Display{w: w, color: color, width: width}
}

func (d *Display) paint(code, s string) string {
	if !d.color {
		return s
	}
	return code + s + ansiReset
}

// Plan prints a numbered plan, or a no-plan notice when plan is nil.
//
// Expectations:
//   - step numbers are right-aligned to the widest number
//   - every step line fits within the display width, clipped with "…"
//   - an empty plan prints the header and "(empty plan)"
func (d *Display) Plan(problem string, plan *upf.SequentialPlan) {
	if plan == nil {
		fmt.Fprintln(d.w, d.paint(ansiRed, "✗ no plan found for "+problem))
		return
	}
	fmt.Fprintln(d.w, d.paint(ansiGreen+ansiBold, fmt.Sprintf("✓ plan for %s (%d steps)", problem, plan.Len())))
	if plan.Len() == 0 {
		fmt.Fprintln(d.w, d.paint(ansiDim, "  (empty plan)"))
		return
	}
	numWidth := len(fmt.Sprint(plan.Len()))
	prefixCols := 2 + numWidth + 2
	for i, a := range plan.Actions() {
		num := fmt.Sprintf("%*d", numWidth, i+1)
		fmt.Fprintf(d.w, "  %s  %s\n", d.paint(ansiDim, num), clipCols(a.String(), d.width-prefixCols))
	}
}

// Kind prints the feature set of a problem and whether the planner accepts it.
// reason is shown when the problem is not supported; it may be nil.
func (d *Display) Kind(problem string, kind upf.ProblemKind, supported bool, reason error) {
	features := kind.Features()
	labelCols := 0
	for _, f := range features {
		if w := runewidth.StringWidth(string(f)); w > labelCols {
			labelCols = w
		}
	}
	fmt.Fprintln(d.w, d.paint(ansiBold, "problem "+problem))
	if len(features) == 0 {
		fmt.Fprintln(d.w, d.paint(ansiDim, "  (no features)"))
	}
	for _, f := range features {
		fmt.Fprintf(d.w, "  %s  %s\n", runewidth.FillRight(string(f), labelCols), d.featureMark(f))
	}
	if supported {
		fmt.Fprintln(d.w, d.paint(ansiGreen, "✓ supported by Pyperplan"))
		return
	}
	msg := "✗ not supported by Pyperplan"
	if reason != nil {
		msg += ": " + reason.Error()
	}
	fmt.Fprintln(d.w, d.paint(ansiRed, clipCols(msg, d.width)))
}

func (d *Display) featureMark(f upf.Feature) string {
	if f == upf.FeatureFlatTyping {
		return d.paint(ansiGreen, "ok")
	}
	return d.paint(ansiYellow, "unsupported")
}

// Error prints err on one line.
func (d *Display) Error(err error) {
	fmt.Fprintln(d.w, d.paint(ansiRed, "error: "+strings.TrimSpace(err.Error())))
}

// clipCols truncates s so its visual width, including the trailing "…", is at
// most cols. Wide runes (CJK, full-width forms) count as two columns.
func clipCols(s string, cols int) string {
	if cols <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= cols {
		return s
	}
	return runewidth.Truncate(s, cols, "…")
}
