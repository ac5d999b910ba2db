package convert

import (
	"fmt"
	"strings"

	"github.com/haricheung/stripsbridge/internal/upf"
)

// ErrorKind classifies why a problem could not be handed to the planner.
type ErrorKind string

const (
	// KindUnsupportedFeature: the problem uses a feature outside the STRIPS fragment.
	KindUnsupportedFeature ErrorKind = "unsupported_feature"

	// KindUnsupportedExpressionShape: a condition is not a literal or a conjunction of literals.
	KindUnsupportedExpressionShape ErrorKind = "unsupported_expression_shape"

	// KindMalformedEffect: an effect value is not a Boolean constant, the effect is
	// conditional, or the same literal is both added and deleted.
	KindMalformedEffect ErrorKind = "malformed_effect"

	// KindPlanParse: a solution line does not decode against the source problem.
	KindPlanParse ErrorKind = "plan_parse_error"

	// KindInvalidConfiguration: the solver was built with options it does not know.
	KindInvalidConfiguration ErrorKind = "invalid_configuration"
)

// Error carries a failure of the conversion pipeline together with the part of
// the source model it concerns. errors.Is matches on Kind, so the package-level
// sentinels can be used as targets.
type Error struct {
	Kind ErrorKind

	// Problem is the name of the source problem.
	Problem string

	// Subject names the offending action, fluent, expression or line.
	Subject string

	// Feature is set for KindUnsupportedFeature.
	Feature upf.Feature

	Message string
	Cause   error
	Context map[string]any
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedFeature         = &Error{Kind: KindUnsupportedFeature}
	ErrUnsupportedExpressionShape = &Error{Kind: KindUnsupportedExpressionShape}
	ErrMalformedEffect            = &Error{Kind: KindMalformedEffect}
	ErrPlanParse                  = &Error{Kind: KindPlanParse}
	ErrInvalidConfiguration       = &Error{Kind: KindInvalidConfiguration}
)

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", e.Kind)
	if e.Problem != "" {
		fmt.Fprintf(&sb, " problem %q:", e.Problem)
	}
	if e.Subject != "" {
		fmt.Fprintf(&sb, " %s:", e.Subject)
	}
	sb.WriteByte(' ')
	sb.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithContext attaches a key/value pair for diagnostics.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func newError(kind ErrorKind, problem, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Problem: problem, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// UnsupportedFeature reports a problem feature the planner cannot express.
func UnsupportedFeature(problem string, feature upf.Feature, format string, args ...any) *Error {
	e := newError(KindUnsupportedFeature, problem, string(feature), format, args...)
	e.Feature = feature
	return e
}

// UnsupportedExpressionShape reports a condition outside the conjunctive fragment.
func UnsupportedExpressionShape(problem, subject, format string, args ...any) *Error {
	return newError(KindUnsupportedExpressionShape, problem, subject, format, args...)
}

// MalformedEffect reports an effect that has no add/delete reading.
func MalformedEffect(problem, subject, format string, args ...any) *Error {
	return newError(KindMalformedEffect, problem, subject, format, args...)
}

// PlanParseError reports a solution line that does not decode.
func PlanParseError(problem, line, format string, args ...any) *Error {
	return newError(KindPlanParse, problem, fmt.Sprintf("line %q", line), format, args...)
}

// InvalidConfiguration reports unknown solver options.
func InvalidConfiguration(format string, args ...any) *Error {
	return newError(KindInvalidConfiguration, "", "", format, args...)
}
