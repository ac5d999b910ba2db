// Package upf is the source-side planning object model: typed objects, fluents,
// parametrized actions and the expression DAG their conditions and effects are
// built from. Converters only read it.
package upf

import (
	"fmt"
	"strings"
)

// TypeKind distinguishes user types from the built-in value types.
type TypeKind int

const (
	KindUser TypeKind = iota
	KindBool
	KindInt
	KindReal
)

// Type is a node of the single-inheritance user type hierarchy, or one of the
// built-in bool/int/real value types.
type Type struct {
	name   string
	father *Type
	kind   TypeKind
}

var (
	boolType = &Type{name: "bool", kind: KindBool}
	intType  = &Type{name: "integer", kind: KindInt}
	realType = &Type{name: "real", kind: KindReal}
)

// UserType creates a named user type. father may be nil.
func UserType(name string, father *Type) *Type {
	return &Type{name: name, father: father, kind: KindUser}
}

func BoolType() *Type { return boolType }
func IntType() *Type  { return intType }
func RealType() *Type { return realType }

func (t *Type) Name() string        { return t.name }
func (t *Type) Father() *Type       { return t.father }
func (t *Type) Kind() TypeKind      { return t.kind }
func (t *Type) IsUserType() bool    { return t.kind == KindUser }
func (t *Type) IsBoolType() bool    { return t.kind == KindBool }
func (t *Type) IsNumericType() bool { return t.kind == KindInt || t.kind == KindReal }

func (t *Type) String() string {
	if t.father != nil {
		return fmt.Sprintf("%s - %s", t.name, t.father.name)
	}
	return t.name
}

// Parameter is a typed slot of an action or fluent signature.
type Parameter struct {
	name string
	typ  *Type
}

func NewParameter(name string, typ *Type) *Parameter {
	return &Parameter{name: name, typ: typ}
}

func (p *Parameter) Name() string   { return p.name }
func (p *Parameter) Type() *Type    { return p.typ }
func (p *Parameter) String() string { return p.name + " - " + p.typ.name }

// Object is a typed constant of the problem.
type Object struct {
	name string
	typ  *Type
}

func NewObject(name string, typ *Type) *Object {
	return &Object{name: name, typ: typ}
}

func (o *Object) Name() string   { return o.name }
func (o *Object) Type() *Type    { return o.typ }
func (o *Object) String() string { return o.name }

// Fluent is a predicate schema: a value type plus an ordered typed signature.
// Boolean fluents are the only ones a STRIPS target can express.
type Fluent struct {
	name      string
	typ       *Type
	signature []*Parameter
}

// NewFluent creates a fluent. A nil valueType means bool.
func NewFluent(name string, valueType *Type, signature ...*Parameter) *Fluent {
	if valueType == nil {
		valueType = boolType
	}
	return &Fluent{name: name, typ: valueType, signature: signature}
}

func (f *Fluent) Name() string            { return f.name }
func (f *Fluent) Type() *Type             { return f.typ }
func (f *Fluent) Signature() []*Parameter { return f.signature }
func (f *Fluent) Arity() int              { return len(f.signature) }

func (f *Fluent) String() string {
	parts := make([]string, len(f.signature))
	for i, p := range f.signature {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s %s(%s)", f.typ.name, f.name, strings.Join(parts, ", "))
}
