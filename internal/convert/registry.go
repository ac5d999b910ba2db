package convert

import (
	"errors"
	"fmt"

	"github.com/haricheung/stripsbridge/internal/strips"
)

// ErrUnknownParent is returned when a type names a parent that has not been resolved.
var ErrUnknownParent = errors.New("parent type not resolved")

// TypeRegistry hands out one strips.Type per name for the lifetime of a single
// conversion, so every predicate, action and object refers to the same node.
//
// Expectations:
//   - The root type "object" exists from construction, with no parent
//   - Resolve is first-writer-wins: later calls ignore the parent argument
//   - Resolve fails when the parent has not been resolved yet
//   - Types lists nodes in resolution order, root first
type TypeRegistry struct {
	types map[string]*strips.Type
	order []*strips.Type
	root  *strips.Type
}

func NewTypeRegistry() *TypeRegistry {
	root := strips.NewType(strips.RootTypeName, nil)
	return &TypeRegistry{
		types: map[string]*strips.Type{root.Name: root},
		order: []*strips.Type{root},
		root:  root,
	}
}

func (r *TypeRegistry) Root() *strips.Type { return r.root }

// Resolve returns the node for name, creating it under parent on first use.
// An empty parent means the root.
func (r *TypeRegistry) Resolve(name, parent string) (*strips.Type, error) {
	if t, ok := r.types[name]; ok {
		return t, nil
	}
	if parent == "" {
		parent = strips.RootTypeName
	}
	p, ok := r.types[parent]
	if !ok {
		return nil, fmt.Errorf("resolve type %q: %w: %q", name, ErrUnknownParent, parent)
	}
	t := strips.NewType(name, p)
	r.types[name] = t
	r.order = append(r.order, t)
	return t, nil
}

// Lookup returns an already resolved type.
func (r *TypeRegistry) Lookup(name string) (*strips.Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns a copy of the resolved nodes in resolution order.
func (r *TypeRegistry) Types() []*strips.Type {
	return append([]*strips.Type(nil), r.order...)
}

func (r *TypeRegistry) Len() int { return len(r.order) }
