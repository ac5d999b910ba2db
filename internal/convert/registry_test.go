package convert

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haricheung/stripsbridge/internal/strips"
)

func TestTypeRegistry_RootPreSeeded(t *testing.T) {
	// The root "object" exists before any user type and has no parent
	r := NewTypeRegistry()
	root, ok := r.Lookup(strips.RootTypeName)
	require.True(t, ok)
	assert.Nil(t, root.Parent)
	assert.Same(t, root, r.Root())
	assert.Equal(t, 1, r.Len())
}

func TestTypeRegistry_ResolveIsIdempotent(t *testing.T) {
	// Resolving a name twice returns the identical node, even across other resolutions
	r := NewTypeRegistry()
	first, err := r.Resolve("block", "")
	require.NoError(t, err)
	_, err = r.Resolve("table", "")
	require.NoError(t, err)
	second, err := r.Resolve("block", "")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestTypeRegistry_FirstWriterWins(t *testing.T) {
	// A later resolve with a different parent keeps the original parent
	r := NewTypeRegistry()
	vehicle, err := r.Resolve("vehicle", "")
	require.NoError(t, err)
	truck, err := r.Resolve("truck", "vehicle")
	require.NoError(t, err)
	again, err := r.Resolve("truck", "")
	require.NoError(t, err)
	assert.Same(t, truck, again)
	assert.Same(t, vehicle, again.Parent)
}

func TestTypeRegistry_UnknownParentFails(t *testing.T) {
	// A parent must be resolved before its children
	r := NewTypeRegistry()
	_, err := r.Resolve("truck", "vehicle")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownParent))
	_, ok := r.Lookup("truck")
	assert.False(t, ok, "failed resolve must not register the type")
}

func TestTypeRegistry_TypesInResolutionOrder(t *testing.T) {
	// Types lists root first, then user types in the order they were resolved
	r := NewTypeRegistry()
	_, _ = r.Resolve("b", "")
	_, _ = r.Resolve("a", "b")
	names := []string{}
	for _, ty := range r.Types() {
		names = append(names, ty.Name)
	}
	assert.Equal(t, []string{"object", "b", "a"}, names)
}
