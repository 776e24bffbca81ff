package container

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(discardLogger())

	require.NoError(t, r.Register("b", 2))
	require.NoError(t, r.Register("a", 1))
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
	assert.Equal(t, []string{"a", "b"}, r.Names())

	v, err := r.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = r.Load(context.Background(), "c")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	r := NewRegistry(nil)

	assert.Error(t, r.Register("", 1))
	assert.Error(t, r.Register("nil", nil))

	require.NoError(t, r.Register("dup", 1))
	assert.ErrorIs(t, r.Register("dup", 2), ErrModuleAlreadyRegistered)
	assert.Panics(t, func() { r.MustRegister("dup", 3) })
}

func TestLoaderFunc(t *testing.T) {
	loader := LoaderFunc(func(_ context.Context, id string) (any, error) {
		if id == "ok" {
			return "loaded", nil
		}
		return nil, errors.New("unknown")
	})

	v, err := loader.Load(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)

	_, err = loader.Load(context.Background(), "other")
	assert.Error(t, err)
}

func TestErrorsMatchByCode(t *testing.T) {
	err := DependencyFailedError("b", "a", CircularReferenceError("a", []string{"a", "b", "a"}))

	assert.ErrorIs(t, err, ErrDependencyFailed)
	assert.ErrorIs(t, err, ErrCircularReference)
	assert.NotErrorIs(t, err, ErrConstruction)
	assert.Equal(t,
		"[DEPENDENCY_FAILED] component 'b': dependency 'a' failed: [CIRCULAR_REFERENCE] component 'a': circular reference detected: a -> b -> a",
		err.Error())

	var ce *ContainerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "b", ce.Component)
}

func TestAggregatedErrors(t *testing.T) {
	err := WiringError([]error{
		ConstructionError("a", errors.New("boom")),
		UnresolvedReferenceError("b", "x"),
	})

	assert.ErrorIs(t, err, ErrWiring)
	assert.ErrorIs(t, err, ErrConstruction)
	assert.ErrorIs(t, err, ErrUnresolvedReference)
	assert.Contains(t, err.Error(), "2 component(s) failed to wire")

	destroy := DestroyError([]error{componentDestroyError("a", errors.New("stuck"))})
	assert.ErrorIs(t, destroy, ErrDestroy)
	assert.Contains(t, destroy.Error(), "stuck")
}
