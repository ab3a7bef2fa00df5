package session

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateGetDelete(t *testing.T) {
	f := newFixture(fixedPipeline(), nil)
	reg := NewRegistry(f.deps, 10)
	ctx := context.Background()

	s := reg.Create()
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActiveSessions))

	got, err := reg.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = got.Generate(ctx, 1985, 5)
	require.NoError(t, err)

	require.NoError(t, reg.Delete(ctx, s.ID()))
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, f.renderer.Maps())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ActiveSessions))

	_, err = reg.Get(s.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, reg.Delete(ctx, s.ID()), ErrNotFound)
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	f := newFixture(fixedPipeline(), nil)
	reg := NewRegistry(f.deps, 2)
	ctx := context.Background()

	first := reg.Create()
	_, err := first.Generate(ctx, 1985, 5)
	require.NoError(t, err)
	second := reg.Create()

	// Touch first so second becomes the eviction candidate.
	_, err = reg.Get(first.ID())
	require.NoError(t, err)

	reg.Create()

	assert.Equal(t, 2, reg.Len())
	_, err = reg.Get(second.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Get(first.ID())
	assert.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ActiveSessions))

	_, err = second.Generate(ctx, 1985, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_EvictionTearsDownScene(t *testing.T) {
	f := newFixture(fixedPipeline(), nil)
	reg := NewRegistry(f.deps, 1)
	ctx := context.Background()

	old := reg.Create()
	_, err := old.Generate(ctx, 1985, 5)
	require.NoError(t, err)
	require.Equal(t, 1, f.renderer.Maps())

	reg.Create()

	assert.Equal(t, 0, f.renderer.Maps())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ActiveLayers))
}
