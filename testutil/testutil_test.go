package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformRows(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformRows(8, 32, -1, 1)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	for _, row := range v {
		for _, x := range row {
			assert.GreaterOrEqual(t, x, -1.0)
			assert.Less(t, x, 1.0)
		}
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniformRows(1, 10, 0, 1)

	rng.Reset()
	v2 := rng.UniformRows(1, 10, 0, 1)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestFillUniformRange(t *testing.T) {
	rng := NewRNG(1)
	dst := make([]float64, 100)
	rng.FillUniformRange(dst, 2, 3)
	for _, x := range dst {
		assert.GreaterOrEqual(t, x, 2.0)
		assert.Less(t, x, 3.0)
	}
}

func TestFixture(t *testing.T) {
	fx, err := NewFixture(NewRNG(4711), 3, 4, 6)
	require.NoError(t, err)

	assert.Equal(t, 12, fx.Observations.Len())
	assert.Equal(t, 6, fx.Observations.Voxels())
	assert.Len(t, fx.Correspondence, 12)
	assert.Len(t, fx.Patterns, 3)

	// four own leaves plus the shared last leaf of the previous concept
	id, ok := fx.Tree.FindByName("CONCEPT_2")
	require.True(t, ok)
	assert.Len(t, fx.Tree.Children(id), 5)
}

func TestFixtureDeterministic(t *testing.T) {
	a, err := NewFixture(NewRNG(7), 2, 3, 4)
	require.NoError(t, err)
	b, err := NewFixture(NewRNG(7), 2, 3, 4)
	require.NoError(t, err)

	for i := range a.Observations.Len() {
		assert.Equal(t, a.Observations.Row(i), b.Observations.Row(i))
	}
}
