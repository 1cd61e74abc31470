package inference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ontoinfer/likelihood"
	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/ranges"
)

func obs(t *testing.T, rows ...[]float64) *observation.Table {
	t.Helper()
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = string(rune('a' + i))
	}
	o, err := observation.New(ids, rows)
	require.NoError(t, err)
	return o
}

func TestNewPriors(t *testing.T) {
	assert.Equal(t, Priors{In: 0.25, Out: 0.75}, NewPriors(1, 3, false))
	assert.Equal(t, EqualPriors, NewPriors(1, 3, true))
	assert.Equal(t, EqualPriors, NewPriors(0, 0, false))
}

func TestThresholdPosteriorIdenticalTables(t *testing.T) {
	rt, err := ranges.Derived(-2, 1, ranges.DefaultStep)
	require.NoError(t, err)
	group := obs(t, []float64{-1.2, 0.3, 0.9}, []float64{0.1, -0.4, 1})

	in, err := likelihood.InRanges(group, rt)
	require.NoError(t, err)
	out, err := likelihood.InRanges(group, rt)
	require.NoError(t, err)

	scores, err := ThresholdPosterior(in, out, NewPriors(2, 40, true))
	require.NoError(t, err)
	require.Len(t, scores, rt.Len())
	for _, s := range scores {
		assert.Equal(t, 0.5, s.Posterior, s.Label)
	}
}

func TestThresholdPosteriorBinary(t *testing.T) {
	in, err := likelihood.Binary(obs(t, []float64{3, 3}, []float64{3, 0}), 1)
	require.NoError(t, err)
	out, err := likelihood.Binary(obs(t, []float64{0, 0}), 1)
	require.NoError(t, err)

	scores, err := ThresholdPosterior(in, out, EqualPriors)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "1", scores[0].Label)

	sumIn := math.Log(3.0/4) + math.Log(2.0/4)
	sumOut := 2 * math.Log(1.0/3)
	assert.InDelta(t, sumIn/(sumIn+sumOut), scores[0].Posterior, 1e-12)
}

func TestCompatible(t *testing.T) {
	t.Run("ThresholdMismatch", func(t *testing.T) {
		in, err := likelihood.Binary(obs(t, []float64{1}), 1)
		require.NoError(t, err)
		out, err := likelihood.Binary(obs(t, []float64{1}), 2)
		require.NoError(t, err)

		_, err = ThresholdPosterior(in, out, EqualPriors)
		var pme *PriorMismatchError
		require.ErrorAs(t, err, &pme)
		assert.Equal(t, "1", pme.In)
		assert.Equal(t, "2", pme.Out)
	})

	t.Run("ColumnMismatch", func(t *testing.T) {
		a, err := ranges.Explicit([][]float64{{0, 1}})
		require.NoError(t, err)
		b, err := ranges.Explicit([][]float64{{0, 2}})
		require.NoError(t, err)
		in, err := likelihood.InRanges(obs(t, []float64{0.5}), a)
		require.NoError(t, err)
		out, err := likelihood.InRanges(obs(t, []float64{0.5}), b)
		require.NoError(t, err)

		_, err = ThresholdPosterior(in, out, EqualPriors)
		require.ErrorIs(t, err, ErrColumnMismatch)
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		in, err := likelihood.Binary(obs(t, []float64{1, 2}), 1)
		require.NoError(t, err)
		out, err := likelihood.Binary(obs(t, []float64{1}), 1)
		require.NoError(t, err)

		_, err = ThresholdPosterior(in, out, EqualPriors)
		require.ErrorIs(t, err, likelihood.ErrShapeMismatch)
	})
}

func TestImagePosteriorRanges(t *testing.T) {
	rt, err := ranges.Derived(-2, 1, ranges.DefaultStep)
	require.NoError(t, err)
	in, err := likelihood.InRanges(obs(t, []float64{0.2, 0.7}, []float64{0.3, 0.8}), rt)
	require.NoError(t, err)
	out, err := likelihood.InRanges(obs(t, []float64{-1.7, -1.2}, []float64{-1.6, -1.1}), rt)
	require.NoError(t, err)

	t.Run("AllOutOfRange", func(t *testing.T) {
		got, err := ImagePosterior(obs(t, []float64{50, -50}), in, out, EqualPriors, rt)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
		assert.False(t, math.IsNaN(got))
	})

	t.Run("PartlyOutOfRange", func(t *testing.T) {
		got, err := ImagePosterior(obs(t, []float64{0.25, 50}), in, out, EqualPriors, rt)
		require.NoError(t, err)

		b, _ := rt.Lookup(0.25)
		sumIn, sumOut := math.Log(in.At(0, b)), math.Log(out.At(0, b))
		assert.InDelta(t, sumIn/(sumIn+sumOut), got, 1e-12)
	})

	t.Run("MultiRowQueryIsAveraged", func(t *testing.T) {
		avg, err := ImagePosterior(obs(t, []float64{0.25, 0.75}), in, out, EqualPriors, rt)
		require.NoError(t, err)
		multi, err := ImagePosterior(obs(t, []float64{0.2, 0.7}, []float64{0.3, 0.8}), in, out, EqualPriors, rt)
		require.NoError(t, err)
		assert.InDelta(t, avg, multi, 1e-12)
	})

	t.Run("NeedsRangeTable", func(t *testing.T) {
		_, err := ImagePosterior(obs(t, []float64{0.25, 0.75}), in, out, EqualPriors, nil)
		require.ErrorIs(t, err, ErrColumnMismatch)
	})

	t.Run("QueryShape", func(t *testing.T) {
		_, err := ImagePosterior(obs(t, []float64{0.25}), in, out, EqualPriors, rt)
		require.ErrorIs(t, err, likelihood.ErrShapeMismatch)
	})
}

func TestImagePosteriorBinary(t *testing.T) {
	in, err := likelihood.Binary(obs(t, []float64{2}, []float64{-3}), 1)
	require.NoError(t, err)
	out, err := likelihood.Binary(obs(t, []float64{0}, []float64{0.5}), 1)
	require.NoError(t, err)

	active, err := ImagePosterior(obs(t, []float64{5}), in, out, EqualPriors, nil)
	require.NoError(t, err)
	li, lo := math.Log(0.75), math.Log(0.25)
	assert.InDelta(t, li/(li+lo), active, 1e-12)

	inactive, err := ImagePosterior(obs(t, []float64{0}), in, out, EqualPriors, nil)
	require.NoError(t, err)
	assert.InDelta(t, lo/(lo+li), inactive, 1e-12)

	nan, err := ImagePosterior(obs(t, []float64{math.NaN()}), in, out, EqualPriors, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, nan)
}

func TestDistancePosterior(t *testing.T) {
	in := obs(t, []float64{1, 2, 3})
	out := obs(t, []float64{3, 1, 2})

	got, err := DistancePosterior(obs(t, []float64{1, 2, 3}), in, out, EqualPriors)
	require.NoError(t, err)
	// r_in = 1, r_out = -0.5
	assert.InDelta(t, 0.5/(0.5+0.125), got, 1e-12)

	t.Run("ConstantQuery", func(t *testing.T) {
		got, err := DistancePosterior(obs(t, []float64{4, 4, 4}), in, out, EqualPriors)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})

	t.Run("Shape", func(t *testing.T) {
		_, err := DistancePosterior(obs(t, []float64{1, 2}), in, out, EqualPriors)
		require.ErrorIs(t, err, likelihood.ErrShapeMismatch)
	})
}
