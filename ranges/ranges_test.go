package ranges

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ontoinfer/observation"
)

func TestDerivedContiguous(t *testing.T) {
	tbl, err := Derived(-2.0, 1.0, DefaultStep)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"[-2.0,-1.5]", "[-1.5,-1.0]", "[-1.0,-0.5]",
		"[-0.5,0.0]", "[0.0,0.5]", "[0.5,1.0]",
	}, tbl.Labels())

	rs := tbl.Ranges()
	assert.Equal(t, -2.0, rs[0].Start)
	assert.Equal(t, 1.0, rs[len(rs)-1].Stop)
	for i := 1; i < len(rs); i++ {
		assert.Equal(t, rs[i-1].Stop, rs[i].Start, "gap or overlap at %d", i)
	}
}

func TestDerivedRoundsOutward(t *testing.T) {
	tbl, err := Derived(-1.3, 2.2, DefaultStep)
	require.NoError(t, err)
	lo, hi := tbl.Bounds()
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 3.0, hi)
	assert.Equal(t, 10, tbl.Len())
}

func TestDerivedNoDrift(t *testing.T) {
	tbl, err := Derived(0, 1000, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 10000, tbl.Len())
	_, hi := tbl.Bounds()
	assert.Equal(t, 1000.0, hi)
}

func TestDerivedSinglePoint(t *testing.T) {
	tbl, err := Derived(3, 3, DefaultStep)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())

	i, ok := tbl.Lookup(3)
	assert.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestDerivedErrors(t *testing.T) {
	_, err := Derived(0, 1, 0)
	var rse *RangeSpecError
	require.ErrorAs(t, err, &rse)

	_, err = Derived(math.NaN(), 1, 0.5)
	require.ErrorIs(t, err, ErrNoValues)
}

func TestDerivedRejectsPartialBucket(t *testing.T) {
	for _, step := range []float64{0.3, 0.7, 2} {
		_, err := Derived(0, 1, step)
		var rse *RangeSpecError
		require.ErrorAs(t, err, &rse, "step %v", step)
	}
}

func TestDerivedDecimalStepLabels(t *testing.T) {
	tbl, err := Derived(0, 1, 0.1)
	require.NoError(t, err)
	require.Equal(t, 10, tbl.Len())

	labels := tbl.Labels()
	assert.Equal(t, "[0.2,0.3]", labels[2])
	assert.Equal(t, "[0.9,1.0]", labels[9])

	rs := tbl.Ranges()
	for i := 1; i < len(rs); i++ {
		assert.Equal(t, rs[i-1].Stop, rs[i].Start)
	}
}

func TestLookup(t *testing.T) {
	tbl, err := Derived(-2, 1, DefaultStep)
	require.NoError(t, err)

	tests := []struct {
		name  string
		value float64
		label string
		ok    bool
	}{
		{"LowerBound", -2, "[-2.0,-1.5]", true},
		{"Seam", -1.5, "[-1.5,-1.0]", true},
		{"Interior", 0.25, "[0.0,0.5]", true},
		{"Zero", 0, "[0.0,0.5]", true},
		{"UpperBoundClosed", 1, "[0.5,1.0]", true},
		{"Below", -2.01, "", false},
		{"Above", 1.01, "", false},
		{"NaN", math.NaN(), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, ok := tbl.Lookup(tt.value)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.label, tbl.At(i).Label)
			}
		})
	}
}

func TestExplicit(t *testing.T) {
	tbl, err := Explicit([][]float64{{0, 1}, {-1, 0}, {2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []string{"[-1.0,0.0]", "[0.0,1.0]", "[2.0,3.0]"}, tbl.Labels())

	// gap between 1 and 2
	_, ok := tbl.Lookup(1.5)
	assert.False(t, ok)

	i, ok := tbl.Index("[2.0,3.0]")
	require.True(t, ok)
	assert.Equal(t, 2, i)
}

func TestExplicitErrors(t *testing.T) {
	tests := []struct {
		name  string
		pairs [][]float64
		index int
	}{
		{"Empty", nil, -1},
		{"NotAList", [][]float64{{0, 1}, nil}, 1},
		{"WrongLength", [][]float64{{0, 1, 2}}, 0},
		{"Reversed", [][]float64{{1, 0}}, 0},
		{"Overlap", [][]float64{{0, 1}, {0.5, 2}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Explicit(tt.pairs)
			var rse *RangeSpecError
			require.ErrorAs(t, err, &rse)
			assert.Equal(t, tt.index, rse.Index)
		})
	}
}

func TestFromObservations(t *testing.T) {
	obs, err := observation.New([]string{"a", "b"}, [][]float64{{-1.2, 0.4}, {0.9, math.NaN()}})
	require.NoError(t, err)

	tbl, err := FromObservations(obs, DefaultStep)
	require.NoError(t, err)
	lo, hi := tbl.Bounds()
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestJSON(t *testing.T) {
	tbl, err := Derived(-1, 1, DefaultStep)
	require.NoError(t, err)

	data, err := json.Marshal(tbl)
	require.NoError(t, err)

	var back Table
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, tbl.Equal(&back))
}
