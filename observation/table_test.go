package observation

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	tbl, err := New([]string{"a", "b", "c"}, [][]float64{
		{1, -2, 0.5},
		{3, 0, 0.5},
		{2, 1, math.NaN()},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 3, tbl.Voxels())
	assert.True(t, tbl.Has("b"))
	assert.False(t, tbl.Has("z"))

	t.Run("Mean", func(t *testing.T) {
		sub, err := tbl.Subset([]string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, []float64{2, -1, 0.5}, sub.Mean())
	})

	t.Run("MeanOfSingleRow", func(t *testing.T) {
		sub, err := tbl.Subset([]string{"b"})
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 0, 0.5}, sub.Mean())
	})

	t.Run("RangeSkipsNaN", func(t *testing.T) {
		lo, hi, ok := tbl.Range()
		require.True(t, ok)
		assert.Equal(t, -2.0, lo)
		assert.Equal(t, 3.0, hi)
	})

	t.Run("SubsetCopies", func(t *testing.T) {
		sub, err := tbl.Subset([]string{"c", "a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, sub.IDs())
		assert.Equal(t, 1.0, sub.At(1, 0))
	})

	t.Run("SubsetUnknown", func(t *testing.T) {
		_, err := tbl.Subset([]string{"zz"})
		require.ErrorIs(t, err, ErrUnknownID)
	})
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, nil)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = New([]string{"a", "b"}, [][]float64{{1, 2}, {1}})
	var se *ErrShape
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Row)

	_, err = New([]string{"a", "a"}, [][]float64{{1}, {2}})
	var de *ErrDuplicateID
	require.ErrorAs(t, err, &de)
}

func TestCSV(t *testing.T) {
	src := "id,v0,v1\nimg1,1.5,-2\nimg2,,3\n"
	tbl, err := ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"img1", "img2"}, tbl.IDs())
	assert.True(t, math.IsNaN(tbl.At(1, 0)))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	again, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Row(0), again.Row(0))

	_, err = ReadCSV(strings.NewReader("id,v0\nx,abc\n"))
	require.Error(t, err)
}

func TestCorrespond(t *testing.T) {
	files := []string{
		"/data/maps/DS000017_zstat1.nii.gz",
		"/data/maps/DS000009_zstat2.nii.gz",
		"/data/maps/DS000009_zstat1.nii.gz",
	}
	got := Correspond([]string{"DS000009", "DS000017", "DS999999"}, files)
	assert.Equal(t, map[string]string{
		"DS000009": "/data/maps/DS000009_zstat1.nii.gz",
		"DS000017": "/data/maps/DS000017_zstat1.nii.gz",
	}, got)
}
