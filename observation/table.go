// Package observation holds the numeric observation tables the inference
// engine consumes: one row per observation (an image reduced to a vector),
// one column per voxel or region.
package observation

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmpty is returned when a table has no rows or no columns.
	ErrEmpty = errors.New("empty observation table")

	// ErrUnknownID is returned when an observation id is not in the table.
	ErrUnknownID = errors.New("unknown observation id")
)

// ErrShape indicates rows of inconsistent length.
type ErrShape struct {
	Row      int
	Expected int
	Actual   int
}

func (e *ErrShape) Error() string {
	return fmt.Sprintf("row %d has %d values, expected %d", e.Row, e.Actual, e.Expected)
}

// ErrDuplicateID indicates an observation id used twice.
type ErrDuplicateID struct {
	ID string
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate observation id %q", e.ID)
}

// Table is an immutable observations-by-voxels matrix with row ids.
type Table struct {
	ids   []string
	index map[string]int
	data  *mat.Dense
}

// New builds a table from row-major values.
func New(ids []string, rows [][]float64) (*Table, error) {
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("%d ids for %d rows", len(ids), len(rows))
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmpty
	}

	cols := len(rows[0])
	backing := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, &ErrShape{Row: i, Expected: cols, Actual: len(r)}
		}
		backing = append(backing, r...)
	}
	return FromDense(ids, mat.NewDense(len(rows), cols, backing))
}

// FromDense wraps an existing matrix. The matrix must not be modified
// afterwards.
func FromDense(ids []string, data *mat.Dense) (*Table, error) {
	if data == nil || data.IsEmpty() {
		return nil, ErrEmpty
	}
	r, _ := data.Dims()
	if len(ids) != r {
		return nil, fmt.Errorf("%d ids for %d rows", len(ids), r)
	}

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := index[id]; ok {
			return nil, &ErrDuplicateID{ID: id}
		}
		index[id] = i
	}
	return &Table{ids: slices.Clone(ids), index: index, data: data}, nil
}

// IDs returns the observation ids in row order.
func (t *Table) IDs() []string { return slices.Clone(t.ids) }

// Len returns the number of observations.
func (t *Table) Len() int { return len(t.ids) }

// Voxels returns the number of columns.
func (t *Table) Voxels() int {
	_, c := t.data.Dims()
	return c
}

// Has reports whether id is a row of the table.
func (t *Table) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// At returns the value of observation i at voxel j.
func (t *Table) At(i, j int) float64 { return t.data.At(i, j) }

// Row returns a copy of observation i.
func (t *Table) Row(i int) []float64 { return mat.Row(nil, i, t.data) }

// Matrix exposes the underlying values read-only.
func (t *Table) Matrix() mat.Matrix { return t.data }

// Subset returns a new table holding ids, in the given order. The values are
// copied, so the result shares no state with t.
func (t *Table) Subset(ids []string) (*Table, error) {
	if len(ids) == 0 {
		return nil, ErrEmpty
	}
	cols := t.Voxels()
	out := mat.NewDense(len(ids), cols, nil)
	for i, id := range ids {
		src, ok := t.index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
		}
		out.SetRow(i, t.data.RawRowView(src))
	}
	return FromDense(ids, out)
}

// Mean returns the per-voxel mean across observations.
func (t *Table) Mean() []float64 {
	rows, cols := t.data.Dims()
	if rows == 1 {
		return t.Row(0)
	}
	mean := make([]float64, cols)
	col := make([]float64, rows)
	for j := range cols {
		mat.Col(col, j, t.data)
		mean[j] = stat.Mean(col, nil)
	}
	return mean
}

// Range returns the minimum and maximum finite value in the table.
// ok is false when the table holds no finite value.
func (t *Table) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range t.ids {
		row := t.data.RawRowView(i)
		if !allFinite(row) {
			row = finite(row)
			if len(row) == 0 {
				continue
			}
		}
		lo = math.Min(lo, floats.Min(row))
		hi = math.Max(hi, floats.Max(row))
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 0, false
	}
	return lo, hi, true
}

func allFinite(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finite(row []float64) []float64 {
	out := make([]float64, 0, len(row))
	for _, v := range row {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	return &Table{
		ids:   slices.Clone(t.ids),
		index: maps.Clone(t.index),
		data:  mat.DenseCopyOf(t.data),
	}
}

// Bytes is an estimate of the memory held by the table's values.
func (t *Table) Bytes() int64 {
	r, c := t.data.Dims()
	return int64(r) * int64(c) * 8
}
