// Package likelihood estimates Laplace-smoothed per-voxel probability tables
// for a group of observations.
//
// Range mode answers "how likely is this voxel's value to fall in bucket B";
// binary mode answers "how likely is this voxel to be active at or above an
// absolute threshold". Every cell is strictly inside (0, 1).
package likelihood

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/ranges"
)

var (
	// ErrEmptyGroup is returned when a table is requested for no observations.
	ErrEmptyGroup = errors.New("likelihood of an empty group")

	// ErrShapeMismatch is returned when tables or queries disagree on the
	// number of voxels.
	ErrShapeMismatch = errors.New("voxel count mismatch")
)

// Mode selects the estimation strategy.
type Mode string

const (
	ModeRanges Mode = "ranges"
	ModeBinary Mode = "binary"
)

// Table is a voxels-by-columns probability table. Columns are range labels in
// range mode and a single threshold column in binary mode.
type Table struct {
	mode      Mode
	labels    []string
	threshold float64
	n         int
	data      *mat.Dense
}

// InRanges counts, per voxel, the observations falling in each bucket of rt
// and smooths the counts as (count + 1) / (n + k), where n is the group size
// and k the number of buckets (never less than 2). Values outside every
// bucket are not counted.
func InRanges(obs *observation.Table, rt *ranges.Table) (*Table, error) {
	if obs == nil || obs.Len() == 0 {
		return nil, ErrEmptyGroup
	}
	if rt == nil || rt.Len() == 0 {
		return nil, errors.New("likelihood in ranges needs a range table")
	}

	n, voxels, buckets := obs.Len(), obs.Voxels(), rt.Len()
	counts := mat.NewDense(voxels, buckets, nil)
	for i := range n {
		for j := range voxels {
			if b, ok := rt.Lookup(obs.At(i, j)); ok {
				counts.Set(j, b, counts.At(j, b)+1)
			}
		}
	}
	smooth(counts, n, max(buckets, 2))

	return &Table{
		mode:   ModeRanges,
		labels: rt.Labels(),
		n:      n,
		data:   counts,
	}, nil
}

// Binary counts, per voxel, the observations whose absolute value meets or
// exceeds threshold and smooths the counts as (count + 1) / (n + 2). The
// single column is labeled with the threshold itself.
func Binary(obs *observation.Table, threshold float64) (*Table, error) {
	if obs == nil || obs.Len() == 0 {
		return nil, ErrEmptyGroup
	}
	if math.IsNaN(threshold) || threshold < 0 {
		return nil, fmt.Errorf("invalid threshold %v", threshold)
	}

	n, voxels := obs.Len(), obs.Voxels()
	counts := mat.NewDense(voxels, 1, nil)
	for i := range n {
		for j := range voxels {
			if Active(obs.At(i, j), threshold) {
				counts.Set(j, 0, counts.At(j, 0)+1)
			}
		}
	}
	smooth(counts, n, 2)

	return &Table{
		mode:      ModeBinary,
		labels:    []string{ThresholdLabel(threshold)},
		threshold: threshold,
		n:         n,
		data:      counts,
	}, nil
}

// Active reports whether |v| meets threshold. NaN is never active.
func Active(v, threshold float64) bool {
	return math.Abs(v) >= threshold
}

// ThresholdLabel is the column label of a binary table.
func ThresholdLabel(threshold float64) string {
	return strconv.FormatFloat(threshold, 'g', -1, 64)
}

func smooth(counts *mat.Dense, n, k int) {
	denom := float64(n + k)
	counts.Apply(func(_, _ int, c float64) float64 {
		return (c + 1) / denom
	}, counts)
}

// Mode returns the estimation mode.
func (t *Table) Mode() Mode { return t.mode }

// Labels returns the column labels.
func (t *Table) Labels() []string { return slices.Clone(t.labels) }

// Threshold returns the binary threshold. ok is false in range mode.
func (t *Table) Threshold() (threshold float64, ok bool) {
	return t.threshold, t.mode == ModeBinary
}

// N returns the number of observations the table was estimated from.
func (t *Table) N() int { return t.n }

// Voxels returns the number of rows.
func (t *Table) Voxels() int {
	r, _ := t.data.Dims()
	return r
}

// At returns the probability of column col at voxel.
func (t *Table) At(voxel, col int) float64 { return t.data.At(voxel, col) }

// Index returns the column of label.
func (t *Table) Index(label string) (int, bool) {
	i := slices.Index(t.labels, label)
	return i, i >= 0
}

// Column returns a copy of the per-voxel probabilities for label, for
// example to write one image per bucket.
func (t *Table) Column(label string) ([]float64, bool) {
	i, ok := t.Index(label)
	if !ok {
		return nil, false
	}
	return mat.Col(nil, i, t.data), true
}

// Matrix exposes the probabilities read-only.
func (t *Table) Matrix() mat.Matrix { return t.data }

// LogSums returns, per column, the sum of log probabilities over all voxels.
func (t *Table) LogSums() []float64 {
	rows, cols := t.data.Dims()
	sums := make([]float64, cols)
	for i := range rows {
		for j, p := range t.data.RawRowView(i) {
			sums[j] += math.Log(p)
		}
	}
	return sums
}

// SameShape reports ErrShapeMismatch when t and o differ in voxel count.
func (t *Table) SameShape(o *Table) error {
	if t.Voxels() != o.Voxels() {
		return fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, t.Voxels(), o.Voxels())
	}
	return nil
}
