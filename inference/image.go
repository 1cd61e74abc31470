package inference

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/ontoinfer/likelihood"
	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/ranges"
)

// ImagePosterior scores a query against a pair of likelihood tables. A query
// with several rows is averaged first.
//
// With a range table each voxel is assigned its bucket and looked up in both
// tables. Without one the tables must be binary: a voxel uses p when its
// absolute value meets the shared threshold and 1-p otherwise. Voxels that
// fall outside every bucket (or are NaN) contribute nothing; a query with no
// contributing voxel scores 0.
func ImagePosterior(query *observation.Table, in, out *likelihood.Table, p Priors, rt *ranges.Table) (float64, error) {
	if err := Compatible(in, out); err != nil {
		return 0, err
	}
	q := query.Mean()
	if len(q) != in.Voxels() {
		return 0, fmt.Errorf("%w: query has %d voxels, tables %d", likelihood.ErrShapeMismatch, len(q), in.Voxels())
	}

	var (
		sumIn, sumOut float64
		evidence      int
	)
	if rt != nil {
		if in.Mode() != likelihood.ModeRanges || !slices.Equal(in.Labels(), rt.Labels()) {
			return 0, fmt.Errorf("%w: range table does not match likelihood columns", ErrColumnMismatch)
		}
		for j, v := range q {
			b, ok := rt.Lookup(v)
			if !ok {
				continue
			}
			sumIn += math.Log(in.At(j, b))
			sumOut += math.Log(out.At(j, b))
			evidence++
		}
	} else {
		threshold, ok := in.Threshold()
		if !ok {
			return 0, fmt.Errorf("%w: range-mode tables need a range table", ErrColumnMismatch)
		}
		for j, v := range q {
			if math.IsNaN(v) {
				continue
			}
			pi, po := in.At(j, 0), out.At(j, 0)
			if !likelihood.Active(v, threshold) {
				pi, po = 1-pi, 1-po
			}
			sumIn += math.Log(pi)
			sumOut += math.Log(po)
			evidence++
		}
	}

	if evidence == 0 {
		return 0, nil
	}
	return ratio(sumIn, sumOut, p), nil
}

// DistancePosterior needs no likelihood tables: it correlates the (averaged)
// query with the mean of each group and uses the squared Pearson
// correlations as evidence. Voxels that are NaN in any of the three vectors
// are ignored. An undefined correlation counts as no evidence.
func DistancePosterior(query, in, out *observation.Table, p Priors) (float64, error) {
	if in == nil || out == nil {
		return 0, errors.New("distance posterior needs both groups")
	}
	q, mi, mo := query.Mean(), in.Mean(), out.Mean()
	if len(q) != len(mi) || len(q) != len(mo) {
		return 0, fmt.Errorf("%w: query %d, in %d, out %d", likelihood.ErrShapeMismatch, len(q), len(mi), len(mo))
	}

	xs := make([]float64, 0, len(q))
	ys := make([]float64, 0, len(q))
	zs := make([]float64, 0, len(q))
	for j := range q {
		if math.IsNaN(q[j]) || math.IsNaN(mi[j]) || math.IsNaN(mo[j]) {
			continue
		}
		xs, ys, zs = append(xs, q[j]), append(ys, mi[j]), append(zs, mo[j])
	}

	return ratio(squaredCorrelation(xs, ys), squaredCorrelation(xs, zs), p), nil
}

func squaredCorrelation(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r * r
}
