// Package ranges builds the labeled value buckets used to discretize voxel
// intensities before likelihood estimation.
//
// A table is either explicit (caller supplied [start, stop) pairs) or derived
// from the observed population: floor of the minimum to ceiling of the
// maximum in fixed steps. Membership is half-open [start, stop) except for
// the final bucket, which also holds its stop value.
package ranges

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/ontoinfer/observation"
)

// DefaultStep is the bucket width of derived tables.
const DefaultStep = 0.5

// ErrNoValues is returned when a derived table is requested over a
// population without a single finite value.
var ErrNoValues = errors.New("no finite values to derive ranges from")

// RangeSpecError reports a malformed explicit range.
type RangeSpecError struct {
	Index  int
	Reason string
}

func (e *RangeSpecError) Error() string {
	return fmt.Sprintf("range %d: %s", e.Index, e.Reason)
}

// Range is one labeled bucket.
type Range struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
}

// Table is an ordered set of disjoint buckets indexed by label.
type Table struct {
	ranges []Range
	index  map[string]int
}

// Explicit builds a table from [start, stop) pairs. Pairs are ordered by
// start; they must not overlap but may leave gaps.
func Explicit(pairs [][]float64) (*Table, error) {
	if len(pairs) == 0 {
		return nil, &RangeSpecError{Index: -1, Reason: "no ranges given"}
	}
	rs := make([]Range, 0, len(pairs))
	for i, p := range pairs {
		switch {
		case p == nil:
			return nil, &RangeSpecError{Index: i, Reason: "not a list"}
		case len(p) != 2:
			return nil, &RangeSpecError{Index: i, Reason: fmt.Sprintf("expected 2 bounds, got %d", len(p))}
		case math.IsNaN(p[0]) || math.IsNaN(p[1]):
			return nil, &RangeSpecError{Index: i, Reason: "bound is NaN"}
		case p[0] >= p[1]:
			return nil, &RangeSpecError{Index: i, Reason: "start must be below stop"}
		}
		rs = append(rs, Range{Label: Label(p[0], p[1]), Start: p[0], Stop: p[1]})
	}
	return newTable(rs)
}

// Derived builds a contiguous table from floor(lo) to ceil(hi) in buckets of
// width step. Bucket bounds are computed from their index, never by
// accumulating step, and the final stop is exactly ceil(hi). A step that
// would leave a partial trailing bucket is a *RangeSpecError.
func Derived(lo, hi, step float64) (*Table, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, &RangeSpecError{Index: -1, Reason: "step must be positive"}
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, ErrNoValues
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	start, stop := math.Floor(lo)+0, math.Ceil(hi)+0

	if start == stop {
		return newTable([]Range{{Label: Label(start, stop), Start: start, Stop: stop}})
	}

	steps := (stop - start) / step
	n := math.Round(steps)
	if n < 1 || math.Abs(steps-n) > 1e-9*math.Max(1, steps) {
		return nil, &RangeSpecError{Index: -1, Reason: fmt.Sprintf("step %v does not divide [%v,%v] into whole buckets", step, start, stop)}
	}

	rs := make([]Range, int(n))
	for i := range rs {
		a := bound(start, i, step)
		b := bound(start, i+1, step)
		if i == len(rs)-1 {
			b = stop
		}
		rs[i] = Range{Label: Label(a, b), Start: a, Stop: b}
	}
	return newTable(rs)
}

// bound is start + i*step rounded to nine decimals, so bounds such as
// 0.30000000000000004 come out as 0.3.
func bound(start float64, i int, step float64) float64 {
	return math.Round((start+float64(i)*step)*1e9)/1e9 + 0
}

// FromObservations derives a table spanning every finite value of t.
func FromObservations(t *observation.Table, step float64) (*Table, error) {
	lo, hi, ok := t.Range()
	if !ok {
		return nil, ErrNoValues
	}
	return Derived(lo, hi, step)
}

func newTable(rs []Range) (*Table, error) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })

	index := make(map[string]int, len(rs))
	for i, r := range rs {
		if i > 0 && r.Start < rs[i-1].Stop {
			return nil, &RangeSpecError{Index: i, Reason: fmt.Sprintf("%s overlaps %s", r.Label, rs[i-1].Label)}
		}
		if _, dup := index[r.Label]; dup {
			return nil, &RangeSpecError{Index: i, Reason: "duplicate label " + r.Label}
		}
		index[r.Label] = i
	}
	return &Table{ranges: rs, index: index}, nil
}

// Label formats a bucket label such as "[-1.0,-0.5]".
func Label(start, stop float64) string {
	return "[" + formatBound(start) + "," + formatBound(stop) + "]"
}

func formatBound(v float64) string {
	s := strconv.FormatFloat(v+0, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Len returns the number of buckets.
func (t *Table) Len() int { return len(t.ranges) }

// Ranges returns the buckets in ascending order.
func (t *Table) Ranges() []Range { return slices.Clone(t.ranges) }

// Labels returns the bucket labels in ascending order.
func (t *Table) Labels() []string {
	out := make([]string, len(t.ranges))
	for i, r := range t.ranges {
		out[i] = r.Label
	}
	return out
}

// At returns bucket i.
func (t *Table) At(i int) Range { return t.ranges[i] }

// Index returns the position of the bucket labeled label.
func (t *Table) Index(label string) (int, bool) {
	i, ok := t.index[label]
	return i, ok
}

// Bounds returns the lowest start and the highest stop.
func (t *Table) Bounds() (lo, hi float64) {
	return t.ranges[0].Start, t.ranges[len(t.ranges)-1].Stop
}

// Lookup returns the index of the bucket holding v.
func (t *Table) Lookup(v float64) (int, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	// first bucket starting above v, minus one
	i := sort.Search(len(t.ranges), func(i int) bool { return t.ranges[i].Start > v }) - 1
	if i < 0 {
		return 0, false
	}
	r := t.ranges[i]
	if v < r.Stop || (i == len(t.ranges)-1 && v == r.Stop) {
		return i, true
	}
	return 0, false
}

// Equal reports whether both tables hold the same buckets.
func (t *Table) Equal(o *Table) bool {
	return o != nil && slices.Equal(t.ranges, o.ranges)
}

// MarshalJSON encodes the table as an ordered array of buckets.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ranges)
}

// UnmarshalJSON decodes and revalidates a table.
func (t *Table) UnmarshalJSON(data []byte) error {
	var rs []Range
	if err := json.Unmarshal(data, &rs); err != nil {
		return err
	}
	if len(rs) == 0 {
		return &RangeSpecError{Index: -1, Reason: "no ranges given"}
	}
	for i, r := range rs {
		if r.Start > r.Stop || (r.Start == r.Stop && len(rs) > 1) {
			return &RangeSpecError{Index: i, Reason: "start must be below stop"}
		}
	}
	nt, err := newTable(rs)
	if err != nil {
		return err
	}
	*t = *nt
	return nil
}
