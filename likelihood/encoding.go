package likelihood

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

type tableJSON struct {
	Mode      Mode      `json:"mode"`
	Labels    []string  `json:"labels"`
	Threshold float64   `json:"threshold,omitempty"`
	N         int       `json:"n"`
	Voxels    int       `json:"voxels"`
	Data      []float64 `json:"data"`
}

// MarshalJSON encodes the table with its probabilities in voxel-major order.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows, cols := t.data.Dims()
	data := make([]float64, 0, rows*cols)
	for i := range rows {
		data = append(data, t.data.RawRowView(i)...)
	}
	return json.Marshal(tableJSON{
		Mode:      t.mode,
		Labels:    t.labels,
		Threshold: t.threshold,
		N:         t.n,
		Voxels:    rows,
		Data:      data,
	})
}

// UnmarshalJSON decodes a table written by MarshalJSON.
func (t *Table) UnmarshalJSON(b []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Mode {
	case ModeRanges:
	case ModeBinary:
		if len(raw.Labels) != 1 {
			return fmt.Errorf("binary table with %d columns", len(raw.Labels))
		}
	default:
		return fmt.Errorf("unknown likelihood mode %q", raw.Mode)
	}
	if raw.Voxels <= 0 || len(raw.Labels) == 0 {
		return ErrEmptyGroup
	}
	if len(raw.Data) != raw.Voxels*len(raw.Labels) {
		return fmt.Errorf("%w: %d values for %d voxels and %d columns",
			ErrShapeMismatch, len(raw.Data), raw.Voxels, len(raw.Labels))
	}

	*t = Table{
		mode:      raw.Mode,
		labels:    raw.Labels,
		threshold: raw.Threshold,
		n:         raw.N,
		data:      mat.NewDense(raw.Voxels, len(raw.Labels), raw.Data),
	}
	return nil
}

// WriteCSV writes one row per voxel with a leading voxel index column and
// one column per label.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"voxel"}, t.labels...)); err != nil {
		return err
	}
	rows, cols := t.data.Dims()
	rec := make([]string, cols+1)
	for i := range rows {
		rec[0] = strconv.Itoa(i)
		for j, p := range t.data.RawRowView(i) {
			rec[j+1] = strconv.FormatFloat(p, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
