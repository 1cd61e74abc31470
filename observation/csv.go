package observation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV reads a table whose first column holds observation ids and whose
// remaining columns hold voxel values. The first line is a header. Empty
// cells and "nan" decode to NaN.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, ErrEmpty
	}

	var (
		ids  []string
		rows [][]float64
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, len(rec)-1)
		for j, cell := range rec[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %d: %w", line, j+2, err)
			}
			row[j] = v
		}
		ids = append(ids, strings.TrimSpace(rec[0]))
		rows = append(rows, row)
	}
	return New(ids, rows)
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// WriteCSV writes t in the format ReadCSV reads. Voxel columns are named
// v0, v1, ...
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, t.Voxels()+1)
	header = append(header, "id")
	for j := range t.Voxels() {
		header = append(header, "v"+strconv.Itoa(j))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	rec := make([]string, t.Voxels()+1)
	for i, id := range t.ids {
		rec[0] = id
		for j := range t.Voxels() {
			rec[j+1] = strconv.FormatFloat(t.data.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
