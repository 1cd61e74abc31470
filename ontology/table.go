package ontology

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// RequiredColumns lists the columns a relationship table must carry.
var RequiredColumns = []string{FieldID, "parent", FieldName}

// ParseRecords converts a header and its records into rows. Column order is
// free; extra columns are ignored. A missing required column is reported as
// a *SchemaError before any record is read.
func ParseRecords(header []string, records [][]string) ([]Row, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &SchemaError{Column: col}
		}
	}

	idCol, parentCol, nameCol := index[FieldID], index["parent"], index[FieldName]
	width := max(idCol, parentCol, nameCol) + 1

	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if len(rec) < width {
			return nil, fmt.Errorf("record %d: expected at least %d fields, got %d", i+1, width, len(rec))
		}
		rows = append(rows, Row{
			ID:      strings.TrimSpace(rec[idCol]),
			Parents: ParseParents(rec[parentCol]),
			Name:    strings.TrimSpace(rec[nameCol]),
		})
	}
	return rows, nil
}

// ReadTable reads a delimited relationship table with a header line. The
// delimiter defaults to a tab.
func ReadTable(r io.Reader, delim ...rune) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	if len(delim) > 0 {
		cr.Comma = delim[0]
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read relationship table: %w", err)
	}
	if len(records) == 0 {
		return nil, &SchemaError{Column: FieldID}
	}
	return ParseRecords(records[0], records[1:])
}

// ReadMeta decodes node metadata keyed by node id. YAML and JSON documents
// are both accepted.
//
//	trm_12345:
//	  category: ctp_C2
//	  defined_by: squidward
func ReadMeta(r io.Reader) (map[string]Meta, error) {
	var raw map[string]map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]Meta{}, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	meta := make(map[string]Meta, len(raw))
	for id, m := range raw {
		meta[id] = metaFromMap(m)
	}
	return meta, nil
}

// CountTree folds path rows into a nested map. Every tab-separated line is a
// path from the root to an observation; the last element is counted.
//
//	ROOT	CONCEPT_A	CONTRAST_1	image_file_1
//	ROOT	CONCEPT_A	CONTRAST_1	image_file_1
//
// yields {"ROOT": {"CONCEPT_A": {"CONTRAST_1": {"image_file_1": 2}}}}.
func CountTree(r io.Reader) (map[string]any, error) {
	tree := make(map[string]any)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, "\t")

		current := tree
		for _, item := range parts[:len(parts)-1] {
			next, ok := current[item]
			if !ok {
				m := make(map[string]any)
				current[item] = m
				current = m
				continue
			}
			m, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("line %d: %q is both a leaf and a branch", line, item)
			}
			current = m
		}

		leaf := parts[len(parts)-1]
		switch v := current[leaf].(type) {
		case nil:
			current[leaf] = 1
		case int:
			current[leaf] = v + 1
		default:
			return nil, fmt.Errorf("line %d: %q is both a leaf and a branch", line, leaf)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tree, nil
}
