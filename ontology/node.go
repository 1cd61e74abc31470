package ontology

import (
	"encoding/json"
	"maps"
	"strings"
)

// DefaultRootID is the conventional id of the node anchoring the tree.
const DefaultRootID = "1"

// Field names understood by CollectField. Any other field is looked up in
// Meta.Extra.
const (
	FieldID       = "id"
	FieldName     = "name"
	FieldCategory = "category"
)

// Meta is the metadata attached to a node.
//
// Category is always present (possibly empty) and drives category grouping.
// Extra carries arbitrary caller metadata.
type Meta struct {
	Category string
	Extra    map[string]any
}

// Get returns a metadata value by key. The category is reported only when it
// is non-empty.
func (m Meta) Get(key string) (any, bool) {
	if key == FieldCategory {
		return m.Category, m.Category != ""
	}
	v, ok := m.Extra[key]
	return v, ok
}

// Clone returns a deep-enough copy of m (Extra map is copied, values shared).
func (m Meta) Clone() Meta {
	return Meta{Category: m.Category, Extra: maps.Clone(m.Extra)}
}

// MarshalJSON encodes Meta as a flat object with a "category" key.
func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[FieldCategory] = m.Category
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat object, lifting "category" into the typed field.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = metaFromMap(raw)
	return nil
}

func metaFromMap(raw map[string]any) Meta {
	var m Meta
	for k, v := range raw {
		if k == FieldCategory {
			if s, ok := v.(string); ok {
				m.Category = s
			}
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any, len(raw))
		}
		m.Extra[k] = v
	}
	return m
}

// Row is one entry of a relationship table.
type Row struct {
	ID      string
	Parents []string
	Name    string
}

// Node is an arena entry. Children are not stored on the node; they live in
// the tree's edge list.
type Node struct {
	ID      string
	Name    string
	Parents []string
	Meta    Meta

	// Synthetic marks category nodes created by grouping.
	Synthetic bool
}

// Edge is a flattened (id, parent, name) triple.
type Edge struct {
	ID     string
	Parent string
	Name   string
}

// IsRootParent reports whether a parent cell denotes "no parent".
func IsRootParent(p string) bool {
	switch strings.TrimSpace(strings.ToLower(p)) {
	case "", "none", "null", "nan":
		return true
	}
	return false
}

// ParseParents splits a parent cell into its parent ids. Several parents are
// separated by ";" or ",". Root markers are dropped.
func ParseParents(cell string) []string {
	fields := strings.FieldsFunc(cell, func(r rune) bool { return r == ';' || r == ',' })
	parents := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if IsRootParent(f) {
			continue
		}
		parents = append(parents, f)
	}
	return parents
}
