package observation

import (
	"path/filepath"
	"sort"
	"strings"
)

// Correspond maps leaf names to observation identifiers by matching each
// name against the base name of every candidate (for example a directory
// listing). A name matches a candidate whose base name contains it. When
// several candidates match, the lexically first one wins. Names without a
// match are left out.
func Correspond(names, candidates []string) map[string]string {
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)

	out := make(map[string]string, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		for _, c := range sorted {
			if strings.Contains(filepath.Base(c), name) {
				out[name] = c
				break
			}
		}
	}
	return out
}

// Identity maps every id present in t to itself. Use it when leaf names are
// observation ids already.
func Identity(t *Table) map[string]string {
	out := make(map[string]string, t.Len())
	for _, id := range t.ids {
		out[id] = id
	}
	return out
}
