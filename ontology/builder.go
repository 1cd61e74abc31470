package ontology

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

type buildOptions struct {
	rootID     string
	rootFixed  bool
	meta       map[string]Meta
	categories map[string]string
	prune      bool
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithRootID anchors the tree at the given id instead of DefaultRootID.
// Unlike the default, an explicit root that is missing is an error.
func WithRootID(id string) BuildOption {
	return func(o *buildOptions) {
		o.rootID = id
		o.rootFixed = true
	}
}

// WithMeta attaches metadata by node id. Nodes without an entry get an empty
// Meta.
func WithMeta(meta map[string]Meta) BuildOption {
	return func(o *buildOptions) {
		o.meta = meta
	}
}

// WithCategories regroups the root's children under synthetic category
// nodes. lookup maps a category id (the value of Meta.Category) to the
// category display name. Children whose category is unknown stay attached
// to the root.
func WithCategories(lookup map[string]string) BuildOption {
	return func(o *buildOptions) {
		o.categories = lookup
	}
}

// WithoutPruning keeps childless first-level nodes.
func WithoutPruning() BuildOption {
	return func(o *buildOptions) {
		o.prune = false
	}
}

// CognitiveAtlasCategories returns the Cognitive Atlas category table. It is
// never applied implicitly; pass it to WithCategories.
func CognitiveAtlasCategories() map[string]string {
	return map[string]string{
		"ctp_C1":  "Perception",
		"ctp_C10": "Motivation",
		"ctp_C2":  "Attention",
		"ctp_C3":  "Reasoning And Decision Making",
		"ctp_C4":  "Executive-Cognitive Control",
		"ctp_C5":  "Learning and Memory",
		"ctp_C6":  "Language",
		"ctp_C7":  "Action",
		"ctp_C8":  "Emotion",
		"ctp_C9":  "Social Function",
	}
}

// Build validates rows and assembles the concept tree.
//
// Validation (schema, duplicate names, unknown parents, cycles) completes
// before any node record is created. Assembly is two-pass: every node record
// exists before any parent->child edge is wired, so row order only affects
// sibling order.
//
// Pruning and category grouping shape only the presented root level (Nested,
// MarshalJSON). Queries run over the full edge set.
func Build(rows []Row, optFns ...BuildOption) (*Tree, error) {
	o := buildOptions{rootID: DefaultRootID, prune: true}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	merged, order, err := mergeRows(rows)
	if err != nil {
		return nil, err
	}
	if err := checkParents(merged, order); err != nil {
		return nil, err
	}
	if err := findCircularReference(merged, order); err != nil {
		return nil, err
	}

	root, err := pickRoot(merged, order, o)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		root:     root,
		nodes:    make(map[string]*Node, len(order)),
		order:    order,
		children: make(map[string][]string, len(order)),

		categories: make(map[string]*Node),
		grouped:    make(map[string][]string),
	}

	// Pass 1: node records.
	for _, id := range order {
		r := merged[id]
		meta := Meta{}
		if m, ok := o.meta[id]; ok {
			meta = m.Clone()
		}
		t.nodes[id] = &Node{ID: id, Name: r.Name, Parents: r.Parents, Meta: meta}
	}

	// Pass 2: edges.
	for _, id := range order {
		for _, p := range merged[id].Parents {
			t.children[p] = append(t.children[p], id)
		}
	}

	t.view = slices.Clone(t.children[root])
	if o.prune {
		t.pruneRootLeaves()
	}
	if o.categories != nil {
		if err := t.groupCategories(o.categories); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// mergeRows folds rows sharing an id into one record with the union of their
// parents.
func mergeRows(rows []Row) (map[string]*Row, []string, error) {
	merged := make(map[string]*Row, len(rows))
	order := make([]string, 0, len(rows))
	for i, r := range rows {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, nil, fmt.Errorf("row %d: %w", i, &SchemaError{Column: FieldID})
		}
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("row %d: %w", i, &SchemaError{Column: FieldName})
		}

		parents := make([]string, 0, len(r.Parents))
		for _, p := range r.Parents {
			if p = strings.TrimSpace(p); !IsRootParent(p) {
				parents = append(parents, p)
			}
		}

		existing, ok := merged[id]
		if !ok {
			merged[id] = &Row{ID: id, Name: name, Parents: dedupe(parents)}
			order = append(order, id)
			continue
		}
		if existing.Name != name {
			return nil, nil, &DuplicateNodeError{ID: id, Names: []string{existing.Name, name}}
		}
		existing.Parents = dedupe(append(existing.Parents, parents...))
	}
	return merged, order, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func checkParents(merged map[string]*Row, order []string) error {
	for _, id := range order {
		for _, p := range merged[id].Parents {
			if _, ok := merged[p]; !ok {
				return fmt.Errorf("%w: %s (parent of %s)", ErrUnknownParent, p, id)
			}
		}
	}
	return nil
}

// findCircularReference rejects any table in which a node is its own
// ancestor. The directed parent->child graph must admit a topological order.
func findCircularReference(merged map[string]*Row, order []string) error {
	g := simple.NewDirectedGraph()
	nodeIDs := make(map[string]int64, len(order))
	names := make(map[int64]string, len(order))
	for i, id := range order {
		nodeIDs[id] = int64(i)
		names[int64(i)] = id
		g.AddNode(simple.Node(int64(i)))
	}

	for _, id := range order {
		for _, p := range merged[id].Parents {
			if p == id {
				return &CircularReferenceError{A: id, B: id}
			}
			g.SetEdge(g.NewEdge(simple.Node(nodeIDs[p]), simple.Node(nodeIDs[id])))
		}
	}

	_, err := topo.Sort(g)
	if err == nil {
		return nil
	}
	var cycles topo.Unorderable
	if !errors.As(err, &cycles) || len(cycles) == 0 {
		return err
	}
	return cycleError(cycles[0], names, merged)
}

func cycleError(component []graph.Node, names map[int64]string, merged map[string]*Row) error {
	ids := make([]string, 0, len(component))
	member := make(map[string]struct{}, len(component))
	for _, n := range component {
		id := names[n.ID()]
		ids = append(ids, id)
		member[id] = struct{}{}
	}
	sort.Strings(ids)

	a := ids[0]
	for _, p := range merged[a].Parents {
		if _, ok := member[p]; ok {
			return &CircularReferenceError{A: a, B: p}
		}
	}
	return &CircularReferenceError{A: a, B: ids[len(ids)-1]}
}

func pickRoot(merged map[string]*Row, order []string, o buildOptions) (string, error) {
	if r, ok := merged[o.rootID]; ok {
		if len(r.Parents) > 0 {
			return "", fmt.Errorf("%w: %s has parents %v", ErrNoRoot, r.ID, r.Parents)
		}
		return r.ID, nil
	}
	if o.rootFixed {
		return "", fmt.Errorf("%w: %s", ErrNoRoot, o.rootID)
	}

	var candidates []string
	for _, id := range order {
		if len(merged[id].Parents) == 0 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) != 1 {
		return "", fmt.Errorf("%w: %d parentless nodes", ErrNoRoot, len(candidates))
	}
	return candidates[0], nil
}

// pruneRootLeaves drops first-level children that have no descendants from
// the presented view.
func (t *Tree) pruneRootLeaves() {
	kept := make([]string, 0, len(t.view))
	for _, c := range t.view {
		if len(t.children[c]) == 0 {
			t.pruned = append(t.pruned, c)
			continue
		}
		kept = append(kept, c)
	}
	t.view = kept
}

func (t *Tree) groupCategories(lookup map[string]string) error {
	grouped := make(map[string][]string)
	var orphans []string
	for _, c := range t.view {
		cat := t.nodes[c].Meta.Category
		if _, ok := lookup[cat]; ok && cat != "" {
			grouped[cat] = append(grouped[cat], c)
			continue
		}
		orphans = append(orphans, c)
	}

	cats := make([]string, 0, len(grouped))
	for cat := range grouped {
		cats = append(cats, cat)
	}
	slices.Sort(cats)

	for _, cat := range cats {
		if n, ok := t.nodes[cat]; ok {
			return &DuplicateNodeError{ID: cat, Names: []string{n.Name, lookup[cat]}}
		}
		t.categories[cat] = &Node{
			ID:        cat,
			Name:      lookup[cat],
			Parents:   []string{t.root},
			Synthetic: true,
		}
		t.grouped[cat] = grouped[cat]
		orphans = append(orphans, cat)
	}
	t.view = orphans
	return nil
}
