package ontology

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/emirpasic/gods/stacks/arraystack"
)

// Tree is an assembled concept tree. It is immutable after Build.
//
// children holds the canonical parent->child edges. view, categories and
// grouped describe the presented root level after pruning and grouping.
type Tree struct {
	root     string
	nodes    map[string]*Node
	order    []string
	children map[string][]string
	pruned   []string

	view       []string
	categories map[string]*Node
	grouped    map[string][]string
}

// frame is one entry of a traversal work list.
type frame struct {
	id     string
	parent string
	depth  int
}

// Root returns the id of the anchoring node.
func (t *Tree) Root() string { return t.root }

// Len returns the number of nodes in the arena. Synthetic category nodes are
// not counted.
func (t *Tree) Len() int { return len(t.nodes) }

// IDs returns the node ids in declaration order.
func (t *Tree) IDs() []string { return slices.Clone(t.order) }

// Pruned returns the ids of first-level nodes dropped from the presented
// view because they had no descendants.
func (t *Tree) Pruned() []string { return slices.Clone(t.pruned) }

// Node returns the arena entry for id.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Children returns the child ids of id in declaration order.
func (t *Tree) Children(id string) []string {
	return slices.Clone(t.children[id])
}

// IsLeaf reports whether id has no children in the tree.
func (t *Tree) IsLeaf(id string) bool {
	return len(t.children[id]) == 0
}

// Walk visits every node reachable from start in depth-first pre-order.
// A node reachable through several parents is visited once. Returning false
// from fn stops the walk.
func (t *Tree) Walk(start string, fn func(n *Node, parent string, depth int) bool) error {
	if _, ok := t.nodes[start]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, start)
	}

	visited := make(map[string]struct{}, len(t.nodes))
	stack := arraystack.New()
	stack.Push(frame{id: start})
	for !stack.Empty() {
		v, _ := stack.Pop()
		f := v.(frame)
		if _, seen := visited[f.id]; seen {
			continue
		}
		visited[f.id] = struct{}{}

		if !fn(t.nodes[f.id], f.parent, f.depth) {
			return nil
		}

		kids := t.children[f.id]
		for i := len(kids) - 1; i >= 0; i-- {
			stack.Push(frame{id: kids[i], parent: f.id, depth: f.depth + 1})
		}
	}
	return nil
}

// FindByName returns the id of the first node, in depth-first order from the
// root, whose name equals name.
func (t *Tree) FindByName(name string) (string, bool) {
	var found string
	_ = t.Walk(t.root, func(n *Node, _ string, _ int) bool {
		if n.Name == name {
			found = n.ID
			return false
		}
		return true
	})
	return found, found != ""
}

// Field returns the value of field on node n and whether n carries it.
func (n *Node) Field(field string) (any, bool) {
	switch field {
	case FieldID:
		return n.ID, true
	case FieldName:
		return n.Name, true
	default:
		return n.Meta.Get(field)
	}
}

// CollectField returns every value of field found on start and its
// descendants, in depth-first order. Recursion stops below any node that
// does not carry the field. A shared descendant contributes once.
func (t *Tree) CollectField(start, field string) []any {
	if _, ok := t.nodes[start]; !ok {
		return nil
	}

	var values []any
	visited := make(map[string]struct{})
	stack := arraystack.New()
	stack.Push(start)
	for !stack.Empty() {
		v, _ := stack.Pop()
		id := v.(string)
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		val, ok := t.nodes[id].Field(field)
		if !ok {
			continue
		}
		values = append(values, val)

		kids := t.children[id]
		for i := len(kids) - 1; i >= 0; i-- {
			stack.Push(kids[i])
		}
	}
	return values
}

// CollectNames is CollectField(start, FieldName) with string results.
func (t *Tree) CollectNames(start string) []string {
	vals := t.CollectField(start, FieldName)
	names := make([]string, 0, len(vals))
	for _, v := range vals {
		names = append(names, v.(string))
	}
	return names
}

// InternalNames returns the names of every node that has children, the root
// excluded, in depth-first order. These are the concepts a partitioner
// contrasts.
func (t *Tree) InternalNames() []string {
	var names []string
	_ = t.Walk(t.root, func(n *Node, _ string, _ int) bool {
		if n.ID != t.root && !t.IsLeaf(n.ID) {
			names = append(names, n.Name)
		}
		return true
	})
	return names
}

// Edges flattens the tree back into (id, parent, name) triples by walking
// every parent->child edge reachable from the root. The root is reported
// with an empty parent.
func (t *Tree) Edges() []Edge {
	edges := []Edge{{ID: t.root, Name: t.nodes[t.root].Name}}
	_ = t.Walk(t.root, func(n *Node, _ string, _ int) bool {
		for _, c := range t.children[n.ID] {
			edges = append(edges, Edge{ID: c, Parent: n.ID, Name: t.nodes[c].Name})
		}
		return true
	})
	return edges
}

// Nested is the plain, behavior-free form of a tree, suitable for JSON.
// A node with several parents appears under each of them.
type Nested struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Meta     Meta      `json:"meta"`
	Children []*Nested `json:"children"`
}

// presented returns the node and children shown for id: the pruned and
// grouped view at the root, synthetic category members, canonical edges
// everywhere else.
func (t *Tree) presented(id string) (*Node, []string) {
	if c, ok := t.categories[id]; ok {
		return c, t.grouped[id]
	}
	if id == t.root {
		return t.nodes[id], t.view
	}
	return t.nodes[id], t.children[id]
}

// Nested materializes the presented tree rooted at start.
func (t *Tree) Nested(start string) (*Nested, error) {
	n, ok := t.nodes[start]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, start)
	}

	type job struct {
		id  string
		out *Nested
	}
	root := &Nested{ID: n.ID, Name: n.Name, Meta: n.Meta, Children: []*Nested{}}
	stack := arraystack.New()
	stack.Push(job{id: start, out: root})
	for !stack.Empty() {
		v, _ := stack.Pop()
		j := v.(job)
		_, kids := t.presented(j.id)
		for _, c := range kids {
			cn, _ := t.presented(c)
			child := &Nested{ID: cn.ID, Name: cn.Name, Meta: cn.Meta, Children: []*Nested{}}
			j.out.Children = append(j.out.Children, child)
			stack.Push(job{id: c, out: child})
		}
	}
	return root, nil
}

// MarshalJSON encodes the tree as nested {id, name, meta, children} objects.
func (t *Tree) MarshalJSON() ([]byte, error) {
	n, err := t.Nested(t.root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}
