// Package partition splits the known observations into an in-group and an
// out-group for every concept of an ontology tree.
package partition

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/ontoinfer/ontology"
	"github.com/hupe1980/ontoinfer/ranges"
)

// ErrPartitionEmpty marks a concept whose in-group or out-group is empty.
// Batch partitioning skips such concepts instead of failing.
var ErrPartitionEmpty = errors.New("empty partition")

// Group is the in/out split of one concept. Ranges is shared by every group
// of a run so bucket boundaries stay comparable.
type Group struct {
	ConceptID string        `json:"nid"`
	Name      string        `json:"name"`
	Meta      ontology.Meta `json:"meta"`
	In        []string      `json:"in"`
	Out       []string      `json:"out"`
	Ranges    *ranges.Table `json:"range_table,omitempty"`
}

// Skip describes a concept left out of a batch.
type Skip struct {
	ConceptID string
	Name      string
	In        int
	Out       int
	Err       error
}

// Option configures a Partitioner.
type Option func(*Partitioner)

// WithRanges attaches rt to every emitted group.
func WithRanges(rt *ranges.Table) Option {
	return func(p *Partitioner) { p.ranges = rt }
}

// WithSkipHook registers fn to be called for every skipped concept.
func WithSkipHook(fn func(Skip)) Option {
	return func(p *Partitioner) { p.onSkip = fn }
}

// Partitioner maps tree leaves to observations through a correspondence and
// splits the observation universe per concept.
type Partitioner struct {
	tree   *ontology.Tree
	corr   map[string]string
	ids    []string          // observation ids, sorted; position = bitmap member
	pos    map[string]uint32 // observation id -> position
	ranges *ranges.Table
	onSkip func(Skip)
}

// New returns a partitioner over the observations named by correspondence,
// a leaf name -> observation id dictionary.
func New(tree *ontology.Tree, correspondence map[string]string, opts ...Option) *Partitioner {
	p := &Partitioner{
		tree: tree,
		corr: correspondence,
		pos:  make(map[string]uint32, len(correspondence)),
	}
	for _, id := range correspondence {
		if _, ok := p.pos[id]; !ok {
			p.pos[id] = 0
			p.ids = append(p.ids, id)
		}
	}
	slices.Sort(p.ids)
	for i, id := range p.ids {
		p.pos[id] = uint32(i)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Universe returns every known observation id in sorted order.
func (p *Partitioner) Universe() []string { return slices.Clone(p.ids) }

// Concepts returns the ids of every non-leaf node except the root, in
// depth-first order.
func (p *Partitioner) Concepts() []string {
	var ids []string
	_ = p.tree.Walk(p.tree.Root(), func(n *ontology.Node, _ string, _ int) bool {
		if n.ID != p.tree.Root() && !p.tree.IsLeaf(n.ID) {
			ids = append(ids, n.ID)
		}
		return true
	})
	return ids
}

// Group partitions the observations for the concept with the given node id.
// It returns an error wrapping ErrPartitionEmpty when either side is empty.
func (p *Partitioner) Group(conceptID string) (*Group, error) {
	node, ok := p.tree.Node(conceptID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ontology.ErrNotFound, conceptID)
	}

	in, out := p.split(conceptID)
	if in.IsEmpty() || out.IsEmpty() {
		return nil, fmt.Errorf("%w: concept %s has %d in, %d out",
			ErrPartitionEmpty, conceptID, in.GetCardinality(), out.GetCardinality())
	}

	return &Group{
		ConceptID: node.ID,
		Name:      node.Name,
		Meta:      node.Meta.Clone(),
		In:        p.members(in),
		Out:       p.members(out),
		Ranges:    p.ranges,
	}, nil
}

func (p *Partitioner) split(conceptID string) (in, out *roaring.Bitmap) {
	in = roaring.New()
	for _, name := range p.tree.CollectNames(conceptID) {
		if obsID, ok := p.corr[name]; ok {
			in.Add(p.pos[obsID])
		}
	}
	all := roaring.New()
	all.AddRange(0, uint64(len(p.ids)))
	return in, roaring.AndNot(all, in)
}

func (p *Partitioner) members(bm *roaring.Bitmap) []string {
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, p.ids[it.Next()])
	}
	return out
}

// Groups partitions every concept id in order. Concepts with an empty side
// are reported to the skip hook and left out; unknown ids are an error.
func (p *Partitioner) Groups(conceptIDs []string) ([]*Group, error) {
	groups := make([]*Group, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		g, err := p.Group(id)
		if err != nil {
			if !errors.Is(err, ErrPartitionEmpty) {
				return nil, err
			}
			p.skip(id, err)
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// GroupsByName resolves concept names to ids (first match in depth-first
// order) and partitions them.
func (p *Partitioner) GroupsByName(names []string) ([]*Group, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := p.tree.FindByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: concept named %q", ontology.ErrNotFound, name)
		}
		ids = append(ids, id)
	}
	return p.Groups(ids)
}

func (p *Partitioner) skip(id string, err error) {
	if p.onSkip == nil {
		return
	}
	s := Skip{ConceptID: id, Err: err}
	if n, ok := p.tree.Node(id); ok {
		s.Name = n.Name
	}
	in, out := p.split(id)
	s.In, s.Out = int(in.GetCardinality()), int(out.GetCardinality())
	p.onSkip(s)
}
