package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/ontology"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
// Locks only once per call.
func (r *RNG) FillUniformRange(dst []float64, minVal, maxVal float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float64()*span
	}
}

// UniformRows generates num rows of voxels values in [minVal, maxVal).
// Uses a single backing array.
func (r *RNG) UniformRows(num, voxels int, minVal, maxVal float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*voxels)
	rows := make([][]float64, num)
	span := maxVal - minVal
	for i := range num {
		row := data[i*voxels : (i+1)*voxels]
		for j := range row {
			row[j] = minVal + r.rand.Float64()*span
		}
		rows[i] = row
	}
	return rows
}

// PatternRows generates num rows scattered around pattern with Gaussian
// noise of the given standard deviation.
func (r *RNG) PatternRows(num int, pattern []float64, noise float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([][]float64, num)
	for i := range rows {
		row := make([]float64, len(pattern))
		for j, v := range pattern {
			row[j] = v + r.rand.NormFloat64()*noise
		}
		rows[i] = row
	}
	return rows
}

// Fixture is a synthetic corpus: an ontology whose leaves are observations,
// an observation table and the leaf-name -> observation-id correspondence.
type Fixture struct {
	Rows           []ontology.Row
	Tree           *ontology.Tree
	Observations   *observation.Table
	Correspondence map[string]string
	// Patterns holds the mean activation pattern of each concept id.
	Patterns map[string][]float64
}

// NewFixture builds a root "1" with concepts c1..cN, each owning perConcept
// leaves named DS%06d. Leaves of a concept share a distinct activation
// pattern: voxel j of concept k is strongly positive when j%concepts == k.
// The last leaf of every concept is also attached to the next concept, so
// the tree exercises multi-parent membership.
func NewFixture(rng *RNG, concepts, perConcept, voxels int) (*Fixture, error) {
	f := &Fixture{
		Rows:           []ontology.Row{{ID: "1", Name: "BASE"}},
		Correspondence: make(map[string]string),
		Patterns:       make(map[string][]float64, concepts),
	}

	var (
		ids  []string
		rows [][]float64
		leaf int
	)
	for k := range concepts {
		cid := fmt.Sprintf("c%d", k+1)
		f.Rows = append(f.Rows, ontology.Row{ID: cid, Parents: []string{"1"}, Name: fmt.Sprintf("CONCEPT_%d", k+1)})

		pattern := make([]float64, voxels)
		for j := range pattern {
			if j%concepts == k {
				pattern[j] = 2.5
			} else {
				pattern[j] = -0.5
			}
		}
		f.Patterns[cid] = pattern

		for i, row := range rng.PatternRows(perConcept, pattern, 0.2) {
			leaf++
			name := fmt.Sprintf("DS%06d", leaf)
			parents := []string{cid}
			if i == perConcept-1 && concepts > 1 {
				parents = append(parents, fmt.Sprintf("c%d", (k+1)%concepts+1))
			}
			f.Rows = append(f.Rows, ontology.Row{ID: fmt.Sprintf("l%d", leaf), Parents: parents, Name: name})
			obsID := name + ".nii.gz"
			f.Correspondence[name] = obsID
			ids = append(ids, obsID)
			rows = append(rows, row)
		}
	}

	tree, err := ontology.Build(f.Rows)
	if err != nil {
		return nil, err
	}
	obs, err := observation.New(ids, rows)
	if err != nil {
		return nil, err
	}
	f.Tree, f.Observations = tree, obs
	return f, nil
}
