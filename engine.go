package ontoinfer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ontoinfer/artifact"
	"github.com/hupe1980/ontoinfer/inference"
	"github.com/hupe1980/ontoinfer/likelihood"
	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/ontology"
	"github.com/hupe1980/ontoinfer/partition"
	"github.com/hupe1980/ontoinfer/ranges"
	"github.com/hupe1980/ontoinfer/resource"
	"github.com/hupe1980/ontoinfer/scoredb"
)

// ScoreSink receives the scores of runs and of scored queries.
// *scoredb.DB implements it.
type ScoreSink interface {
	WriteScores(ctx context.Context, scores []scoredb.Score) error
}

// Result is the outcome of one concept of a run.
type Result struct {
	ConceptID string
	Name      string
	In        int
	Out       int
	Priors    inference.Priors
	// Threshold holds one posterior per likelihood column.
	Threshold []inference.Score
	// Image is the posterior of the in-group mean image.
	Image    float64
	Duration time.Duration
}

// Scores flattens r into score records of runID.
func (r Result) Scores(runID string) []scoredb.Score {
	out := make([]scoredb.Score, 0, len(r.Threshold)+1)
	for _, s := range r.Threshold {
		out = append(out, scoredb.Score{
			RunID:     runID,
			ConceptID: r.ConceptID,
			Name:      r.Name,
			Kind:      scoredb.KindThreshold,
			Label:     s.Label,
			Posterior: s.Posterior,
		})
	}
	return append(out, scoredb.Score{
		RunID:     runID,
		ConceptID: r.ConceptID,
		Name:      r.Name,
		Kind:      scoredb.KindImage,
		Posterior: r.Image,
	})
}

// QueryScore is the posterior of a query image for one concept.
type QueryScore struct {
	ConceptID string
	Name      string
	// Query joins the observation ids of the query with "+".
	Query string
	// Image uses the concept's likelihood tables.
	Image float64
	// Distance uses squared correlations with the group means.
	Distance float64
	// Persisted reports whether the likelihood tables came from the
	// artifact store.
	Persisted bool
}

// Scores flattens q into an image and a distance record of runID, labeled
// with the query.
func (q QueryScore) Scores(runID string) []scoredb.Score {
	return []scoredb.Score{
		{RunID: runID, ConceptID: q.ConceptID, Name: q.Name, Kind: scoredb.KindImage, Label: q.Query, Posterior: q.Image},
		{RunID: runID, ConceptID: q.ConceptID, Name: q.Name, Kind: scoredb.KindDistance, Label: q.Query, Posterior: q.Distance},
	}
}

// Engine runs reverse inference over one concept tree and one observation
// corpus. It is safe for concurrent use.
type Engine struct {
	tree  *ontology.Tree
	obs   *observation.Table
	opts  options
	runID string

	ranges *ranges.Table // nil in binary mode
	part   *partition.Partitioner
	rc     *resource.Controller
	store  *artifact.Store // nil without an artifact store
}

// BuildTree assembles a concept tree from relationship rows, logging and
// recording the build. meta may be nil.
func BuildTree(ctx context.Context, rows []ontology.Row, meta map[string]ontology.Meta, optFns ...Option) (*ontology.Tree, error) {
	o := applyOptions(optFns)
	start := time.Now()

	var bopts []ontology.BuildOption
	if meta != nil {
		bopts = append(bopts, ontology.WithMeta(meta))
	}
	if o.categories != nil {
		bopts = append(bopts, ontology.WithCategories(o.categories))
	}

	tree, err := ontology.Build(rows, bopts...)
	if err != nil {
		o.metricsCollector.RecordTreeBuild(0, time.Since(start), err)
		o.logger.LogTreeBuild(ctx, 0, 0, err)
		return nil, err
	}
	o.metricsCollector.RecordTreeBuild(tree.Len(), time.Since(start), nil)
	o.logger.LogTreeBuild(ctx, tree.Len(), len(tree.Pruned()), nil)
	return tree, nil
}

// New creates an Engine. correspondence maps leaf names of tree to
// observation ids of obs; entries naming unknown observations are an error.
func New(tree *ontology.Tree, obs *observation.Table, correspondence map[string]string, optFns ...Option) (*Engine, error) {
	if tree == nil || obs == nil {
		return nil, fmt.Errorf("%w: tree and observations are required", ErrInvalidOption)
	}
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	for name, id := range correspondence {
		if !obs.Has(id) {
			return nil, translateError(fmt.Errorf("leaf %q: %w: %s", name, observation.ErrUnknownID, id))
		}
	}

	e := &Engine{
		tree:  tree,
		obs:   obs,
		opts:  o,
		runID: o.runID,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:   o.memoryLimit,
			MaxWorkers:         int64(o.workers),
			IOLimitBytesPerSec: o.ioLimit,
		}),
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}

	if !o.binary {
		var err error
		if o.ranges != nil {
			e.ranges, err = ranges.Explicit(o.ranges)
		} else {
			e.ranges, err = ranges.FromObservations(obs, o.step)
		}
		if err != nil {
			return nil, err
		}
	}

	e.part = partition.New(tree, correspondence,
		partition.WithRanges(e.ranges),
		partition.WithSkipHook(func(s partition.Skip) {
			o.metricsCollector.RecordConceptSkipped()
			o.logger.LogSkip(context.Background(), s)
		}),
	)

	if o.blobs != nil {
		e.store = artifact.New(o.blobs,
			artifact.WithCodec(o.codec),
			artifact.WithPrefix(o.prefix),
			artifact.WithController(e.rc),
		)
	}
	return e, nil
}

// RunID returns the identifier recorded with this engine's scores.
func (e *Engine) RunID() string { return e.runID }

// Tree returns the concept tree.
func (e *Engine) Tree() *ontology.Tree { return e.tree }

// Ranges returns the shared range table, or nil in binary mode.
func (e *Engine) Ranges() *ranges.Table { return e.ranges }

// Concepts returns every concept id a run processes by default.
func (e *Engine) Concepts() []string { return e.part.Concepts() }

// Groups partitions the given concepts, or every concept when ids is nil.
// Concepts without a contrast are skipped and logged.
func (e *Engine) Groups(ids []string) ([]*partition.Group, error) {
	if ids == nil {
		ids = e.part.Concepts()
	}
	groups, err := e.part.Groups(ids)
	return groups, translateError(err)
}

// Run estimates likelihood tables and posteriors for the given concepts, or
// for every concept when ids is nil. Results are ordered by concept id.
//
// Concepts are processed concurrently; the first failing concept cancels
// the rest and its error is returned.
func (e *Engine) Run(ctx context.Context, ids []string) ([]Result, error) {
	log := e.opts.logger.WithRunID(e.runID)

	groups, err := e.Groups(ids)
	if err != nil {
		log.LogRun(ctx, 0, 0, e.rc.PeakMemoryUsage(), err)
		return nil, err
	}
	skipped := len(e.orAll(ids)) - len(groups)

	results := make([]Result, len(groups))
	g, gctx := errgroup.WithContext(ctx)

	var acquireErr error
	for i, grp := range groups {
		if err := e.rc.AcquireWorker(gctx); err != nil {
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer e.rc.ReleaseWorker()

			start := time.Now()
			r, err := e.process(gctx, grp)
			r.Duration = time.Since(start)

			e.opts.metricsCollector.RecordConcept(r.Duration, err)
			log.LogConcept(gctx, grp.ConceptID, len(grp.In), len(grp.Out), e.rc.MemoryUsage(), err)
			if err != nil {
				return fmt.Errorf("concept %s: %w", grp.ConceptID, err)
			}
			results[i] = r
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = acquireErr
	}
	if err != nil {
		err = translateError(err)
		log.LogRun(ctx, len(groups), skipped, e.rc.PeakMemoryUsage(), err)
		return nil, err
	}

	slices.SortFunc(results, func(a, b Result) int { return cmp.Compare(a.ConceptID, b.ConceptID) })

	if e.opts.sink != nil {
		var scores []scoredb.Score
		for _, r := range results {
			scores = append(scores, r.Scores(e.runID)...)
		}
		if err := e.opts.sink.WriteScores(ctx, scores); err != nil {
			log.LogRun(ctx, len(groups), skipped, e.rc.PeakMemoryUsage(), err)
			return nil, fmt.Errorf("write scores: %w", err)
		}
	}

	log.LogRun(ctx, len(groups), skipped, e.rc.PeakMemoryUsage(), nil)
	return results, nil
}

func (e *Engine) orAll(ids []string) []string {
	if ids == nil {
		return e.part.Concepts()
	}
	return ids
}

// process handles one group with its own copies of the observation subsets.
func (e *Engine) process(ctx context.Context, grp *partition.Group) (Result, error) {
	r := Result{ConceptID: grp.ConceptID, Name: grp.Name, In: len(grp.In), Out: len(grp.Out)}

	bytes := int64(len(grp.In)+len(grp.Out)) * int64(e.obs.Voxels()) * 8
	if err := e.rc.AcquireMemory(ctx, bytes); err != nil {
		return r, err
	}
	defer e.rc.ReleaseMemory(bytes)

	inObs, outObs, err := e.subsets(grp)
	if err != nil {
		return r, err
	}
	in, out, err := e.estimate(inObs, outObs)
	if err != nil {
		return r, err
	}

	if e.store != nil {
		if err := e.store.PutGroup(ctx, grp); err != nil {
			return r, err
		}
		if err := e.store.PutLikelihood(ctx, grp.ConceptID, in, out); err != nil {
			return r, err
		}
	}

	r.Priors = inference.NewPriors(len(grp.In), len(grp.Out), e.opts.equalPriors)
	if r.Threshold, err = inference.ThresholdPosterior(in, out, r.Priors); err != nil {
		return r, err
	}
	if r.Image, err = inference.ImagePosterior(inObs, in, out, r.Priors, e.rangesFor(in)); err != nil {
		return r, err
	}
	return r, ctx.Err()
}

func (e *Engine) subsets(grp *partition.Group) (in, out *observation.Table, err error) {
	if in, err = e.obs.Subset(grp.In); err != nil {
		return nil, nil, err
	}
	if out, err = e.obs.Subset(grp.Out); err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

func (e *Engine) estimate(inObs, outObs *observation.Table) (in, out *likelihood.Table, err error) {
	if e.opts.binary {
		if in, err = likelihood.Binary(inObs, e.opts.threshold); err != nil {
			return nil, nil, err
		}
		out, err = likelihood.Binary(outObs, e.opts.threshold)
	} else {
		if in, err = likelihood.InRanges(inObs, e.ranges); err != nil {
			return nil, nil, err
		}
		out, err = likelihood.InRanges(outObs, e.ranges)
	}
	if err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

// rangesFor returns the range table to score t with: none for binary tables.
func (e *Engine) rangesFor(t *likelihood.Table) *ranges.Table {
	if t.Mode() == likelihood.ModeBinary {
		return nil
	}
	return e.ranges
}

// Score computes the posterior of query for one concept. A multi-row query
// is averaged first.
//
// With an artifact store, persisted records are used when present; otherwise
// the tables are estimated from the corpus. With a score sink, the image and
// distance posteriors are recorded under the engine's run id.
func (e *Engine) Score(ctx context.Context, query *observation.Table, conceptID string) (*QueryScore, error) {
	start := time.Now()
	qs, err := e.score(ctx, query, conceptID)
	err = translateError(err)

	e.opts.metricsCollector.RecordScore(time.Since(start), err)
	var posterior float64
	if qs != nil {
		posterior = qs.Image
	}
	e.opts.logger.LogScore(ctx, conceptID, posterior, err)
	if err != nil {
		return nil, err
	}
	if e.opts.sink != nil {
		if err := e.opts.sink.WriteScores(ctx, qs.Scores(e.runID)); err != nil {
			return nil, fmt.Errorf("write scores: %w", err)
		}
	}
	return qs, nil
}

func (e *Engine) score(ctx context.Context, query *observation.Table, conceptID string) (*QueryScore, error) {
	if query == nil {
		return nil, fmt.Errorf("%w: nil query", ErrInvalidOption)
	}
	if query.Voxels() != e.obs.Voxels() {
		return nil, &ErrVoxelMismatch{Expected: e.obs.Voxels(), Actual: query.Voxels()}
	}

	grp, in, out, persisted, err := e.tables(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	inObs, outObs, err := e.subsets(grp)
	if err != nil {
		return nil, err
	}
	if in == nil {
		if in, out, err = e.estimate(inObs, outObs); err != nil {
			return nil, err
		}
	}

	p := inference.NewPriors(len(grp.In), len(grp.Out), e.opts.equalPriors)
	rt := e.rangesFor(in)
	if rt != nil && grp.Ranges != nil {
		rt = grp.Ranges
	}
	img, err := inference.ImagePosterior(query, in, out, p, rt)
	if err != nil {
		return nil, err
	}
	dist, err := inference.DistancePosterior(query, inObs, outObs, p)
	if err != nil {
		return nil, err
	}
	return &QueryScore{
		ConceptID: grp.ConceptID,
		Name:      grp.Name,
		Query:     strings.Join(query.IDs(), "+"),
		Image:     img,
		Distance:  dist,
		Persisted: persisted,
	}, nil
}

// tables returns the group of conceptID and, when persisted, its likelihood
// tables. in and out are nil when they must be estimated.
func (e *Engine) tables(ctx context.Context, conceptID string) (grp *partition.Group, in, out *likelihood.Table, persisted bool, err error) {
	if e.store != nil {
		grp, err = e.store.GetGroup(ctx, conceptID)
		switch {
		case err == nil:
			in, out, err = e.store.GetLikelihood(ctx, conceptID)
			if err == nil {
				return grp, in, out, true, nil
			}
			if !errors.Is(err, artifact.ErrNotFound) {
				return nil, nil, nil, false, err
			}
			return grp, nil, nil, false, nil
		case !errors.Is(err, artifact.ErrNotFound):
			return nil, nil, nil, false, err
		}
	}
	grp, err = e.part.Group(conceptID)
	if err != nil {
		return nil, nil, nil, false, err
	}
	return grp, nil, nil, false, nil
}
