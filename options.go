package ontoinfer

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/ontoinfer/blobstore"
	"github.com/hupe1980/ontoinfer/codec"
	"github.com/hupe1980/ontoinfer/ranges"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector

	blobs  blobstore.BlobStore
	codec  codec.Codec
	prefix string

	workers     int
	memoryLimit int64
	ioLimit     int64

	equalPriors bool
	step        float64
	ranges      [][]float64
	threshold   float64
	binary      bool

	categories map[string]string
	sink       ScoreSink
	runID      string
}

// Option configures Engine construction and tree building.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := ontoinfer.NewJSONLogger(slog.LevelInfo)
//	e, _ := ontoinfer.New(tree, obs, corr, ontoinfer.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
//	metrics := &ontoinfer.BasicMetricsCollector{}
//	e, _ := ontoinfer.New(tree, obs, corr, ontoinfer.WithMetricsCollector(metrics))
//	results, _ := e.Run(ctx, nil)
//	fmt.Println(metrics.GetStats().ConceptsSkipped)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithArtifactStore persists group records and likelihood tables to blobs.
// Score prefers persisted tables when a store is configured.
func WithArtifactStore(blobs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobs = blobs
	}
}

// WithCodec configures the artifact codec.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithPrefix sets the artifact key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithWorkers bounds the number of concepts processed concurrently.
// 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMemoryLimit bounds the bytes of observation subsets held by workers
// at once. 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithIOLimit throttles artifact IO to bytesPerSec. 0 means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithEqualPriors uses 0.5/0.5 priors instead of group-size priors.
func WithEqualPriors(equal bool) Option {
	return func(o *options) {
		o.equalPriors = equal
	}
}

// WithStep sets the bucket width of derived range tables.
func WithStep(step float64) Option {
	return func(o *options) {
		o.step = step
	}
}

// WithRanges uses explicit [start, stop) pairs instead of derived buckets.
func WithRanges(pairs [][]float64) Option {
	return func(o *options) {
		o.ranges = pairs
	}
}

// WithThreshold switches to binary estimation: a voxel is active when its
// absolute value meets threshold.
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		o.threshold = threshold
		o.binary = true
	}
}

// WithCategoryLookup groups the root's children by category when building a
// tree with BuildTree. See ontology.CognitiveAtlasCategories.
func WithCategoryLookup(lookup map[string]string) Option {
	return func(o *options) {
		o.categories = lookup
	}
}

// WithScoreSink receives the scores of every run and every scored query.
func WithScoreSink(sink ScoreSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithRunID sets the run identifier recorded with scores. By default a
// random UUID is used.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		step:             ranges.DefaultStep,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}

func (o options) validate() error {
	switch {
	case o.workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidOption, o.workers)
	case o.memoryLimit < 0:
		return fmt.Errorf("%w: memory limit %d", ErrInvalidOption, o.memoryLimit)
	case o.ioLimit < 0:
		return fmt.Errorf("%w: io limit %d", ErrInvalidOption, o.ioLimit)
	case !(o.step > 0):
		return fmt.Errorf("%w: step %v", ErrInvalidOption, o.step)
	case o.binary && !(o.threshold >= 0):
		return fmt.Errorf("%w: threshold %v", ErrInvalidOption, o.threshold)
	case o.binary && o.ranges != nil:
		return fmt.Errorf("%w: explicit ranges with a binary threshold", ErrInvalidOption)
	}
	return nil
}
