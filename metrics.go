package ontoinfer

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordTreeBuild is called after a concept tree is assembled.
	RecordTreeBuild(nodes int, duration time.Duration, err error)

	// RecordConcept is called after each concept of a run.
	RecordConcept(duration time.Duration, err error)

	// RecordConceptSkipped is called for each concept without a contrast.
	RecordConceptSkipped()

	// RecordScore is called after each query scoring.
	RecordScore(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTreeBuild(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordConcept(time.Duration, error)        {}
func (NoopMetricsCollector) RecordConceptSkipped()                     {}
func (NoopMetricsCollector) RecordScore(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TreeBuilds        atomic.Int64
	TreeBuildErrors   atomic.Int64
	TreeNodes         atomic.Int64
	ConceptsProcessed atomic.Int64
	ConceptsFailed    atomic.Int64
	ConceptsSkipped   atomic.Int64
	ConceptTotalNanos atomic.Int64
	ScoreCount        atomic.Int64
	ScoreErrors       atomic.Int64
	ScoreTotalNanos   atomic.Int64
}

// RecordTreeBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTreeBuild(nodes int, _ time.Duration, err error) {
	b.TreeBuilds.Add(1)
	if err != nil {
		b.TreeBuildErrors.Add(1)
		return
	}
	b.TreeNodes.Store(int64(nodes))
}

// RecordConcept implements MetricsCollector.
func (b *BasicMetricsCollector) RecordConcept(duration time.Duration, err error) {
	b.ConceptsProcessed.Add(1)
	b.ConceptTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ConceptsFailed.Add(1)
	}
}

// RecordConceptSkipped implements MetricsCollector.
func (b *BasicMetricsCollector) RecordConceptSkipped() {
	b.ConceptsSkipped.Add(1)
}

// RecordScore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScore(duration time.Duration, err error) {
	b.ScoreCount.Add(1)
	b.ScoreTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ScoreErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		TreeBuilds:        b.TreeBuilds.Load(),
		TreeBuildErrors:   b.TreeBuildErrors.Load(),
		TreeNodes:         b.TreeNodes.Load(),
		ConceptsProcessed: b.ConceptsProcessed.Load(),
		ConceptsFailed:    b.ConceptsFailed.Load(),
		ConceptsSkipped:   b.ConceptsSkipped.Load(),
		ConceptAvgNanos:   avg(b.ConceptTotalNanos.Load(), b.ConceptsProcessed.Load()),
		ScoreCount:        b.ScoreCount.Load(),
		ScoreErrors:       b.ScoreErrors.Load(),
		ScoreAvgNanos:     avg(b.ScoreTotalNanos.Load(), b.ScoreCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TreeBuilds        int64
	TreeBuildErrors   int64
	TreeNodes         int64
	ConceptsProcessed int64
	ConceptsFailed    int64
	ConceptsSkipped   int64
	ConceptAvgNanos   int64
	ScoreCount        int64
	ScoreErrors       int64
	ScoreAvgNanos     int64
}
