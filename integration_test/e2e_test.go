package integration_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ontoinfer"
	"github.com/hupe1980/ontoinfer/artifact"
	"github.com/hupe1980/ontoinfer/blobstore"
	"github.com/hupe1980/ontoinfer/codec"
	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/scoredb"
	"github.com/hupe1980/ontoinfer/testutil"
)

func TestE2E_Restart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := codec.Compressed{Inner: codec.GoJSON{}, Type: codec.CompressionLZ4}

	fx, err := testutil.NewFixture(testutil.NewRNG(7), 4, 5, 16)
	require.NoError(t, err)

	db, err := scoredb.Open(filepath.Join(dir, "scores.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	// 1. Run and persist
	blobs := blobstore.NewLocalStore(filepath.Join(dir, "artifacts"))
	e, err := ontoinfer.New(fx.Tree, fx.Observations, fx.Correspondence,
		ontoinfer.WithArtifactStore(blobs),
		ontoinfer.WithCodec(c),
		ontoinfer.WithScoreSink(db),
		ontoinfer.WithRunID("first"),
	)
	require.NoError(t, err)

	results, err := e.Run(ctx, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)

	ids, err := artifact.New(blobs, artifact.WithCodec(c)).ListConcepts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, ids)

	// 2. Reopen through a cache and score against the persisted tables
	cached := blobstore.NewCachingStore(blobstore.NewLocalStore(filepath.Join(dir, "artifacts")), 1<<20)
	e2, err := ontoinfer.New(fx.Tree, fx.Observations, fx.Correspondence,
		ontoinfer.WithArtifactStore(cached),
		ontoinfer.WithCodec(c),
	)
	require.NoError(t, err)

	query, err := observation.New([]string{"q"}, [][]float64{fx.Patterns["c2"]})
	require.NoError(t, err)

	qs, err := e2.Score(ctx, query, "c2")
	require.NoError(t, err)
	assert.True(t, qs.Persisted)
	assert.Positive(t, cached.CachedBytes())

	fresh, err := e.Score(ctx, query, "c2")
	require.NoError(t, err)
	assert.InDelta(t, fresh.Image, qs.Image, 1e-12)
	assert.InDelta(t, fresh.Distance, qs.Distance, 1e-12)

	first, err := db.Run(ctx, "first")
	require.NoError(t, err)
	var distances int
	for _, s := range first {
		if s.Kind == scoredb.KindDistance {
			distances++
			assert.Equal(t, "c2", s.ConceptID)
			assert.InDelta(t, fresh.Distance, s.Posterior, 1e-12)
		}
	}
	assert.Equal(t, 1, distances)

	// 3. Scores of the first run survive a second one
	e3, err := ontoinfer.New(fx.Tree, fx.Observations, fx.Correspondence,
		ontoinfer.WithScoreSink(db),
		ontoinfer.WithRunID("second"),
		ontoinfer.WithEqualPriors(true),
	)
	require.NoError(t, err)
	_, err = e3.Run(ctx, []string{"c1"})
	require.NoError(t, err)

	runs, err := db.Runs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "second"}, runs)

	history, err := db.Concept(ctx, "c1")
	require.NoError(t, err)
	perRun := map[string]int{}
	for _, s := range history {
		perRun[s.RunID]++
	}
	assert.Equal(t, perRun["first"], perRun["second"])
}

func TestE2E_MemoryStoreBinary(t *testing.T) {
	ctx := context.Background()

	fx, err := testutil.NewFixture(testutil.NewRNG(3), 3, 4, 12)
	require.NoError(t, err)

	blobs := blobstore.NewMemoryStore()
	e, err := ontoinfer.New(fx.Tree, fx.Observations, fx.Correspondence,
		ontoinfer.WithArtifactStore(blobs),
		ontoinfer.WithThreshold(1.0),
		ontoinfer.WithPrefix("ri"),
	)
	require.NoError(t, err)

	results, err := e.Run(ctx, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	store := artifact.New(blobs, artifact.WithPrefix("ri"))
	for _, r := range results {
		in, out, err := store.GetLikelihood(ctx, r.ConceptID)
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, in.Labels())
		assert.Equal(t, r.In, in.N())
		assert.Equal(t, r.Out, out.N())
	}
}
