// Package ontoinfer provides ontology-driven reverse inference for Go.
//
// A concept tree (built from a flat, possibly multi-parent relationship
// table) partitions a corpus of observations into an in-group and an
// out-group for every concept. Each pair of groups yields Laplace-smoothed
// likelihood tables, which combine with priors into a posterior: how likely
// an image belongs to the concept.
//
// # Quick Start
//
//	rows, _ := ontology.ReadTable(relFile)
//	tree, _ := ontoinfer.BuildTree(ctx, rows, nil)
//
//	obs, _ := observation.ReadCSV(obsFile)
//	corr := observation.Correspond(tree.CollectNames(tree.Root()), obs.IDs())
//
//	e, _ := ontoinfer.New(tree, obs, corr, ontoinfer.WithWorkers(4))
//	results, _ := e.Run(ctx, nil) // every concept
//	for _, r := range results {
//	    fmt.Println(r.ConceptID, r.Name, r.Image)
//	}
//
// # Estimation Modes
//
// By default voxel values are binned into range buckets derived from the
// corpus (step 0.5, see WithStep and WithRanges). WithThreshold switches to
// binary estimation: a voxel is active when its absolute value meets the
// threshold.
//
// # Artifacts
//
// With WithArtifactStore, every processed concept writes a group record and
// its in/out likelihood tables (see package artifact). Score then reads the
// persisted tables instead of re-estimating them:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("ontoinfer/"))
//	e, _ := ontoinfer.New(tree, obs, corr, ontoinfer.WithArtifactStore(s3Store))
//	qs, _ := e.Score(ctx, query, "trm_4a3fd79d0b5a7")
//
// # Scores
//
// WithScoreSink records the posteriors of every run, for example in a
// scoredb.DB, keyed by the engine's run id.
package ontoinfer
