package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ontoinfer"
	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/resource"
	"github.com/hupe1980/ontoinfer/scoredb"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		f         corpusFlags
		out       string
		conceptID string
		query     string
		scores    string
		runID     string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a query image against one concept",
		Long: `Compute the posterior of a query image for one concept. The likelihood
tables persisted by "infer" are used when present; otherwise they are
estimated from the corpus. A query file with several rows is averaged.
With a score database configured (scores.path or --scores) the image and
distance posteriors are recorded under the run id.`,
		Example: `  ontoinfer score --relationships rel.tsv --observations obs.csv --concept trm_4a3fd79d0b5a7 --query q.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tree, obs, corr, err := a.loadCorpus(ctx, &f)
			if err != nil {
				return err
			}
			q, err := readFile(query, func(fh *os.File) (*observation.Table, error) {
				rc := resource.NewController(resource.Config{IOLimitBytesPerSec: a.cfg.Artifacts.IOLimit})
				return observation.ReadCSV(resource.NewRateLimitedReader(ctx, fh, rc))
			})
			if err != nil {
				return err
			}
			blobs, err := openBlobStore(ctx, a.cfg.Artifacts, out)
			if err != nil {
				return err
			}

			if scores != "" {
				a.cfg.Scores.Path = scores
			}
			var sink ontoinfer.ScoreSink
			if a.cfg.Scores.Path != "" {
				db, err := scoredb.Open(a.cfg.Scores.Path, a.logger.Logger)
				if err != nil {
					return err
				}
				defer db.Close()
				sink = db
			}

			opts, err := a.engineOptions(blobs, sink)
			if err != nil {
				return err
			}
			if runID != "" {
				opts = append(opts, ontoinfer.WithRunID(runID))
			}
			e, err := ontoinfer.New(tree, obs, corr, opts...)
			if err != nil {
				return err
			}
			qs, err := e.Score(ctx, q, conceptID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{
				"runId":     e.RunID(),
				"query":     qs.Query,
				"nid":       qs.ConceptID,
				"name":      qs.Name,
				"image":     qs.Image,
				"distance":  qs.Distance,
				"persisted": qs.Persisted,
			})
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringVar(&out, "out", "", "Read artifacts from this directory instead of the configured backend")
	cmd.Flags().StringVar(&conceptID, "concept", "", "Concept id")
	cmd.Flags().StringVar(&query, "query", "", "Query CSV (id,v0,v1,...)")
	cmd.Flags().StringVar(&scores, "scores", "", "Record posteriors in this SQLite database")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id recorded with the scores (default: random UUID)")
	_ = cmd.MarkFlagRequired("concept")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
