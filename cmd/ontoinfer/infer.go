package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ontoinfer"
	"github.com/hupe1980/ontoinfer/artifact"
	"github.com/hupe1980/ontoinfer/inference"
	"github.com/hupe1980/ontoinfer/likelihood"
	"github.com/hupe1980/ontoinfer/resource"
	"github.com/hupe1980/ontoinfer/scoredb"
)

type inferOutput struct {
	RunID   string          `json:"runId"`
	Results []resultSummary `json:"results"`
}

type resultSummary struct {
	ConceptID  string            `json:"nid"`
	Name       string            `json:"name"`
	In         int               `json:"in"`
	Out        int               `json:"out"`
	Priors     inference.Priors  `json:"priors"`
	Threshold  []inference.Score `json:"threshold"`
	Image      float64           `json:"image"`
	DurationMs int64             `json:"durationMs"`
}

type inferFlags struct {
	corpus      corpusFlags
	out         string
	concepts    []string
	binary      float64
	equalPriors bool
	workers     int
	scores      string
	csvDir      string
	runID       string
}

func newInferCmd(a *app) *cobra.Command {
	var f inferFlags

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Estimate likelihood tables and posteriors for every concept",
		Long: `Partition the corpus for every concept, estimate the in-group and
out-group likelihood tables, persist them as artifacts and print the
posteriors. With a score database configured (scores.path or --scores) the
posteriors are recorded under the run id.`,
		Example: `  ontoinfer infer --relationships rel.tsv --observations obs.csv
  ontoinfer infer --relationships rel.tsv --observations obs.csv --binary 1.96 --scores scores.db
  ontoinfer infer --relationships rel.tsv --observations obs.csv --csv-dir likelihoods/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("binary") {
				a.cfg.Inference.Binary = true
				a.cfg.Inference.Threshold = f.binary
				a.cfg.Inference.Ranges = nil
			}
			if cmd.Flags().Changed("equal-priors") {
				a.cfg.Inference.EqualPriors = f.equalPriors
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Inference.Workers = f.workers
			}
			if f.scores != "" {
				a.cfg.Scores.Path = f.scores
			}
			return a.runInfer(cmd, &f)
		},
	}
	f.corpus.register(cmd, true)
	cmd.Flags().StringVar(&f.out, "out", "", "Write artifacts to this directory instead of the configured backend")
	cmd.Flags().StringSliceVar(&f.concepts, "concept", nil, "Concept ids to process (default: all)")
	cmd.Flags().Float64Var(&f.binary, "binary", 0, "Use binary estimation with this absolute threshold")
	cmd.Flags().BoolVar(&f.equalPriors, "equal-priors", false, "Use 0.5/0.5 priors")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concepts processed concurrently (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&f.scores, "scores", "", "Record posteriors in this SQLite database")
	cmd.Flags().StringVar(&f.csvDir, "csv-dir", "", "Also export the likelihood tables as CSV files to this directory")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run id recorded with the scores (default: random UUID)")
	return cmd
}

func (a *app) runInfer(cmd *cobra.Command, f *inferFlags) error {
	ctx := cmd.Context()

	tree, obs, corr, err := a.loadCorpus(ctx, &f.corpus)
	if err != nil {
		return err
	}
	blobs, err := openBlobStore(ctx, a.cfg.Artifacts, f.out)
	if err != nil {
		return err
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
	if f.runID != "" {
		opts = append(opts, ontoinfer.WithRunID(f.runID))
	}
	e, err := ontoinfer.New(tree, obs, corr, opts...)
	if err != nil {
		return err
	}

	var ids []string
	if len(f.concepts) > 0 {
		ids = f.concepts
	}
	results, err := e.Run(ctx, ids)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return errNoConcepts
	}

	if f.csvDir != "" {
		c, err := artifactCodec(a.cfg.Artifacts)
		if err != nil {
			return err
		}
		store := artifact.New(blobs, artifact.WithCodec(c), artifact.WithPrefix(a.cfg.Artifacts.Prefix))
		rc := resource.NewController(resource.Config{IOLimitBytesPerSec: a.cfg.Artifacts.IOLimit})
		for _, r := range results {
			if err := exportLikelihood(ctx, store, rc, f.csvDir, r.ConceptID); err != nil {
				return err
			}
		}
	}

	output := inferOutput{RunID: e.RunID(), Results: make([]resultSummary, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, resultSummary{
			ConceptID:  r.ConceptID,
			Name:       r.Name,
			In:         r.In,
			Out:        r.Out,
			Priors:     r.Priors,
			Threshold:  r.Threshold,
			Image:      r.Image,
			DurationMs: r.Duration.Milliseconds(),
		})
	}
	return writeJSON(cmd, output)
}

// exportLikelihood writes the persisted in/out tables of nid as
// <dir>/<key>.csv.
func exportLikelihood(ctx context.Context, store *artifact.Store, rc *resource.Controller, dir, nid string) error {
	in, out, err := store.GetLikelihood(ctx, nid)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for key, t := range map[string]*likelihood.Table{store.InKey(nid): in, store.OutKey(nid): out} {
		if err := writeTableCSV(ctx, rc, filepath.Join(dir, key+".csv"), t); err != nil {
			return fmt.Errorf("export %s: %w", key, err)
		}
	}
	return nil
}

func writeTableCSV(ctx context.Context, rc *resource.Controller, path string, t *likelihood.Table) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(resource.NewRateLimitedWriter(ctx, fh, rc)); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
