package main

import (
	"context"
	"errors"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/ontoinfer"
	"github.com/hupe1980/ontoinfer/blobstore"
	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/ontology"
)

// corpusFlags are the input flags shared by the subcommands.
type corpusFlags struct {
	relationships string
	meta          string
	observations  string
	categories    bool
}

func (f *corpusFlags) register(cmd *cobra.Command, observations bool) {
	cmd.Flags().StringVar(&f.relationships, "relationships", "", "Tab separated relationship table (id, parent, name)")
	cmd.Flags().StringVar(&f.meta, "meta", "", "YAML or JSON node metadata keyed by node id")
	cmd.Flags().BoolVar(&f.categories, "categories", false, "Group the root's children by Cognitive Atlas category")
	_ = cmd.MarkFlagRequired("relationships")

	if observations {
		cmd.Flags().StringVar(&f.observations, "observations", "", "Observation CSV (id,v0,v1,...)")
		_ = cmd.MarkFlagRequired("observations")
	}
}

func (a *app) loadTree(ctx context.Context, f *corpusFlags) (*ontology.Tree, error) {
	rows, err := readFile(f.relationships, func(fh *os.File) ([]ontology.Row, error) {
		return ontology.ReadTable(fh)
	})
	if err != nil {
		return nil, err
	}

	var meta map[string]ontology.Meta
	if f.meta != "" {
		if meta, err = readFile(f.meta, func(fh *os.File) (map[string]ontology.Meta, error) {
			return ontology.ReadMeta(fh)
		}); err != nil {
			return nil, err
		}
	}

	opts := []ontoinfer.Option{ontoinfer.WithLogger(a.logger)}
	if f.categories || a.cfg.Ontology.Categories {
		opts = append(opts, ontoinfer.WithCategoryLookup(ontology.CognitiveAtlasCategories()))
	}
	return ontoinfer.BuildTree(ctx, rows, meta, opts...)
}

// loadCorpus builds the tree, reads the observations and matches leaf names
// to observation ids.
func (a *app) loadCorpus(ctx context.Context, f *corpusFlags) (*ontology.Tree, *observation.Table, map[string]string, error) {
	tree, err := a.loadTree(ctx, f)
	if err != nil {
		return nil, nil, nil, err
	}
	obs, err := readObservations(f.observations)
	if err != nil {
		return nil, nil, nil, err
	}
	return tree, obs, observation.Correspond(leafNames(tree), obs.IDs()), nil
}

func leafNames(tree *ontology.Tree) []string {
	var names []string
	for _, id := range tree.IDs() {
		if !tree.IsLeaf(id) {
			continue
		}
		if n, ok := tree.Node(id); ok && !n.Synthetic {
			names = append(names, n.Name)
		}
	}
	return names
}

func readObservations(path string) (*observation.Table, error) {
	return readFile(path, func(fh *os.File) (*observation.Table, error) {
		return observation.ReadCSV(fh)
	})
}

func readFile[T any](path string, fn func(*os.File) (T, error)) (T, error) {
	fh, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer fh.Close()
	return fn(fh)
}

// engineOptions translates the configuration into engine options. blobs and
// sink may be nil.
func (a *app) engineOptions(blobs blobstore.BlobStore, sink ontoinfer.ScoreSink) ([]ontoinfer.Option, error) {
	inf := a.cfg.Inference
	opts := []ontoinfer.Option{
		ontoinfer.WithLogger(a.logger),
		ontoinfer.WithWorkers(inf.Workers),
		ontoinfer.WithMemoryLimit(inf.MemoryLimit),
		ontoinfer.WithIOLimit(a.cfg.Artifacts.IOLimit),
		ontoinfer.WithEqualPriors(inf.EqualPriors),
		ontoinfer.WithStep(inf.Step),
	}
	if len(inf.Ranges) > 0 {
		opts = append(opts, ontoinfer.WithRanges(inf.Ranges))
	}
	if inf.Binary {
		opts = append(opts, ontoinfer.WithThreshold(inf.Threshold))
	}

	if blobs != nil {
		c, err := artifactCodec(a.cfg.Artifacts)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			ontoinfer.WithArtifactStore(blobs),
			ontoinfer.WithCodec(c),
			ontoinfer.WithPrefix(a.cfg.Artifacts.Prefix),
		)
	}
	if sink != nil {
		opts = append(opts, ontoinfer.WithScoreSink(sink))
	}
	return opts, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var errNoConcepts = errors.New("no concept could be partitioned")
