package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/ontoinfer"
	"github.com/hupe1980/ontoinfer/artifact"
)

type groupSummary struct {
	ConceptID string `json:"nid"`
	Name      string `json:"name"`
	In        int    `json:"in"`
	Out       int    `json:"out"`
	Key       string `json:"key"`
}

func newGroupsCmd(a *app) *cobra.Command {
	var (
		f        corpusFlags
		out      string
		concepts []string
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Partition the corpus and persist one group record per concept",
		Example: `  ontoinfer groups --relationships rel.tsv --observations obs.csv --out groups/
  ontoinfer groups --relationships rel.tsv --observations obs.csv --concept trm_4a3fd79d0b5a7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tree, obs, corr, err := a.loadCorpus(ctx, &f)
			if err != nil {
				return err
			}
			blobs, err := openBlobStore(ctx, a.cfg.Artifacts, out)
			if err != nil {
				return err
			}
			c, err := artifactCodec(a.cfg.Artifacts)
			if err != nil {
				return err
			}

			opts, err := a.engineOptions(nil, nil)
			if err != nil {
				return err
			}
			e, err := ontoinfer.New(tree, obs, corr, opts...)
			if err != nil {
				return err
			}

			var ids []string
			if len(concepts) > 0 {
				ids = concepts
			}
			groups, err := e.Groups(ids)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				return errNoConcepts
			}

			store := artifact.New(blobs, artifact.WithCodec(c), artifact.WithPrefix(a.cfg.Artifacts.Prefix))
			summary := make([]groupSummary, 0, len(groups))
			for _, g := range groups {
				if err := store.PutGroup(ctx, g); err != nil {
					return err
				}
				summary = append(summary, groupSummary{
					ConceptID: g.ConceptID,
					Name:      g.Name,
					In:        len(g.In),
					Out:       len(g.Out),
					Key:       store.GroupKey(g.ConceptID),
				})
			}
			return writeJSON(cmd, summary)
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringVar(&out, "out", "", "Write records to this directory instead of the configured backend")
	cmd.Flags().StringSliceVar(&concepts, "concept", nil, "Concept ids to partition (default: all)")
	return cmd
}
