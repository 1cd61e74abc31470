package main

import (
	"github.com/spf13/cobra"
)

func newTreeCmd(a *app) *cobra.Command {
	var f corpusFlags

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the concept tree as nested JSON",
		Long: `Build the concept tree from a relationship table and print it as nested
JSON. Leaves attached directly to the root are omitted from the output.`,
		Example: `  ontoinfer tree --relationships rel.tsv
  ontoinfer tree --relationships rel.tsv --meta meta.yaml --categories`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := a.loadTree(cmd.Context(), &f)
			if err != nil {
				return err
			}
			return writeJSON(cmd, tree)
		},
	}
	f.register(cmd, false)
	return cmd
}
