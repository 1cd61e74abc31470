package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ontoinfer"
	"github.com/hupe1980/ontoinfer/internal/config"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string

	cfg    *config.Config
	logger *ontoinfer.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ontoinfer",
		Short: "Ontology-driven reverse inference",
		Long: `ontoinfer partitions an observation corpus along a concept tree and
estimates, for every concept, how likely an image belongs to it.

Relationship tables are tab separated with id, parent and name columns.
Observation tables are CSV files with a header "id,v0,v1,..." and one row
per observation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./ontoinfer.yaml or $HOME/.ontoinfer/ontoinfer.yaml)")

	rootCmd.AddCommand(
		newTreeCmd(a),
		newGroupsCmd(a),
		newInferCmd(a),
		newScoreCmd(a),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	a.cfg = cfg
	if cfg.Logging.Format == "json" {
		a.logger = ontoinfer.NewJSONLoggerTo(cmd.ErrOrStderr(), level)
	} else {
		a.logger = ontoinfer.NewLogger(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}
	return nil
}
