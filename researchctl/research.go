package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DeafMist/deep-research/internal/bootstrap"
	"github.com/DeafMist/deep-research/internal/config"
	"github.com/DeafMist/deep-research/internal/logger"
	"github.com/DeafMist/deep-research/internal/models"
)

type researcher interface {
	Research(ctx context.Context, query string) (*models.ResearchResult, error)
}

// buildResearcher is swapped out in tests.
var buildResearcher = func() (researcher, func() error, error) {
	cfg, err := config.LoadPipeline()
	if err != nil {
		return nil, nil, err
	}
	rt, err := bootstrap.Build(cfg, logger.NewWithWriter(os.Stderr, "researchctl"), nil)
	if err != nil {
		return nil, nil, err
	}
	return rt.Agent, rt.Close, nil
}

func newResearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "research <query...>",
		Short: "Run a research query and print the report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, closeFn, err := buildResearcher()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := agent.Research(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), opts.output, result)
		},
	}
}
