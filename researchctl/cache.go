package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeafMist/deep-research/internal/bootstrap"
	"github.com/DeafMist/deep-research/internal/cache"
	"github.com/DeafMist/deep-research/internal/config"
	"github.com/DeafMist/deep-research/internal/logger"
)

type cacheOptions struct {
	backend string
	path    string
}

func newCacheCmd(root *rootOptions) *cobra.Command {
	backend, path := config.CacheLocation()
	opts := &cacheOptions{backend: backend, path: path}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the summary cache",
	}
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", opts.backend, "cache backend: json or sqlite")
	cmd.PersistentFlags().StringVar(&opts.path, "path", opts.path, "cache file location")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := opts.open()
			if err != nil {
				return err
			}
			defer closeFn()
			return renderCache(cmd.OutOrStdout(), root.output, c.Snapshot())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := opts.open()
			if err != nil {
				return err
			}
			defer closeFn()

			n := c.Len()
			if err := c.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%d entries removed)\n", n)
			return nil
		},
	})

	return cmd
}

func (o *cacheOptions) open() (*cache.Cache, func() error, error) {
	log := logger.NewWithWriter(os.Stderr, "researchctl")
	store, err := bootstrap.OpenStore(&config.Pipeline{CacheBackend: o.backend, CachePath: o.path}, log, nil)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if s, ok := store.(*cache.SQLite); ok {
		closeFn = s.Close
	}
	return cache.Open(store, log, nil), closeFn, nil
}
