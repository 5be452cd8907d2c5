package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the HTTP API and the embedding worker in one process",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, "all")
		if err != nil {
			return err
		}
		defer a.close()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return a.serveHTTP(gctx) })
		g.Go(func() error { return a.runWorker(gctx) })
		return g.Wait()
	},
}
