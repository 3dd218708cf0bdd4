package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appLog "hinducal/internal/log"
	"hinducal/internal/publish"
	"hinducal/internal/store"
	"hinducal/internal/web"
)

func (a *app) newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the calendar publisher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}

// serve runs the API server, the publisher and the cache janitor until ctx
// is canceled or one of them fails.
func (a *app) serve(ctx context.Context) error {
	cache, err := store.Open(a.cfg.Server.CachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	eng := a.engine()
	pub, err := publish.New(a.cfg.Publish, eng)
	if err != nil {
		return err
	}
	srv := web.NewServer(a.cfg, eng, a.locator(), cache)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		pub.Start(gctx)
		return nil
	})
	if cache != nil && a.cfg.Server.CacheTTL > 0 {
		g.Go(func() error {
			purgeLoop(gctx, cache, a.cfg.Server.CacheTTL)
			return nil
		})
	}
	return g.Wait()
}

// purgeLoop drops expired cache rows once per ttl.
func purgeLoop(ctx context.Context, cache *store.Store, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.Purge(ctx, time.Now().Add(-ttl))
			if err != nil {
				appLog.Warn("cache purge failed", "err", err)
				continue
			}
			if n > 0 {
				appLog.Info("cache purged", "rows", n)
			}
		}
	}
}
