package daemon

import (
	"context"
	"log/slog"

	"bridgewatch/api"

	"golang.org/x/sync/errgroup"
)

// Run starts the manager and the API server, then blocks until ctx is
// cancelled.
func Run(ctx context.Context, m *Manager, socketPath string) error {
	srv := api.New(m)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("manager running")
		return m.Run(ctx)
	})
	g.Go(func() error {
		slog.Info("api listening", "socket", socketPath)
		return srv.ListenAndServe(ctx, socketPath)
	})
	return g.Wait()
}
