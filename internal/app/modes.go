package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mintrail/phygmarket/internal/server"
	"github.com/mintrail/phygmarket/internal/server/handler"
	"github.com/mintrail/phygmarket/internal/server/ws"
	"github.com/mintrail/phygmarket/internal/service"
)

// ServeMode runs the HTTP + WebSocket API together with the background rate
// refresher. Phase countdowns and archival are left to a monitor process.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	rateSvc := a.buildRateService(deps)
	g.Go(func() error {
		return runIgnoringCancel(ctx, rateSvc.Run)
	})

	a.startHTTPServer(ctx, g, deps, rateSvc)

	return g.Wait()
}

// MonitorMode runs the background machinery without the HTTP API: the rate
// refresher, the phase ticker, and (when enabled) the archive loop.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	rateSvc := a.buildRateService(deps)
	g.Go(func() error {
		return runIgnoringCancel(ctx, rateSvc.Run)
	})

	ticker := service.NewPhaseTicker(
		deps.MarketStore,
		deps.SignalBus,
		deps.Notifier,
		a.cfg.Engine.CountdownInterval.Duration,
		a.logger,
	)
	g.Go(func() error {
		return runIgnoringCancel(ctx, ticker.Run)
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			return runIgnoringCancel(ctx, a.runArchiveLoop(deps))
		})
	}

	return g.Wait()
}

// FullMode runs everything in a single process: HTTP + WebSocket API, rate
// refresher, phase ticker, and the archive loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	rateSvc := a.buildRateService(deps)
	g.Go(func() error {
		return runIgnoringCancel(ctx, rateSvc.Run)
	})

	ticker := service.NewPhaseTicker(
		deps.MarketStore,
		deps.SignalBus,
		deps.Notifier,
		a.cfg.Engine.CountdownInterval.Duration,
		a.logger,
	)
	g.Go(func() error {
		return runIgnoringCancel(ctx, ticker.Run)
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			return runIgnoringCancel(ctx, a.runArchiveLoop(deps))
		})
	}

	a.startHTTPServer(ctx, g, deps, rateSvc)

	return g.Wait()
}

// buildRateService constructs the exchange-rate refresher from configuration.
func (a *App) buildRateService(deps *Dependencies) *service.RateService {
	fallback := decimal.Zero
	if a.cfg.PriceFeed.FallbackRate != "" {
		if d, err := decimal.NewFromString(a.cfg.PriceFeed.FallbackRate); err == nil {
			fallback = d
		}
	}

	return service.NewRateService(
		deps.PriceFeed,
		deps.RateCache,
		deps.SignalBus,
		deps.Notifier,
		fallback,
		a.cfg.PriceFeed.RefreshInterval.Duration,
		a.logger,
	)
}

// startHTTPServer assembles the services, handlers, and WebSocket hub, then
// starts the HTTP server and its graceful-shutdown watcher on the group.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, rates *service.RateService) {
	if !a.cfg.Server.Enabled {
		a.logger.Info("http server disabled by configuration")
		return
	}

	marketSvc := service.NewMarketService(
		deps.MarketStore,
		deps.ItemStore,
		deps.ChainReader,
		deps.RewardLedger,
		deps.SnapshotCache,
		rates,
		deps.SignalBus,
		a.logger,
	)
	redemptionSvc := service.NewRedemptionService(
		deps.MarketStore,
		deps.ItemStore,
		deps.RedemptionStore,
		deps.ChainReader,
		marketSvc,
		deps.SnapshotCache,
		deps.LockManager,
		deps.SignalBus,
		deps.Notifier,
		a.cfg.Engine.RedeemLockTTL.Duration,
		a.logger,
	)

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Markets:     handler.NewMarketHandler(marketSvc, a.logger),
		Items:       handler.NewItemHandler(marketSvc, a.logger),
		Redemptions: handler.NewRedemptionHandler(redemptionSvc, a.logger),
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return runIgnoringCancel(ctx, hub.Run)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// runArchiveLoop returns a loop that periodically archives confirmed
// redemptions older than the retention window to blob storage.
func (a *App) runArchiveLoop(deps *Dependencies) func(context.Context) error {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	return func(ctx context.Context) error {
		logger := a.logger.With(slog.String("component", "archive_loop"))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				count, err := deps.Archiver.ArchiveRedemptions(ctx, cutoff)
				if err != nil {
					logger.ErrorContext(ctx, "archive run failed",
						slog.String("error", err.Error()),
					)
					if deps.Notifier != nil {
						_ = deps.Notifier.Notify(ctx, "error",
							"Redemption archive failed",
							fmt.Sprintf("Archive run for cutoff %s failed: %v", cutoff.Format(time.RFC3339), err),
						)
					}
					continue
				}
				if count > 0 {
					logger.InfoContext(ctx, "archive run completed",
						slog.Int64("archived", count),
					)
				}
			}
		}
	}
}

// runIgnoringCancel runs fn and swallows the context.Canceled error that
// long-running loops return at ordinary shutdown, so the errgroup result
// reflects real failures only.
func runIgnoringCancel(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return err
}
