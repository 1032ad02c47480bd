package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/outcomefi/engine/internal/engine"
	"github.com/outcomefi/engine/internal/server"
	"github.com/outcomefi/engine/internal/server/handler"
	"github.com/outcomefi/engine/internal/server/ws"
	"github.com/outcomefi/engine/internal/service"
)

// services bundles the composed service layer shared by the modes.
type services struct {
	eng       *engine.Engine
	markets   *service.MarketService
	trading   *service.TradingService
	liquidity *service.LiquidityService
	claims    *service.ClaimsService
	boot      *service.Bootstrapper
	snapshots *service.Snapshotter
}

// buildServices composes the engine and its service layer, then rebuilds the
// engine's in-memory state from Postgres.
func (a *App) buildServices(ctx context.Context, deps *Dependencies) (*services, error) {
	publisher := service.NewEventPublisher(deps.SignalBus, a.logger)

	// The market service doubles as the engine's is-open gate, so the two are
	// wired in two steps.
	markets := service.NewMarketService(
		deps.MarketStore, deps.PoolStore, deps.MarketCache, deps.AuditStore,
		deps.Notifier, a.logger,
	)
	eng := engine.New(markets, publisher, engine.Params{
		FeeBps:         a.cfg.Engine.FeeBps,
		MinOrderAmount: a.cfg.Engine.MinOrderAmount,
		MinLiquidity:   a.cfg.Engine.MinLiquidity,
	})
	markets.AttachEngine(eng)

	svcs := &services{
		eng:     eng,
		markets: markets,
		trading: service.NewTradingService(
			eng, deps.OrderStore, deps.RegistryStore, deps.TradeStore,
			deps.MarketStore, deps.ClaimStore, deps.BookCache, a.logger,
		),
		liquidity: service.NewLiquidityService(
			eng, deps.PoolStore, deps.LPShareStore, deps.ClaimStore,
			deps.PriceCache, a.logger,
		),
		claims: service.NewClaimsService(
			eng, deps.ClaimStore, deps.AuditStore, a.logger,
		),
		boot: service.NewBootstrapper(
			eng, deps.MarketStore, deps.OrderStore, deps.RegistryStore,
			deps.PoolStore, deps.ClaimStore, a.logger,
		),
		snapshots: service.NewSnapshotter(
			eng, deps.MarketStore, deps.RegistryStore, deps.PoolStore,
			a.cfg.Engine.SnapshotInterval.Duration, a.logger,
		),
	}

	if err := svcs.boot.Restore(ctx); err != nil {
		return nil, fmt.Errorf("app: restore engine state: %w", err)
	}
	return svcs, nil
}

// ServerMode runs the HTTP/WebSocket API, the snapshotter, and the event hub.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	svcs, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startSnapshotter(ctx, g, svcs)
	a.startHTTPServer(ctx, g, deps, svcs)
	return g.Wait()
}

// ArchiveMode runs only the cold-storage sweep; no API is served. The
// snapshotter is not needed because this mode never mutates engine state.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires s3 configuration")
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API server and the archiver in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	svcs, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startSnapshotter(ctx, g, svcs)
	if a.cfg.Archiver.Enabled {
		if deps.Archiver == nil {
			return fmt.Errorf("app: archiver enabled but s3 is not configured")
		}
		a.startArchiver(ctx, g, deps)
	}
	a.startHTTPServer(ctx, g, deps, svcs)
	return g.Wait()
}

// startSnapshotter runs the periodic Postgres reconciliation loop.
func (a *App) startSnapshotter(ctx context.Context, g *errgroup.Group, svcs *services) {
	g.Go(func() error {
		if err := svcs.snapshots.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("snapshotter: %w", err)
		}
		return nil
	})
}

// startArchiver runs the periodic cold-storage sweep.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	retention := time.Duration(a.cfg.Archiver.RetentionDays) * 24 * time.Hour
	runner := service.NewArchiveRunner(
		deps.MarketStore, deps.Archiver, deps.LockManager, deps.Notifier,
		a.cfg.Archiver.Interval.Duration, retention, a.logger,
	)
	g.Go(func() error {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("archiver: %w", err)
		}
		return nil
	})
}

// startHTTPServer adds the API server and WebSocket hub to the errgroup and
// shuts the server down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "server disabled by configuration")
		return
	}

	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.Postgres, deps.Redis, a.logger),
		Markets: handler.NewMarketHandler(svcs.markets, a.logger),
		Orders:  handler.NewOrderHandler(svcs.trading, a.logger),
		Pool:    handler.NewPoolHandler(svcs.liquidity, a.logger),
		Claims:  handler.NewClaimsHandler(svcs.claims, a.logger),
	}
	if deps.BlobReader != nil {
		handlers.Archive = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:          a.cfg.Server.Port,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		APIKey:        a.cfg.Server.APIKey,
		RatePerMinute: a.cfg.Server.RatePerMinute,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	a.logger.InfoContext(ctx, "api server scheduled",
		slog.Int("port", a.cfg.Server.Port),
	)
}
