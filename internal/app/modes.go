package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/embedding"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/pipeline"
	"github.com/alanyoungcy/crossarb/internal/server"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
	"github.com/alanyoungcy/crossarb/internal/service"
)

// buildScanner assembles matcher, calculator, detector and scanner. The
// second result reports whether semantic scoring came up.
func (a *App) buildScanner(ctx context.Context, deps *Dependencies) (*pipeline.Scanner, bool) {
	cfg := a.cfg

	var load matching.EmbedderLoader
	if cfg.Matching.UseSemantic {
		load = embedding.Loader(ctx, embedding.Options{
			Provider:  cfg.Embedding.Provider,
			APIKey:    cfg.Embedding.ApiKey,
			Model:     cfg.Embedding.Model,
			BatchSize: cfg.Embedding.BatchSize,
			Cache:     deps.EmbeddingCache,
			CacheTTL:  cfg.Embedding.CacheTTL.Duration,
			Logger:    a.logger,
		})
	}
	matcher := matching.NewMatcher(matching.Config{
		MinConfidence: cfg.Matching.MinConfidence,
		UseSemantic:   cfg.Matching.UseSemantic,
		Workers:       cfg.Matching.Workers,
	}, load, a.logger)

	calc := arbitrage.NewCalculator(arbitrage.Config{
		MinProfitPct: cfg.Arbitrage.MinProfitPct,
		MinLiquidity: cfg.Arbitrage.MinLiquidity,
	}, a.logger)

	kalshiStatus := cfg.Scan.KalshiStatus
	detector := service.NewDetector(
		deps.Polymarket.GetMarkets,
		func(ctx context.Context, limit int) ([]domain.Market, error) {
			return deps.Kalshi.GetMarkets(ctx, limit, kalshiStatus)
		},
		matcher,
		calc,
		deps.MarketCache,
		deps.MarketStore,
		service.DetectorConfig{
			PolymarketLimit: cfg.Scan.PolymarketLimit,
			KalshiLimit:     cfg.Scan.KalshiLimit,
			FallbackMaxAge:  cfg.Scan.FallbackMaxAge.Duration,
		},
		a.logger,
	)

	semantic := matcher.SemanticState() == matching.SemanticReady
	scanner := pipeline.NewScanner(pipeline.Deps{
		Detector: detector,
		Notifier: deps.Notifier,
		Bus:      deps.SignalBus,
		Archiver: deps.Archiver,
		Locks:    deps.LockManager,
	}, pipeline.ScannerConfig{
		LockTTL:  lockTTL(cfg.Scan.Interval.Duration),
		Semantic: semantic,
	}, a.logger)
	return scanner, semantic
}

// lockTTL keeps the scan lock shorter than one interval so a crashed holder
// cannot block more than one tick.
func lockTTL(interval time.Duration) time.Duration {
	if interval <= 0 || interval > 5*time.Minute {
		return 5 * time.Minute
	}
	return interval
}

// OnceMode runs a single scan and prints every opportunity.
func (a *App) OnceMode(ctx context.Context, scanner *pipeline.Scanner) error {
	report, err := scanner.Run(ctx)
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}
	printReport(a.out, report)
	return nil
}

func printReport(w io.Writer, report domain.ScanReport) {
	if len(report.Opportunities) == 0 {
		fmt.Fprintln(w, "No arbitrage opportunities found.")
		return
	}
	fmt.Fprintf(w, "Found %d arbitrage opportunities\n", len(report.Opportunities))
	for _, opp := range report.Opportunities {
		fmt.Fprintln(w, service.FormatOpportunity(opp.Result))
	}
}

// ContinuousMode scans every scan.interval until ctx is cancelled.
func (a *App) ContinuousMode(ctx context.Context, scanner *pipeline.Scanner) error {
	a.logger.InfoContext(ctx, "starting continuous mode",
		slog.Duration("interval", a.cfg.Scan.Interval.Duration),
	)
	err := scanner.RunLoop(ctx, a.cfg.Scan.Interval.Duration)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// FullMode runs the scan loop alongside the HTTP API and websocket hub.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, scanner *pipeline.Scanner) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.Duration("interval", a.cfg.Scan.Interval.Duration),
		slog.Int("port", a.cfg.Server.Port),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := scanner.RunLoop(ctx, a.cfg.Scan.Interval.Duration)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("scanner: %w", err)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, scanner)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startHTTPServer adds the hub, listener and shutdown goroutines to g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, scanner *pipeline.Scanner) {
	hub := ws.NewHub(deps.SignalBus, ws.Config{
		Mode:           a.cfg.Mode,
		StartedAt:      time.Now().UTC(),
		AllowedOrigins: a.cfg.Server.CORSOrigins,
	}, a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Opportunities: handler.NewOpportunityHandler(scanner, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
