package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/metrics"
)

// FetchFunc returns up to limit open markets from one venue.
type FetchFunc func(ctx context.Context, limit int) ([]domain.Market, error)

// DetectorConfig holds fetch sizing and catalog fallback settings.
type DetectorConfig struct {
	PolymarketLimit int
	KalshiLimit     int
	// FallbackMaxAge bounds how old catalog rows may be when a live fetch
	// fails. Zero disables the fallback.
	FallbackMaxAge time.Duration
}

// Detection is the outcome of one fetch, match and price pass.
type Detection struct {
	Polymarket []domain.Market
	Kalshi     []domain.Market
	Matches    []domain.MatchResult
	// Results are sorted by descending ProfitPct.
	Results []domain.ArbitrageResult
}

// Detector ties the venue fetchers to the matcher and calculator. The cache
// and catalog are optional.
type Detector struct {
	polymarket FetchFunc
	kalshi     FetchFunc
	matcher    *matching.Matcher
	calc       *arbitrage.Calculator
	cache      domain.MarketListCache
	catalog    domain.MarketStore
	cfg        DetectorConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewDetector creates a Detector. cache and catalog may be nil.
func NewDetector(
	polymarket, kalshi FetchFunc,
	matcher *matching.Matcher,
	calc *arbitrage.Calculator,
	cache domain.MarketListCache,
	catalog domain.MarketStore,
	cfg DetectorConfig,
	logger *slog.Logger,
) *Detector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Detector{
		polymarket: polymarket,
		kalshi:     kalshi,
		matcher:    matcher,
		calc:       calc,
		cache:      cache,
		catalog:    catalog,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "detector")),
		now:        time.Now,
	}
}

// Detect fetches both venues concurrently, matches Polymarket against Kalshi
// and prices every match. An empty venue yields an empty Detection, not an
// error. A fetch that fails with no usable catalog fallback is an error.
func (d *Detector) Detect(ctx context.Context) (Detection, error) {
	var det Detection

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		det.Polymarket, err = d.fetch(gctx, domain.PlatformPolymarket, d.polymarket, d.cfg.PolymarketLimit)
		return err
	})
	g.Go(func() error {
		var err error
		det.Kalshi, err = d.fetch(gctx, domain.PlatformKalshi, d.kalshi, d.cfg.KalshiLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Detection{}, fmt.Errorf("service: detect: %w", err)
	}

	if len(det.Polymarket) == 0 || len(det.Kalshi) == 0 {
		d.logger.WarnContext(ctx, "a venue returned no markets, skipping match",
			slog.Int("polymarket", len(det.Polymarket)),
			slog.Int("kalshi", len(det.Kalshi)),
		)
		return det, nil
	}

	det.Matches = d.matcher.MatchMarkets(ctx, det.Polymarket, det.Kalshi)
	det.Results = d.calc.CalculateAll(det.Matches)
	slices.SortStableFunc(det.Results, func(a, b domain.ArbitrageResult) int {
		return cmp.Compare(b.ProfitPct, a.ProfitPct)
	})

	d.logger.InfoContext(ctx, "detection complete",
		slog.Int("matches", len(det.Matches)),
		slog.Int("opportunities", len(det.Results)),
	)
	return det, nil
}

// fetch serves a venue from the short-TTL cache, then the live API, then the
// catalog. Live results refresh both the cache and the catalog.
func (d *Detector) fetch(ctx context.Context, platform domain.Platform, fn FetchFunc, limit int) ([]domain.Market, error) {
	log := d.logger.With(slog.String("platform", string(platform)))

	if d.cache != nil {
		cached, err := d.cache.GetMarkets(ctx, platform)
		switch {
		case err == nil && len(cached) > 0:
			log.DebugContext(ctx, "serving markets from cache", slog.Int("count", len(cached)))
			metrics.MarketsFetched.WithLabelValues(string(platform)).Set(float64(len(cached)))
			return cached, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			log.WarnContext(ctx, "market cache read failed", slog.String("error", err.Error()))
		}
	}

	markets, err := fn(ctx, limit)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(platform)).Inc()
		log.WarnContext(ctx, "live fetch failed", slog.String("error", err.Error()))
		return d.fallback(ctx, platform, limit, err)
	}
	metrics.MarketsFetched.WithLabelValues(string(platform)).Set(float64(len(markets)))
	log.InfoContext(ctx, "fetched markets", slog.Int("count", len(markets)))

	if len(markets) == 0 {
		return markets, nil
	}
	if d.cache != nil {
		if err := d.cache.SetMarkets(ctx, platform, markets); err != nil {
			log.WarnContext(ctx, "market cache write failed", slog.String("error", err.Error()))
		}
	}
	if d.catalog != nil {
		if err := d.catalog.UpsertBatch(ctx, markets); err != nil {
			log.WarnContext(ctx, "catalog upsert failed", slog.String("error", err.Error()))
		}
	}
	return markets, nil
}

func (d *Detector) fallback(ctx context.Context, platform domain.Platform, limit int, cause error) ([]domain.Market, error) {
	if d.catalog == nil || d.cfg.FallbackMaxAge <= 0 {
		return nil, fmt.Errorf("fetch %s: %w", platform, cause)
	}
	since := d.now().Add(-d.cfg.FallbackMaxAge)
	markets, err := d.catalog.ListFresh(ctx, platform, since, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", platform, errors.Join(cause, err))
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("fetch %s: %w: catalog has %w", platform, cause, domain.ErrNoMarkets)
	}
	d.logger.WarnContext(ctx, "using catalog fallback",
		slog.String("platform", string(platform)),
		slog.Int("count", len(markets)),
		slog.Time("since", since),
	)
	return markets, nil
}
