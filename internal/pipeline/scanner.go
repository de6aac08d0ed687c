package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/metrics"
	"github.com/alanyoungcy/crossarb/internal/notify"
	"github.com/alanyoungcy/crossarb/internal/service"
)

const scanLockKey = "scan"

// Detector runs one fetch, match and price pass.
type Detector interface {
	Detect(ctx context.Context) (service.Detection, error)
}

// Notifier delivers an event-tagged alert.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Deps are the scanner's collaborators. Everything except Detector is
// optional.
type Deps struct {
	Detector Detector
	Notifier Notifier
	Bus      domain.SignalBus
	Archiver domain.SnapshotArchiver
	Locks    domain.LockManager
}

// ScannerConfig tunes a Scanner.
type ScannerConfig struct {
	// LockTTL bounds how long one replica may hold the scan lock.
	LockTTL time.Duration
	// Semantic is reported on each ScanReport.
	Semantic bool
}

// Scanner runs detection passes and fans each result out to the bus,
// notifier and snapshot archive. The latest report is kept for the API.
type Scanner struct {
	deps   Deps
	cfg    ScannerConfig
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	latest *domain.ScanReport
}

// NewScanner creates a Scanner.
func NewScanner(deps Deps, cfg ScannerConfig, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Scanner{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scanner")),
		now:    time.Now,
	}
}

// Latest returns the most recent successful report, or false before the first
// one completes.
func (s *Scanner) Latest() (domain.ScanReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.ScanReport{}, false
	}
	return *s.latest, true
}

// Run executes a single scan. When another replica holds the scan lock it
// returns an error wrapping domain.ErrLockHeld without scanning.
func (s *Scanner) Run(ctx context.Context) (domain.ScanReport, error) {
	if s.deps.Locks != nil {
		unlock, err := s.deps.Locks.Acquire(ctx, scanLockKey, s.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			metrics.ScansTotal.WithLabelValues("skipped").Inc()
			return domain.ScanReport{}, fmt.Errorf("pipeline: scan: %w", err)
		case err != nil:
			s.logger.WarnContext(ctx, "scan lock unavailable, scanning unlocked", slog.String("error", err.Error()))
		default:
			defer unlock()
		}
	}

	report := domain.ScanReport{
		ScanID:          uuid.NewString(),
		StartedAt:       s.now().UTC(),
		SemanticEnabled: s.cfg.Semantic,
	}
	log := s.logger.With(slog.String("scan_id", report.ScanID))
	log.InfoContext(ctx, "scan started")

	det, err := s.deps.Detector.Detect(ctx)
	report.Duration = s.now().Sub(report.StartedAt)
	metrics.ScanDuration.Observe(report.Duration.Seconds())
	if err != nil {
		metrics.ScansTotal.WithLabelValues("failed").Inc()
		s.notify(ctx, notify.EventScanFailed, "Scan failed", err.Error())
		return domain.ScanReport{}, fmt.Errorf("pipeline: scan %s: %w", report.ScanID, err)
	}

	report.PolymarketCount = len(det.Polymarket)
	report.KalshiCount = len(det.Kalshi)
	report.MatchCount = len(det.Matches)
	report.Opportunities = make([]domain.Opportunity, 0, len(det.Results))
	for _, r := range det.Results {
		report.Opportunities = append(report.Opportunities, domain.Opportunity{
			ScanID:      report.ScanID,
			Result:      r,
			Description: arbitrage.DescribeStrategy(r),
			DetectedAt:  report.StartedAt,
		})
	}

	s.record(report)
	s.publish(ctx, report.Opportunities)
	for _, opp := range report.Opportunities {
		title := fmt.Sprintf("Arbitrage opportunity: %.2f%%", opp.Result.ProfitPct)
		s.notify(ctx, notify.EventArbDetected, title, service.FormatOpportunity(opp.Result))
	}
	s.archive(ctx, report, det)

	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()

	log.InfoContext(ctx, "scan complete",
		slog.Int("polymarket", report.PolymarketCount),
		slog.Int("kalshi", report.KalshiCount),
		slog.Int("matches", report.MatchCount),
		slog.Int("opportunities", len(report.Opportunities)),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// RunLoop scans immediately and then on every interval tick until ctx is
// cancelled. Scan failures are logged and the loop continues.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration) error {
	s.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Scanner) runLogged(ctx context.Context) {
	_, err := s.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrLockHeld):
		s.logger.InfoContext(ctx, "scan skipped, another instance holds the lock")
	case ctx.Err() != nil:
	default:
		s.logger.ErrorContext(ctx, "scan failed", slog.String("error", err.Error()))
	}
}

func (s *Scanner) record(report domain.ScanReport) {
	metrics.ScansTotal.WithLabelValues("ok").Inc()
	metrics.Matches.Set(float64(report.MatchCount))
	metrics.Opportunities.Set(float64(len(report.Opportunities)))
	metrics.OpportunitiesTotal.Add(float64(len(report.Opportunities)))

	best := 0.0
	if len(report.Opportunities) > 0 {
		best = report.Opportunities[0].Result.ProfitPct
	}
	metrics.BestProfitPct.Set(best)
}

func (s *Scanner) publish(ctx context.Context, opps []domain.Opportunity) {
	if s.deps.Bus == nil {
		return
	}
	for _, opp := range opps {
		payload, err := json.Marshal(opp)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to encode opportunity", slog.String("error", err.Error()))
			continue
		}
		if err := s.deps.Bus.Publish(ctx, domain.ChannelArb, payload); err != nil {
			s.logger.WarnContext(ctx, "failed to publish opportunity", slog.String("error", err.Error()))
		}
	}
}

func (s *Scanner) notify(ctx context.Context, event, title, message string) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Scanner) archive(ctx context.Context, report domain.ScanReport, det service.Detection) {
	if s.deps.Archiver == nil || len(det.Polymarket)+len(det.Kalshi) == 0 {
		return
	}
	snap := domain.MarketSnapshot{
		ScanID:     report.ScanID,
		CapturedAt: report.StartedAt,
		Polymarket: det.Polymarket,
		Kalshi:     det.Kalshi,
	}
	path, err := s.deps.Archiver.Archive(ctx, snap)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot archive failed",
			slog.String("scan_id", report.ScanID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.DebugContext(ctx, "snapshot archived", slog.String("path", path))
}
