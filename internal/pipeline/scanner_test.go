package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/notify"
	"github.com/alanyoungcy/crossarb/internal/service"
)

type stubDetector struct {
	det service.Detection
	err error
}

func (d stubDetector) Detect(context.Context) (service.Detection, error) {
	return d.det, d.err
}

type sent struct{ event, title, message string }

type recordingNotifier struct{ got []sent }

func (n *recordingNotifier) Notify(_ context.Context, event, title, message string) error {
	n.got = append(n.got, sent{event, title, message})
	return nil
}

type memBus struct {
	mu  sync.Mutex
	msg map[string][][]byte
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.msg == nil {
		b.msg = map[string][][]byte{}
	}
	b.msg[channel] = append(b.msg[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

type memArchiver struct{ snaps []domain.MarketSnapshot }

func (a *memArchiver) Archive(_ context.Context, snap domain.MarketSnapshot) (string, error) {
	a.snaps = append(a.snaps, snap)
	return "snapshots/" + snap.ScanID + ".json", nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

type countingLock struct{ acquired, released int }

func (l *countingLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	l.acquired++
	return func() { l.released++ }, nil
}

func sampleDetection() service.Detection {
	a := domain.Market{Platform: domain.PlatformPolymarket, MarketID: "p1", Question: "Q?", YesPrice: 0.35, NoPrice: 0.65}
	b := domain.Market{Platform: domain.PlatformKalshi, MarketID: "k1", Question: "Q?", YesPrice: 0.62, NoPrice: 0.38}
	return service.Detection{
		Polymarket: []domain.Market{a},
		Kalshi:     []domain.Market{b},
		Matches:    []domain.MatchResult{{MarketA: &a, MarketB: &b, Confidence: 1, FuzzyScore: 100}},
		Results: []domain.ArbitrageResult{{
			MarketA: &a, MarketB: &b, ProfitPct: 27, Strategy: domain.StrategyYesANoB,
			Cost: 0.73, MatchConfidence: 1,
		}},
	}
}

func TestRunFansOut(t *testing.T) {
	n := &recordingNotifier{}
	bus := &memBus{}
	arch := &memArchiver{}
	lock := &countingLock{}
	s := NewScanner(Deps{
		Detector: stubDetector{det: sampleDetection()},
		Notifier: n,
		Bus:      bus,
		Archiver: arch,
		Locks:    lock,
	}, ScannerConfig{Semantic: true}, nil)

	if _, ok := s.Latest(); ok {
		t.Fatal("Latest should be empty before the first scan")
	}

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ScanID == "" || !report.SemanticEnabled {
		t.Errorf("report = %+v", report)
	}
	if report.MatchCount != 1 || len(report.Opportunities) != 1 {
		t.Fatalf("matches = %d, opportunities = %d", report.MatchCount, len(report.Opportunities))
	}
	opp := report.Opportunities[0]
	if opp.ScanID != report.ScanID || opp.Description.ActionA == "" {
		t.Errorf("opportunity = %+v", opp)
	}

	if len(n.got) != 1 || n.got[0].event != notify.EventArbDetected {
		t.Fatalf("notifications = %+v", n.got)
	}
	if !strings.Contains(n.got[0].message, "ARBITRAGE OPPORTUNITY FOUND") {
		t.Errorf("message should be the formatted block, got %q", n.got[0].message)
	}

	msgs := bus.msg[domain.ChannelArb]
	if len(msgs) != 1 {
		t.Fatalf("published %d messages", len(msgs))
	}
	var decoded domain.Opportunity
	if err := json.Unmarshal(msgs[0], &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.Result.ProfitPct != 27 {
		t.Errorf("decoded profit = %v", decoded.Result.ProfitPct)
	}

	if len(arch.snaps) != 1 || arch.snaps[0].ScanID != report.ScanID {
		t.Errorf("snapshots = %+v", arch.snaps)
	}
	if lock.acquired != 1 || lock.released != 1 {
		t.Errorf("lock acquired=%d released=%d", lock.acquired, lock.released)
	}

	latest, ok := s.Latest()
	if !ok || latest.ScanID != report.ScanID {
		t.Errorf("Latest = %+v, %v", latest, ok)
	}
}

func TestRunDetectFailure(t *testing.T) {
	boom := errors.New("venue down")
	n := &recordingNotifier{}
	s := NewScanner(Deps{Detector: stubDetector{err: boom}, Notifier: n}, ScannerConfig{}, nil)

	_, err := s.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(n.got) != 1 || n.got[0].event != notify.EventScanFailed {
		t.Errorf("notifications = %+v", n.got)
	}
	if _, ok := s.Latest(); ok {
		t.Error("a failed scan must not replace the latest report")
	}
}

func TestRunSkipsWhenLocked(t *testing.T) {
	s := NewScanner(Deps{Detector: stubDetector{det: sampleDetection()}, Locks: heldLock{}}, ScannerConfig{}, nil)
	_, err := s.Run(context.Background())
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
}

func TestRunNoMarketsSkipsArchive(t *testing.T) {
	arch := &memArchiver{}
	s := NewScanner(Deps{Detector: stubDetector{}, Archiver: arch}, ScannerConfig{}, nil)
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Opportunities) != 0 || len(arch.snaps) != 0 {
		t.Errorf("opportunities = %d, snapshots = %d", len(report.Opportunities), len(arch.snaps))
	}
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	s := NewScanner(Deps{Detector: stubDetector{det: sampleDetection()}}, ScannerConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunLoop(ctx, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := s.Latest(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first scan did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunLoop returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not stop")
	}
}
