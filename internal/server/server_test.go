package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type staticReports struct {
	report domain.ScanReport
	ok     bool
}

func (s staticReports) Latest() (domain.ScanReport, bool) { return s.report, s.ok }

func opp(id string, profit float64) domain.Opportunity {
	a := domain.Market{Platform: domain.PlatformPolymarket, MarketID: id}
	b := domain.Market{Platform: domain.PlatformKalshi, MarketID: "k-" + id}
	return domain.Opportunity{
		ScanID: "scan-1",
		Result: domain.ArbitrageResult{MarketA: &a, MarketB: &b, ProfitPct: profit, Strategy: domain.StrategyYesANoB},
	}
}

func testHandler(t *testing.T, apiKey string, reports handler.ReportSource, checks map[string]handler.HealthCheck) http.Handler {
	t.Helper()
	return newHandler(
		Config{APIKey: apiKey},
		Handlers{
			Health:        handler.NewHealthHandler(checks, quiet),
			Opportunities: handler.NewOpportunityHandler(reports, quiet),
		},
		nil,
		quiet,
	)
}

func do(h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]handler.HealthCheck
		code   int
		status string
	}{
		{"no deps", nil, http.StatusOK, "ok"},
		{
			"all healthy",
			map[string]handler.HealthCheck{"redis": func(context.Context) error { return nil }},
			http.StatusOK, "ok",
		},
		{
			"one down",
			map[string]handler.HealthCheck{
				"redis":    func(context.Context) error { return nil },
				"postgres": func(context.Context) error { return errors.New("connection refused") },
			},
			http.StatusServiceUnavailable, "degraded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Health stays reachable without credentials.
			rec := do(testHandler(t, "secret", staticReports{}, tt.checks), http.MethodGet, "/api/health", nil)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
			var body struct {
				Status       string            `json:"status"`
				Dependencies map[string]string `json:"dependencies"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.status || len(body.Dependencies) != len(tt.checks) {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestOpportunities(t *testing.T) {
	reports := staticReports{ok: true, report: domain.ScanReport{
		ScanID:     "scan-1",
		MatchCount: 3,
		Opportunities: []domain.Opportunity{
			opp("a", 12), opp("b", 6), opp("c", 2.5),
		},
	}}
	h := testHandler(t, "", reports, nil)

	tests := []struct {
		target string
		code   int
		ids    []string
	}{
		{"/api/opportunities", http.StatusOK, []string{"a", "b", "c"}},
		{"/api/opportunities?min_profit=5", http.StatusOK, []string{"a", "b"}},
		{"/api/opportunities?limit=1", http.StatusOK, []string{"a"}},
		{"/api/opportunities?limit=junk", http.StatusOK, []string{"a", "b", "c"}},
		{"/api/opportunities?min_profit=lots", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		rec := do(h, http.MethodGet, tt.target, nil)
		if rec.Code != tt.code {
			t.Errorf("%s: code = %d, want %d", tt.target, rec.Code, tt.code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		var body struct {
			Scan struct {
				ScanID     string `json:"scan_id"`
				MatchCount int    `json:"match_count"`
			} `json:"scan"`
			Opportunities []domain.Opportunity `json:"opportunities"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tt.target, err)
		}
		if body.Scan.ScanID != "scan-1" || body.Scan.MatchCount != 3 {
			t.Errorf("%s: scan = %+v", tt.target, body.Scan)
		}
		var ids []string
		for _, o := range body.Opportunities {
			ids = append(ids, o.Result.MarketA.MarketID)
		}
		if strings.Join(ids, ",") != strings.Join(tt.ids, ",") {
			t.Errorf("%s: ids = %v, want %v", tt.target, ids, tt.ids)
		}
	}
}

func TestOpportunitiesBeforeFirstScan(t *testing.T) {
	rec := do(testHandler(t, "", staticReports{}, nil), http.MethodGet, "/api/opportunities", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	h := testHandler(t, "secret", staticReports{ok: true}, nil)

	tests := []struct {
		name   string
		target string
		header map[string]string
		code   int
	}{
		{"missing", "/api/opportunities", nil, http.StatusUnauthorized},
		{"wrong", "/api/opportunities", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"bearer", "/api/opportunities", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"header", "/api/opportunities", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"metrics public", "/metrics", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(h, http.MethodGet, tt.target, tt.header); rec.Code != tt.code {
				t.Errorf("code = %d, want %d", rec.Code, tt.code)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHandler(
		Config{CORSOrigins: []string{"https://dash.example"}},
		Handlers{
			Health:        handler.NewHealthHandler(nil, quiet),
			Opportunities: handler.NewOpportunityHandler(staticReports{}, quiet),
		},
		nil, quiet,
	)

	rec := do(h, http.MethodOptions, "/api/opportunities", map[string]string{"Origin": "https://dash.example"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Errorf("allow origin = %q", got)
	}

	rec = do(h, http.MethodOptions, "/api/opportunities", map[string]string{"Origin": "https://evil.example"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

type chanBus struct{ ch chan []byte }

func (b chanBus) Publish(context.Context, string, []byte) error { return nil }

func (b chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	if channel != domain.ChannelArb {
		return nil, errors.New("unexpected channel " + channel)
	}
	return b.ch, nil
}

func TestWebsocketRelay(t *testing.T) {
	bus := chanBus{ch: make(chan []byte, 1)}
	hub := ws.NewHub(bus, ws.Config{Mode: "full"}, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	h := newHandler(
		Config{APIKey: "secret"},
		Handlers{
			Health:        handler.NewHealthHandler(nil, quiet),
			Opportunities: handler.NewOpportunityHandler(staticReports{}, quiet),
		},
		hub, quiet,
	)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?api_key=secret"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	type frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" || !strings.Contains(string(hello.Payload), `"mode":"full"`) {
		t.Errorf("hello = %s %s", hello.Type, hello.Payload)
	}

	bus.ch <- []byte(`{"scan_id":"s1"}`)

	var got frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read opportunity: %v", err)
	}
	if got.Type != "opportunity" || string(got.Payload) != `{"scan_id":"s1"}` {
		t.Errorf("frame = %s %s", got.Type, got.Payload)
	}
}

func TestWebsocketRequiresKey(t *testing.T) {
	hub := ws.NewHub(nil, ws.Config{}, quiet)
	h := newHandler(
		Config{APIKey: "secret"},
		Handlers{
			Health:        handler.NewHealthHandler(nil, quiet),
			Opportunities: handler.NewOpportunityHandler(staticReports{}, quiet),
		},
		hub, quiet,
	)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without key should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %v", resp)
	}
}
