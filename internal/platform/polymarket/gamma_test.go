package polymarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const gammaFixture = `[
  {"id":"1","question":"Will Trump win the 2024 election?","conditionId":"0xabc",
   "closed":false,"outcomePrices":"[\"0.45\", \"0.55\"]",
   "liquidityNum":12500.5,"volumeNum":"90000","endDate":"2024-11-05T12:00:00Z"},
  {"id":"2","question":"Array prices","conditionId":"0xdef",
   "closed":"false","outcomePrices":[0.3,0.7]},
  {"id":"3","question":"","conditionId":"0x1","outcomePrices":"[\"0.5\",\"0.5\"]"},
  {"id":"4","question":"Closed market","conditionId":"0x2","closed":true,"outcomePrices":"[\"0.5\",\"0.5\"]"},
  {"id":"5","question":"Three outcomes","conditionId":"0x3","outcomePrices":"[\"0.2\",\"0.3\",\"0.5\"]"},
  {"id":"6","question":"No quote","conditionId":"0x4","outcomePrices":"[\"0\",\"0\"]"},
  {"id":"7","question":"Garbage prices","conditionId":"0x5","outcomePrices":"not json"},
  {"id":"8","question":"Bad liquidity","conditionId":"0x6","outcomePrices":[0.4,0.6],"liquidityNum":"lots"}
]`

func TestGammaGetMarkets(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("path = %q, want /markets", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(gammaFixture))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	markets, err := g.GetMarkets(context.Background(), 100)
	if err != nil {
		t.Fatalf("GetMarkets: %v", err)
	}
	if gotQuery != "closed=false&limit=100" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(markets) != 2 {
		t.Fatalf("got %d markets, want 2: %+v", len(markets), markets)
	}

	m := markets[0]
	if m.Platform != domain.PlatformPolymarket || m.MarketID != "0xabc" {
		t.Errorf("identity = %s/%s", m.Platform, m.MarketID)
	}
	if m.YesPrice != 0.45 || m.NoPrice != 0.55 {
		t.Errorf("prices = %v/%v", m.YesPrice, m.NoPrice)
	}
	if m.Liquidity == nil || *m.Liquidity != 12500.5 {
		t.Errorf("liquidity = %v", m.Liquidity)
	}
	if m.Volume == nil || *m.Volume != 90000 {
		t.Errorf("volume = %v", m.Volume)
	}
	want := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)
	if m.EndDate == nil || !m.EndDate.Equal(want) {
		t.Errorf("end date = %v", m.EndDate)
	}
	if len(m.RawData) == 0 {
		t.Error("raw data not retained")
	}

	arr := markets[1]
	if arr.YesPrice != 0.3 || arr.NoPrice != 0.7 {
		t.Errorf("array prices = %v/%v", arr.YesPrice, arr.NoPrice)
	}
	if arr.Liquidity != nil || arr.Volume != nil || arr.EndDate != nil {
		t.Errorf("absent optional fields should stay nil: %+v", arr)
	}
}

func TestGammaStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusBadRequest, domain.ErrBadRequest},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		}))
		_, err := NewGammaClient(srv.URL, time.Second).GetMarkets(context.Background(), 10)
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestGammaUnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"not a list"}`))
	}))
	defer srv.Close()

	if _, err := NewGammaClient(srv.URL, time.Second).GetMarkets(context.Background(), 10); err == nil {
		t.Fatal("expected decode error for non-array body")
	}
}
