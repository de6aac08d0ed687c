// Package metrics exposes the Prometheus collectors shared by the scanner and
// the HTTP server.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_scans_total",
		Help: "Completed scans by result (ok, failed, skipped).",
	}, []string{"result"})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_scan_duration_seconds",
		Help:    "Wall time of a full fetch, match and price scan.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	MarketsFetched = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crossarb_markets_fetched",
		Help: "Markets returned by the last fetch, per platform.",
	}, []string{"platform"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_fetch_errors_total",
		Help: "Live fetch failures per platform.",
	}, []string{"platform"})

	Matches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_matches",
		Help: "Matched market pairs in the last scan.",
	})

	Opportunities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_opportunities",
		Help: "Arbitrage opportunities in the last scan.",
	})

	OpportunitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_opportunities_total",
		Help: "Arbitrage opportunities detected since start.",
	})

	BestProfitPct = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_best_profit_pct",
		Help: "Highest profit percentage in the last scan, 0 when none.",
	})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_websocket_clients",
		Help: "Connected websocket subscribers.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crossarb_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. Requests are labelled by the
// ServeMux pattern so path parameters don't explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

// Hijack keeps websocket upgrades working behind the middleware.
func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	sw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
