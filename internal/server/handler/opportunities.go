package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// ReportSource exposes the most recent scan.
type ReportSource interface {
	Latest() (domain.ScanReport, bool)
}

// OpportunityHandler serves the latest scan's opportunities.
type OpportunityHandler struct {
	reports ReportSource
	logger  *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(reports ReportSource, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		reports: reports,
		logger:  logger.With(slog.String("handler", "opportunities")),
	}
}

type opportunitiesResponse struct {
	Scan          domain.ScanReport    `json:"scan"`
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// ListLatest returns the opportunities from the last completed scan, best
// first. Query parameters: min_profit (percent) and limit (default 50, max 500).
// GET /api/opportunities
func (h *OpportunityHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	minProfit, filter, ok := queryFloat(r, "min_profit")
	if !ok {
		writeError(w, http.StatusBadRequest, "min_profit must be a number")
		return
	}
	limit := queryInt(r, "limit", 50, 500)

	report, ok := h.reports.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no scan has completed yet")
		return
	}

	out := make([]domain.Opportunity, 0, len(report.Opportunities))
	for _, opp := range report.Opportunities {
		if filter && opp.Result.ProfitPct < minProfit {
			continue
		}
		out = append(out, opp)
		if len(out) == limit {
			break
		}
	}

	// The scan summary carries counts only; the list lives alongside it.
	report.Opportunities = nil
	writeJSON(w, http.StatusOK, opportunitiesResponse{Scan: report, Opportunities: out})
}
