package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/mailshield/mailshield/middleware"
	"github.com/mailshield/mailshield/store"
)

const usageDateFormat = "2006-01-02"

// Default reporting window when no range is given
const defaultUsageWindowDays = 30

// UsageHandler handles usage reporting endpoints
type UsageHandler struct {
	store store.Store
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(st store.Store) *UsageHandler {
	return &UsageHandler{
		store: st,
	}
}

// UsageTotals aggregates counts over the requested range
type UsageTotals struct {
	OK         int `json:"ok"`
	Suspect    int `json:"suspect"`
	Disposable int `json:"disposable"`
}

// UsagePoint is one day of the usage series
type UsagePoint struct {
	Date       string `json:"date"`
	OK         int    `json:"ok"`
	Suspect    int    `json:"suspect"`
	Disposable int    `json:"disposable"`
}

// UsageResponse represents the usage report for the dashboard chart
type UsageResponse struct {
	Totals UsageTotals  `json:"totals"`
	Series []UsagePoint `json:"series"`
}

// Usage handles GET /api/usage with optional from/to date parameters
func (h *UsageHandler) Usage(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	now := time.Now().UTC()
	to := now
	from := now.AddDate(0, 0, -(defaultUsageWindowDays - 1))

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(usageDateFormat, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(usageDateFormat, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		to = parsed
	}

	if from.After(to) {
		respondError(w, http.StatusBadRequest, "invalid_date_range")
		return
	}

	days, err := h.store.GetUsage(session.UserID, from, to)
	if err != nil {
		log.Printf("Failed to load usage for owner %s: %v", session.UserID, err)
		respondError(w, http.StatusInternalServerError, "failed_to_load_usage")
		return
	}

	totals := UsageTotals{}
	series := make([]UsagePoint, 0, len(days))
	for _, day := range days {
		totals.OK += day.OK
		totals.Suspect += day.Suspect
		totals.Disposable += day.Disposable
		series = append(series, UsagePoint{
			Date:       day.Day.Format(usageDateFormat),
			OK:         day.OK,
			Suspect:    day.Suspect,
			Disposable: day.Disposable,
		})
	}

	respondJSON(w, http.StatusOK, UsageResponse{
		Totals: totals,
		Series: series,
	})
}
