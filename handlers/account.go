package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/mailshield/mailshield/middleware"
	"github.com/mailshield/mailshield/models"
	"github.com/mailshield/mailshield/store"
)

// AccountHandler handles account summary endpoints
type AccountHandler struct {
	store store.Store
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(st store.Store) *AccountHandler {
	return &AccountHandler{
		store: st,
	}
}

// MeResponse represents the account summary for the dashboard
type MeResponse struct {
	AccountID string       `json:"accountId"`
	Email     string       `json:"email"`
	Plan      string       `json:"plan"`
	Usage     UsageSummary `json:"usage"`
}

// UsageSummary reports the current calendar month against the plan quota
type UsageSummary struct {
	Monthly int `json:"monthly"`
	Quota   int `json:"quota"`
}

// Me handles GET /api/me. The account row is created lazily on first call.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	account, err := h.store.EnsureAccount(&models.Account{
		OwnerID:      session.UserID,
		Email:        session.Email,
		Plan:         models.DefaultPlan,
		MonthlyQuota: models.DefaultMonthlyQuota,
	})
	if err != nil {
		log.Printf("Failed to load account for owner %s: %v", session.UserID, err)
		respondError(w, http.StatusInternalServerError, "failed_to_load_account")
		return
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	days, err := h.store.GetUsage(session.UserID, monthStart, now)
	if err != nil {
		log.Printf("Failed to load usage for owner %s: %v", session.UserID, err)
		respondError(w, http.StatusInternalServerError, "failed_to_load_account")
		return
	}

	monthly := 0
	for _, day := range days {
		monthly += day.Total()
	}

	respondJSON(w, http.StatusOK, MeResponse{
		AccountID: account.OwnerID,
		Email:     account.Email,
		Plan:      account.Plan,
		Usage: UsageSummary{
			Monthly: monthly,
			Quota:   account.MonthlyQuota,
		},
	})
}
