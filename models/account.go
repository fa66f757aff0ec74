package models

import (
	"errors"
	"time"
)

// Default plan assigned when an account row is first created.
const (
	DefaultPlan         = "free"
	DefaultMonthlyQuota = 25000
)

// Account represents the billing-facing view of an authenticated owner.
// Rows are created lazily the first time an owner hits the dashboard API.
type Account struct {
	OwnerID      string    `json:"owner_id"`
	Email        string    `json:"email"`
	Plan         string    `json:"plan"`
	MonthlyQuota int       `json:"monthly_quota"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate validates Account fields
func (a *Account) Validate() error {
	if a.OwnerID == "" {
		return errors.New("owner_id is required")
	}
	if a.Plan == "" {
		return errors.New("plan is required")
	}
	if a.MonthlyQuota < 0 {
		return errors.New("monthly_quota must be >= 0")
	}
	return nil
}
