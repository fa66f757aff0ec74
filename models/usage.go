package models

import (
	"errors"
	"time"
)

// UsageDay holds one owner's verification counts for a single day, keyed by
// classification result.
type UsageDay struct {
	OwnerID    string    `json:"-"`
	Day        time.Time `json:"-"`
	OK         int       `json:"ok"`
	Suspect    int       `json:"suspect"`
	Disposable int       `json:"disposable"`
}

// Total returns the sum of all classifications for the day.
func (u *UsageDay) Total() int {
	return u.OK + u.Suspect + u.Disposable
}

// Validate validates UsageDay fields
func (u *UsageDay) Validate() error {
	if u.OwnerID == "" {
		return errors.New("owner_id is required")
	}
	if u.Day.IsZero() {
		return errors.New("day is required")
	}
	if u.OK < 0 || u.Suspect < 0 || u.Disposable < 0 {
		return errors.New("counts must be >= 0")
	}
	return nil
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
