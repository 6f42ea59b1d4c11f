package domain

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// UsagePeriod returns the calendar month containing t, formatted YYYY-MM in UTC.
func UsagePeriod(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

// PeriodEnd returns the first instant after the period.
func PeriodEnd(period string) (time.Time, error) {
	start, err := time.Parse(periodLayout, period)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid usage period %q: %w", period, err)
	}
	return start.AddDate(0, 1, 0), nil
}

// Usage reports assignment creations for a period against the plan limit.
// Limit and Remaining are UnlimitedAssignments when no limit applies.
type Usage struct {
	UserID    string `json:"user_id"`
	Period    string `json:"period"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
}

// NewUsage computes the remaining allowance.
func NewUsage(userID, period string, used int64, limit int) Usage {
	u := Usage{UserID: userID, Period: period, Used: used, Limit: int64(limit)}
	switch {
	case limit == UnlimitedAssignments:
		u.Remaining = UnlimitedAssignments
	case used >= u.Limit:
		u.Remaining = 0
	default:
		u.Remaining = u.Limit - used
	}
	return u
}

// Unlimited reports whether no limit applies.
func (u Usage) Unlimited() bool {
	return u.Limit == UnlimitedAssignments
}
