package billingrules

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidPeriod is returned when a period is not YYYY-MM, YYYY-MM-DD or RFC 3339.
var ErrInvalidPeriod = errors.New("invalid_period")

// NormalizePeriod truncates t to the first day of its month in UTC.
func NormalizePeriod(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParsePeriod accepts YYYY-MM or YYYY-MM-DD and returns the normalized period.
func ParsePeriod(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidPeriod
	}
	for _, layout := range []string{"2006-01", "2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return NormalizePeriod(parsed), nil
		}
	}
	return time.Time{}, ErrInvalidPeriod
}

// PreviousPeriodOf returns the period immediately before period.
func PreviousPeriodOf(period time.Time) time.Time {
	return NormalizePeriod(period).AddDate(0, -1, 0)
}

// FormatPeriod renders a period as YYYY-MM.
func FormatPeriod(period time.Time) string {
	return period.UTC().Format("2006-01")
}

// DueDate is the end of the given day of the month after period, clamped to
// that month's length.
func DueDate(period time.Time, dueDay int) time.Time {
	next := NormalizePeriod(period).AddDate(0, 1, 0)
	if dueDay < 1 {
		dueDay = 1
	}
	last := next.AddDate(0, 1, -1).Day()
	if dueDay > last {
		dueDay = last
	}
	return time.Date(next.Year(), next.Month(), dueDay, 23, 59, 59, 0, time.UTC)
}
