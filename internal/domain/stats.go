package domain

import (
	"strconv"
	"time"
)

// StatsRecord holds the process-wide delivery counters.
type StatsRecord struct {
	Day            int64
	Week           int64
	Month          int64
	Total          int64
	LastUpdateWeek string
}

// WeekID returns the ISO week number of t as a decimal string.
// The year is not part of the identifier, matching the persisted format.
func WeekID(t time.Time) string {
	_, week := t.ISOWeek()
	return strconv.Itoa(week)
}
