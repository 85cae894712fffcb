// Package aggregate maintains rolling daily, weekly and monthly degree-day
// values for one sensor instance.
package aggregate

import (
	"go.uber.org/zap"
)

// DefaultRetentionDays is the retention horizon for daily values. It always
// exceeds one calendar month, so monthly sums are unaffected by purging.
const DefaultRetentionDays = 60

// Tracker owns the per-day heating and cooling degree-day maps for one
// sensor. It is only touched from within one update cycle at a time, so it
// needs no locking of its own.
type Tracker struct {
	heating       map[Date]float64
	cooling       map[Date]float64
	retentionDays int
	logger        *zap.Logger
}

// NewTracker creates a tracker with the given retention horizon in days
func NewTracker(retentionDays int, logger *zap.Logger) *Tracker {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Tracker{
		heating:       make(map[Date]float64),
		cooling:       make(map[Date]float64),
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// RetentionDays returns the configured retention horizon
func (t *Tracker) RetentionDays() int {
	return t.retentionDays
}

// RecordDay stores the degree-day values computed for date, replacing any
// previous entry. Recomputing the same date overwrites, never accumulates.
func (t *Tracker) RecordDay(date Date, heating, cooling float64) {
	t.heating[date] = heating
	t.cooling[date] = cooling

	t.logger.Debug("recorded daily degree days",
		zap.String("date", date.String()),
		zap.Float64("heating", heating),
		zap.Float64("cooling", cooling),
	)
}

// PurgeOlderThan removes every entry dated before today minus horizonDays and
// returns the number of dates removed
func (t *Tracker) PurgeOlderThan(today Date, horizonDays int) int {
	cutoff := today.AddDays(-horizonDays)

	removed := 0
	for date := range t.heating {
		if date.Before(cutoff) {
			delete(t.heating, date)
			delete(t.cooling, date)
			removed++
		}
	}

	if removed > 0 {
		t.logger.Debug("purged daily entries beyond retention horizon",
			zap.Int("removed", removed),
			zap.String("cutoff", cutoff.String()),
		)
	}

	return removed
}

// WeekSum returns the heating and cooling sums for the Monday-start week
// containing ref. Missing days contribute 0.
func (t *Tracker) WeekSum(ref Date) (heating, cooling float64) {
	start := ref.WeekStart()
	return t.sumRange(start, 7)
}

// MonthSum returns the heating and cooling sums for ref's calendar month,
// from the 1st through the last day. Missing days contribute 0.
func (t *Tracker) MonthSum(ref Date) (heating, cooling float64) {
	return t.sumRange(ref.MonthStart(), ref.DaysInMonth())
}

// sumRange sums days consecutive dates starting at start. Gaps are treated as
// zero contribution rather than flagged as incomplete; the mismatch is logged
// so understated totals can be traced to retention or acquisition gaps.
func (t *Tracker) sumRange(start Date, days int) (heating, cooling float64) {
	missing := 0
	for i := 0; i < days; i++ {
		date := start.AddDays(i)
		h, ok := t.heating[date]
		if !ok {
			missing++
			continue
		}
		heating += h
		cooling += t.cooling[date]
	}

	if missing > 0 && missing < days {
		t.logger.Debug("period has days without recorded values, treating them as zero",
			zap.String("start", start.String()),
			zap.Int("days", days),
			zap.Int("missing", missing),
		)
	}

	return heating, cooling
}
