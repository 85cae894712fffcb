package history

import (
	"fmt"
	"sort"
	"time"
)

// Sample is a single timestamped temperature reading
type Sample struct {
	Timestamp   time.Time
	Temperature float64
}

// Series is a sequence of temperature samples for one sensor over one window.
// It may be empty and is not guaranteed to be sorted.
type Series []Sample

// Sorted returns a copy of the series sorted ascending by timestamp.
// The receiver is not modified.
func (s Series) Sorted() Series {
	sorted := make(Series, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// Mean returns the arithmetic mean temperature of the series.
// The second return value is false for an empty series.
func (s Series) Mean() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}

	var sum float64
	for _, sample := range s {
		sum += sample.Temperature
	}
	return sum / float64(len(s)), true
}

// DateRange returns the covered calendar date range as "YYYY-MM-DD to YYYY-MM-DD",
// or "No data" for an empty series
func (s Series) DateRange() string {
	if len(s) == 0 {
		return "No data"
	}

	min := s[0].Timestamp
	max := s[0].Timestamp
	for _, sample := range s[1:] {
		if sample.Timestamp.Before(min) {
			min = sample.Timestamp
		}
		if sample.Timestamp.After(max) {
			max = sample.Timestamp
		}
	}

	return fmt.Sprintf("%s to %s", min.Format("2006-01-02"), max.Format("2006-01-02"))
}
