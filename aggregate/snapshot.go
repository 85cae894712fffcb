package aggregate

import (
	"math"
	"time"

	"github.com/mjasion/degree-days/history"
)

// Snapshot is the result of one successful update cycle: rounded metric
// values plus display metadata derived from the latest processed window.
// A snapshot is built fully before it is published and is never mutated
// afterwards.
type Snapshot struct {
	Sensor          string             `json:"sensor"`
	EntityID        string             `json:"entityId"`
	Values          map[string]float64 `json:"values"`
	BaseTemperature float64            `json:"baseTemperature"`
	TemperatureUnit string             `json:"temperatureUnit"`
	DateRange       string             `json:"dateRange"`
	MeanTemperature *float64           `json:"meanTemperature,omitempty"`
	UpdatedAt       time.Time          `json:"updatedAt"`

	// Series is the raw reading series of the latest window, retained for
	// metadata derivation only
	Series history.Series `json:"-"`
}

// SnapshotBuilder assembles a snapshot from computed degree-day values
type SnapshotBuilder struct {
	Sensor          string
	EntityID        string
	BaseTemperature float64
	TemperatureUnit string
	IncludeCooling  bool
}

// Zero returns the zero-filled default snapshot used before the first
// successful cycle
func (b SnapshotBuilder) Zero() *Snapshot {
	values := make(map[string]float64)
	for _, m := range b.metrics() {
		values[m.Key()] = 0
	}

	return &Snapshot{
		Sensor:          b.Sensor,
		EntityID:        b.EntityID,
		Values:          values,
		BaseTemperature: b.BaseTemperature,
		TemperatureUnit: b.TemperatureUnit,
		DateRange:       "No data",
	}
}

// Build assembles a snapshot from per-period sums and the window's raw series
func (b SnapshotBuilder) Build(heating, cooling PeriodValues, series history.Series, updatedAt time.Time) *Snapshot {
	values := map[string]float64{
		Metric{ModeHeating, PeriodDaily}.Key():   Round2(heating.Daily),
		Metric{ModeHeating, PeriodWeekly}.Key():  Round2(heating.Weekly),
		Metric{ModeHeating, PeriodMonthly}.Key(): Round2(heating.Monthly),
	}
	if b.IncludeCooling {
		values[Metric{ModeCooling, PeriodDaily}.Key()] = Round2(cooling.Daily)
		values[Metric{ModeCooling, PeriodWeekly}.Key()] = Round2(cooling.Weekly)
		values[Metric{ModeCooling, PeriodMonthly}.Key()] = Round2(cooling.Monthly)
	}

	snapshot := &Snapshot{
		Sensor:          b.Sensor,
		EntityID:        b.EntityID,
		Values:          values,
		BaseTemperature: b.BaseTemperature,
		TemperatureUnit: b.TemperatureUnit,
		DateRange:       series.DateRange(),
		UpdatedAt:       updatedAt,
		Series:          series,
	}

	if mean, ok := series.Mean(); ok {
		rounded := Round1(mean)
		snapshot.MeanTemperature = &rounded
	}

	return snapshot
}

func (b SnapshotBuilder) metrics() []Metric {
	metrics := HeatingMetrics()
	if b.IncludeCooling {
		metrics = append(metrics, CoolingMetrics()...)
	}
	return metrics
}

// PeriodValues holds the daily, weekly and monthly values for one mode
type PeriodValues struct {
	Daily   float64
	Weekly  float64
	Monthly float64
}

// Round2 rounds to two decimal places, the precision of published values
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal place, the precision of the mean temperature
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
