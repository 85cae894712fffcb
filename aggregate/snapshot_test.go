package aggregate

import (
	"testing"
	"time"

	"github.com/mjasion/degree-days/history"
)

func testBuilder(includeCooling bool) SnapshotBuilder {
	return SnapshotBuilder{
		Sensor:          "living_room",
		EntityID:        "sensor.living_room_temperature",
		BaseTemperature: 65.0,
		TemperatureUnit: "fahrenheit",
		IncludeCooling:  includeCooling,
	}
}

func TestSnapshotBuilder_Zero(t *testing.T) {
	snapshot := testBuilder(false).Zero()

	if len(snapshot.Values) != 3 {
		t.Errorf("Expected 3 heating metrics, got %d", len(snapshot.Values))
	}
	for key, value := range snapshot.Values {
		if value != 0 {
			t.Errorf("Expected zero value for %s, got %f", key, value)
		}
	}
	if snapshot.DateRange != "No data" {
		t.Errorf("Expected 'No data', got %q", snapshot.DateRange)
	}
	if snapshot.MeanTemperature != nil {
		t.Error("Expected no mean temperature in zero snapshot")
	}
	if !snapshot.UpdatedAt.IsZero() {
		t.Error("Expected zero UpdatedAt in zero snapshot")
	}
}

func TestSnapshotBuilder_ZeroWithCooling(t *testing.T) {
	snapshot := testBuilder(true).Zero()

	if len(snapshot.Values) != 6 {
		t.Errorf("Expected 6 metrics with cooling, got %d", len(snapshot.Values))
	}
	if _, ok := snapshot.Values["cdd_daily"]; !ok {
		t.Error("Expected cdd_daily key in cooling-enabled snapshot")
	}
}

func TestSnapshotBuilder_Build(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	series := history.Series{
		{Timestamp: time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC), Temperature: 58.339},
		{Timestamp: time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC), Temperature: 61.512},
	}

	snapshot := testBuilder(false).Build(
		PeriodValues{Daily: 4.5678, Weekly: 21.004, Monthly: 63.9999},
		PeriodValues{},
		series,
		now,
	)

	if got := snapshot.Values["hdd_daily"]; got != 4.57 {
		t.Errorf("Expected hdd_daily 4.57, got %f", got)
	}
	if got := snapshot.Values["hdd_weekly"]; got != 21.0 {
		t.Errorf("Expected hdd_weekly 21.0, got %f", got)
	}
	if got := snapshot.Values["hdd_monthly"]; got != 64.0 {
		t.Errorf("Expected hdd_monthly 64.0, got %f", got)
	}
	if _, ok := snapshot.Values["cdd_daily"]; ok {
		t.Error("Expected no cooling values when cooling is disabled")
	}

	if snapshot.DateRange != "2024-03-10 to 2024-03-10" {
		t.Errorf("Unexpected date range: %q", snapshot.DateRange)
	}
	if snapshot.MeanTemperature == nil {
		t.Fatal("Expected mean temperature to be set")
	}
	// (58.339 + 61.512) / 2 = 59.9255, rounded to one decimal place
	if *snapshot.MeanTemperature != 59.9 {
		t.Errorf("Expected mean temperature 59.9, got %f", *snapshot.MeanTemperature)
	}
	if !snapshot.UpdatedAt.Equal(now) {
		t.Errorf("Expected UpdatedAt %v, got %v", now, snapshot.UpdatedAt)
	}
}

func TestSnapshotBuilder_BuildWithCooling(t *testing.T) {
	snapshot := testBuilder(true).Build(
		PeriodValues{Daily: 1, Weekly: 2, Monthly: 3},
		PeriodValues{Daily: 0.125, Weekly: 0.25, Monthly: 0.5},
		history.Series{{Timestamp: time.Now(), Temperature: 70}},
		time.Now(),
	)

	if got := snapshot.Values["cdd_daily"]; got != 0.13 {
		t.Errorf("Expected cdd_daily 0.13, got %f", got)
	}
	if got := snapshot.Values["cdd_weekly"]; got != 0.25 {
		t.Errorf("Expected cdd_weekly 0.25, got %f", got)
	}
	if len(snapshot.Values) != 6 {
		t.Errorf("Expected 6 metrics, got %d", len(snapshot.Values))
	}
}

func TestMetric_Table(t *testing.T) {
	tests := []struct {
		metric Metric
		key    string
		label  string
		unit   string
	}{
		{Metric{ModeHeating, PeriodDaily}, "hdd_daily", "HDD Daily", "HDD"},
		{Metric{ModeHeating, PeriodMonthly}, "hdd_monthly", "HDD Monthly", "HDD"},
		{Metric{ModeCooling, PeriodWeekly}, "cdd_weekly", "CDD Weekly", "CDD"},
	}

	for _, tt := range tests {
		if got := tt.metric.Key(); got != tt.key {
			t.Errorf("Expected key %s, got %s", tt.key, got)
		}
		if got := tt.metric.Label(); got != tt.label {
			t.Errorf("Expected label %s, got %s", tt.label, got)
		}
		if got := tt.metric.Unit(); got != tt.unit {
			t.Errorf("Expected unit %s, got %s", tt.unit, got)
		}
	}
}

func TestRound(t *testing.T) {
	if got := Round2(2.346); got != 2.35 {
		t.Errorf("Expected 2.35, got %f", got)
	}
	if got := Round1(59.9255); got != 59.9 {
		t.Errorf("Expected 59.9, got %f", got)
	}
}
