package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mjasion/degree-days/buffer"
	"github.com/mjasion/degree-days/history"
	"github.com/mjasion/degree-days/types"
	"go.uber.org/zap"
)

// fakeFetcher returns a canned series and records the requested windows
type fakeFetcher struct {
	series  history.Series
	entity  string
	windows [][2]time.Time
}

func (f *fakeFetcher) FetchSeries(ctx context.Context, entityID string, start, end time.Time) history.Series {
	f.entity = entityID
	f.windows = append(f.windows, [2]time.Time{start, end})
	return f.series
}

func testConfig() Config {
	return Config{
		Sensor:          "living_room",
		EntityID:        "sensor.living_room_temperature",
		BaseTemperature: 65.0,
		TemperatureUnit: "fahrenheit",
		IncludeCooling:  true,
		IncludeWeekly:   true,
		IncludeMonthly:  true,
		RetentionDays:   60,
	}
}

// fixed reference: 2024-03-11 08:30 local time, so the window is
// [2024-03-10 00:00, 2024-03-11 00:00)
var testNow = time.Date(2024, 3, 11, 8, 30, 0, 0, time.UTC)

func constantSeries(temp float64) history.Series {
	dayStart := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return history.Series{
		{Timestamp: dayStart.Add(time.Hour), Temperature: temp},
		{Timestamp: dayStart.Add(23 * time.Hour), Temperature: temp},
	}
}

func TestTick_WindowBoundaries(t *testing.T) {
	fetcher := &fakeFetcher{series: constantSeries(60)}
	coord := New(testConfig(), fetcher, nil, zap.NewNop())
	coord.now = func() time.Time { return testNow }

	coord.Tick(context.Background())

	if fetcher.entity != "sensor.living_room_temperature" {
		t.Errorf("Unexpected entity requested: %s", fetcher.entity)
	}
	if len(fetcher.windows) != 1 {
		t.Fatalf("Expected 1 fetch, got %d", len(fetcher.windows))
	}

	expectedStart := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	expectedEnd := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if !fetcher.windows[0][0].Equal(expectedStart) {
		t.Errorf("Expected window start %v, got %v", expectedStart, fetcher.windows[0][0])
	}
	if !fetcher.windows[0][1].Equal(expectedEnd) {
		t.Errorf("Expected window end %v, got %v", expectedEnd, fetcher.windows[0][1])
	}
}

func TestTick_ComputesSnapshot(t *testing.T) {
	// Constant 60°F against base 65: 5-degree deficit over 22 hours
	fetcher := &fakeFetcher{series: constantSeries(60)}
	coord := New(testConfig(), fetcher, nil, zap.NewNop())
	coord.now = func() time.Time { return testNow }

	snapshot := coord.Tick(context.Background())

	// 5 degrees over 22/24 of a day = 4.5833..., rounded to 4.58
	if got := snapshot.Values["hdd_daily"]; got != 4.58 {
		t.Errorf("Expected hdd_daily 4.58, got %f", got)
	}
	// Only one day recorded, so week and month equal the day
	if got := snapshot.Values["hdd_weekly"]; got != 4.58 {
		t.Errorf("Expected hdd_weekly 4.58, got %f", got)
	}
	if got := snapshot.Values["hdd_monthly"]; got != 4.58 {
		t.Errorf("Expected hdd_monthly 4.58, got %f", got)
	}
	if got := snapshot.Values["cdd_daily"]; got != 0 {
		t.Errorf("Expected cdd_daily 0, got %f", got)
	}

	if snapshot.DateRange != "2024-03-10 to 2024-03-10" {
		t.Errorf("Unexpected date range: %q", snapshot.DateRange)
	}
	if snapshot.MeanTemperature == nil || *snapshot.MeanTemperature != 60.0 {
		t.Errorf("Expected mean temperature 60.0, got %v", snapshot.MeanTemperature)
	}
	if !snapshot.UpdatedAt.Equal(testNow) {
		t.Errorf("Expected UpdatedAt %v, got %v", testNow, snapshot.UpdatedAt)
	}
}

func TestTick_EmptySeriesKeepsPreviousSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{series: constantSeries(60)}
	coord := New(testConfig(), fetcher, nil, zap.NewNop())
	coord.now = func() time.Time { return testNow }

	first := coord.Tick(context.Background())

	fetcher.series = nil
	second := coord.Tick(context.Background())

	if second != first {
		t.Error("Expected the prior snapshot object, not a recomputed one")
	}
	if coord.Snapshot() != first {
		t.Error("Expected Snapshot() to return the prior snapshot")
	}
}

func TestTick_EmptySeriesBeforeFirstSuccessYieldsZeroSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{}
	coord := New(testConfig(), fetcher, nil, zap.NewNop())
	coord.now = func() time.Time { return testNow }

	snapshot := coord.Tick(context.Background())

	if snapshot == nil {
		t.Fatal("Expected zero-filled snapshot, got nil")
	}
	for key, value := range snapshot.Values {
		if value != 0 {
			t.Errorf("Expected zero value for %s, got %f", key, value)
		}
	}
	if snapshot.DateRange != "No data" {
		t.Errorf("Expected 'No data', got %q", snapshot.DateRange)
	}
}

func TestTick_RecomputingSameDayReplaces(t *testing.T) {
	fetcher := &fakeFetcher{series: constantSeries(60)}
	coord := New(testConfig(), fetcher, nil, zap.NewNop())
	coord.now = func() time.Time { return testNow }

	coord.Tick(context.Background())

	// Same day, new data: weekly must reflect the replacement, not the sum
	fetcher.series = constantSeries(55)
	snapshot := coord.Tick(context.Background())

	if snapshot.Values["hdd_daily"] != snapshot.Values["hdd_weekly"] {
		t.Errorf("Expected weekly to equal daily after recompute, got %f vs %f",
			snapshot.Values["hdd_weekly"], snapshot.Values["hdd_daily"])
	}
}

func TestTick_PublishesReadings(t *testing.T) {
	fetcher := &fakeFetcher{series: constantSeries(60)}
	buf := buffer.New[*types.Reading](100, zap.NewNop())
	coord := New(testConfig(), fetcher, buf, zap.NewNop())
	coord.now = func() time.Time { return testNow }

	coord.Tick(context.Background())

	readings := buf.GetAllAndClear()
	// 6 degree-day values with cooling enabled, plus the mean temperature
	if len(readings) != 7 {
		t.Fatalf("Expected 7 readings, got %d", len(readings))
	}

	degreeDays := 0
	temperatures := 0
	for _, r := range readings {
		switch r.Type {
		case types.ReadingTypeDegreeDay:
			degreeDays++
			if r.DegreeDay.Sensor != "living_room" {
				t.Errorf("Unexpected sensor: %s", r.DegreeDay.Sensor)
			}
		case types.ReadingTypeTemperature:
			temperatures++
			if r.Temperature.Value != 60.0 {
				t.Errorf("Expected mean temperature 60.0, got %f", r.Temperature.Value)
			}
		}
	}
	if degreeDays != 6 || temperatures != 1 {
		t.Errorf("Expected 6 degree-day and 1 temperature readings, got %d/%d", degreeDays, temperatures)
	}
}

func TestSnapshot_ConcurrentWithTick(t *testing.T) {
	// The status server reads Snapshot from its handler goroutines while the
	// scheduler runs Tick; run both under the race detector
	fetcher := &fakeFetcher{series: constantSeries(60)}
	coord := New(testConfig(), fetcher, nil, zap.NewNop())
	coord.now = func() time.Time { return testNow }

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if coord.Snapshot() == nil {
						t.Error("Expected Snapshot to never return nil")
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		coord.Tick(context.Background())
	}

	close(stop)
	wg.Wait()

	if coord.Snapshot().Values["hdd_daily"] != 4.58 {
		t.Errorf("Expected final hdd_daily 4.58, got %f", coord.Snapshot().Values["hdd_daily"])
	}
}

func TestTick_NoBufferConfigured(t *testing.T) {
	fetcher := &fakeFetcher{series: constantSeries(60)}
	coord := New(testConfig(), fetcher, nil, zap.NewNop())
	coord.now = func() time.Time { return testNow }

	// Must not panic with remote write disabled
	coord.Tick(context.Background())
}
