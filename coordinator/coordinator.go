// Package coordinator runs the per-sensor update cycle: it computes the
// acquisition window, fetches readings, integrates degree days, updates the
// rolling aggregates and publishes a new snapshot.
package coordinator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mjasion/degree-days/aggregate"
	"github.com/mjasion/degree-days/buffer"
	"github.com/mjasion/degree-days/degreedays"
	"github.com/mjasion/degree-days/history"
	"github.com/mjasion/degree-days/telemetry"
	"github.com/mjasion/degree-days/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Fetcher acquires the reading series for an entity over a time window.
// Implementations fail soft: an empty series stands for any retrieval error.
type Fetcher interface {
	FetchSeries(ctx context.Context, entityID string, start, end time.Time) history.Series
}

// Config is the immutable per-instance configuration, fixed at setup
type Config struct {
	Sensor          string
	EntityID        string
	BaseTemperature float64
	TemperatureUnit string
	IncludeCooling  bool
	IncludeWeekly   bool
	IncludeMonthly  bool
	RetentionDays   int
}

// Coordinator drives the update cycle for one configured sensor. Instances
// are fully independent; the scheduler guarantees at most one in-flight tick
// per instance, so no locking is needed around the tracker. The committed
// snapshot is read concurrently by the status server's handlers, so it is
// held in an atomic pointer.
type Coordinator struct {
	cfg     Config
	fetcher Fetcher
	tracker *aggregate.Tracker
	builder aggregate.SnapshotBuilder
	buf     *buffer.RingBuffer[*types.Reading]
	logger  *zap.Logger
	last    atomic.Pointer[aggregate.Snapshot]

	now func() time.Time
}

// New creates a coordinator for one sensor. buf may be nil when remote write
// is disabled.
func New(cfg Config, fetcher Fetcher, buf *buffer.RingBuffer[*types.Reading], logger *zap.Logger) *Coordinator {
	builder := aggregate.SnapshotBuilder{
		Sensor:          cfg.Sensor,
		EntityID:        cfg.EntityID,
		BaseTemperature: cfg.BaseTemperature,
		TemperatureUnit: cfg.TemperatureUnit,
		IncludeCooling:  cfg.IncludeCooling,
	}

	c := &Coordinator{
		cfg:     cfg,
		fetcher: fetcher,
		tracker: aggregate.NewTracker(cfg.RetentionDays, logger),
		builder: builder,
		buf:     buf,
		logger:  logger,
		now:     time.Now,
	}
	c.last.Store(builder.Zero())
	return c
}

// Snapshot returns the most recently committed snapshot. It is never nil and
// safe to call from any goroutine.
func (c *Coordinator) Snapshot() *aggregate.Snapshot {
	return c.last.Load()
}

// Tick runs one update cycle and returns the resulting snapshot. On an empty
// acquisition result the prior snapshot is returned unchanged; recovery is
// implicit in the next scheduled tick.
func (c *Coordinator) Tick(ctx context.Context) *aggregate.Snapshot {
	ctx, span := otel.Tracer("coordinator").Start(ctx, "coordinator.Tick")
	defer span.End()

	span.SetAttributes(
		attribute.String("sensor.name", c.cfg.Sensor),
		attribute.String("sensor.entity_id", c.cfg.EntityID),
	)

	now := c.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	series := c.fetcher.FetchSeries(ctx, c.cfg.EntityID, yesterdayStart, todayStart)
	span.SetAttributes(attribute.Int("history.sample_count", len(series)))

	if len(series) == 0 {
		span.SetStatus(codes.Ok, "no readings, keeping previous snapshot")
		telemetry.WarnWithTrace(ctx, c.logger, "no readings for window, keeping previous snapshot",
			zap.String("sensor", c.cfg.Sensor),
			zap.Time("window_start", yesterdayStart),
			zap.Time("window_end", todayStart),
		)
		return c.last.Load()
	}

	heatingDaily := degreedays.Heating(series, c.cfg.BaseTemperature)
	coolingDaily := degreedays.Cooling(series, c.cfg.BaseTemperature)

	yesterday := aggregate.DateOf(yesterdayStart)
	today := aggregate.DateOf(todayStart)

	c.tracker.RecordDay(yesterday, heatingDaily, coolingDaily)
	purged := c.tracker.PurgeOlderThan(today, c.tracker.RetentionDays())

	// Weekly and monthly sums are always computed; the include flags only
	// gate what the presentation layer shows
	heatingWeekly, coolingWeekly := c.tracker.WeekSum(yesterday)
	heatingMonthly, coolingMonthly := c.tracker.MonthSum(yesterday)

	snapshot := c.builder.Build(
		aggregate.PeriodValues{Daily: heatingDaily, Weekly: heatingWeekly, Monthly: heatingMonthly},
		aggregate.PeriodValues{Daily: coolingDaily, Weekly: coolingWeekly, Monthly: coolingMonthly},
		series,
		now,
	)
	c.last.Store(snapshot)
	c.publish(snapshot, now)

	span.SetAttributes(
		attribute.Float64("degreedays.heating_daily", snapshot.Values["hdd_daily"]),
		attribute.Int("aggregate.purged", purged),
	)
	span.SetStatus(codes.Ok, "snapshot updated")

	telemetry.InfoWithTrace(ctx, c.logger, "update cycle complete",
		zap.String("sensor", c.cfg.Sensor),
		zap.String("date", yesterday.String()),
		zap.Int("sample_count", len(series)),
		zap.Int("purged", purged),
		zap.Float64("hdd_daily", snapshot.Values["hdd_daily"]),
		zap.Float64("hdd_weekly", snapshot.Values["hdd_weekly"]),
		zap.Float64("hdd_monthly", snapshot.Values["hdd_monthly"]),
		zap.Bool("cooling", c.cfg.IncludeCooling),
	)

	return snapshot
}

// publish queues the snapshot's values for remote write
func (c *Coordinator) publish(snapshot *aggregate.Snapshot, at time.Time) {
	if c.buf == nil {
		return
	}

	for key, value := range snapshot.Values {
		c.buf.Add(&types.Reading{
			Type: types.ReadingTypeDegreeDay,
			DegreeDay: &types.DegreeDayReading{
				Timestamp: at,
				Sensor:    c.cfg.Sensor,
				EntityID:  c.cfg.EntityID,
				MetricKey: key,
				Value:     value,
			},
		})
	}

	if snapshot.MeanTemperature != nil {
		c.buf.Add(&types.Reading{
			Type: types.ReadingTypeTemperature,
			Temperature: &types.TemperatureReading{
				Timestamp: at,
				Sensor:    c.cfg.Sensor,
				EntityID:  c.cfg.EntityID,
				Unit:      c.cfg.TemperatureUnit,
				Value:     *snapshot.MeanTemperature,
			},
		})
	}
}
