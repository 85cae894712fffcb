package metrics

import (
	"context"

	"github.com/mjasion/degree-days/types"
	"github.com/prometheus/prometheus/prompb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BuildDegreeDayTimeSeries builds Prometheus time series for degree-day
// readings, one series per sensor and metric key
func BuildDegreeDayTimeSeries(ctx context.Context, readings []*types.Reading) ([]prompb.TimeSeries, error) {
	_, span := otel.Tracer("metrics").Start(ctx, "metrics.BuildDegreeDayTimeSeries")
	defer span.End()

	type seriesKey struct {
		sensor   string
		entityID string
		metric   string
	}
	grouped := make(map[seriesKey][]*types.DegreeDayReading)
	for _, r := range readings {
		if r.Type == types.ReadingTypeDegreeDay && r.DegreeDay != nil {
			key := seriesKey{
				sensor:   r.DegreeDay.Sensor,
				entityID: r.DegreeDay.EntityID,
				metric:   r.DegreeDay.MetricKey,
			}
			grouped[key] = append(grouped[key], r.DegreeDay)
		}
	}

	if len(grouped) == 0 {
		span.SetStatus(codes.Ok, "no degree-day readings")
		return nil, nil
	}

	var timeSeries []prompb.TimeSeries
	for key, group := range grouped {
		labels := []prompb.Label{
			{Name: "__name__", Value: "degree_days_" + key.metric},
			{Name: "sensor", Value: key.sensor},
			{Name: "entity_id", Value: key.entityID},
		}

		var samples []prompb.Sample
		for _, r := range group {
			samples = append(samples, prompb.Sample{
				Value:     r.Value,
				Timestamp: r.Timestamp.UnixMilli(),
			})
		}

		timeSeries = append(timeSeries, prompb.TimeSeries{
			Labels:  labels,
			Samples: samples,
		})
	}

	span.SetAttributes(
		attribute.Int("metrics.degree_day_time_series_count", len(timeSeries)),
	)
	span.SetStatus(codes.Ok, "degree-day time series built")

	return timeSeries, nil
}

// BuildTemperatureTimeSeries builds Prometheus time series for the mean
// window temperature of each sensor. The unit is carried as a label only.
func BuildTemperatureTimeSeries(ctx context.Context, readings []*types.Reading) ([]prompb.TimeSeries, error) {
	_, span := otel.Tracer("metrics").Start(ctx, "metrics.BuildTemperatureTimeSeries")
	defer span.End()

	type seriesKey struct {
		sensor   string
		entityID string
		unit     string
	}
	grouped := make(map[seriesKey][]*types.TemperatureReading)
	for _, r := range readings {
		if r.Type == types.ReadingTypeTemperature && r.Temperature != nil {
			key := seriesKey{
				sensor:   r.Temperature.Sensor,
				entityID: r.Temperature.EntityID,
				unit:     r.Temperature.Unit,
			}
			grouped[key] = append(grouped[key], r.Temperature)
		}
	}

	if len(grouped) == 0 {
		span.SetStatus(codes.Ok, "no temperature readings")
		return nil, nil
	}

	var timeSeries []prompb.TimeSeries
	for key, group := range grouped {
		labels := []prompb.Label{
			{Name: "__name__", Value: "degree_days_window_mean_temperature"},
			{Name: "sensor", Value: key.sensor},
			{Name: "entity_id", Value: key.entityID},
			{Name: "unit", Value: key.unit},
		}

		var samples []prompb.Sample
		for _, r := range group {
			samples = append(samples, prompb.Sample{
				Value:     r.Value,
				Timestamp: r.Timestamp.UnixMilli(),
			})
		}

		timeSeries = append(timeSeries, prompb.TimeSeries{
			Labels:  labels,
			Samples: samples,
		})
	}

	span.SetAttributes(
		attribute.Int("metrics.temperature_time_series_count", len(timeSeries)),
	)
	span.SetStatus(codes.Ok, "temperature time series built")

	return timeSeries, nil
}

// CombineBuilders combines multiple time series builders into one
func CombineBuilders(builders ...TimeSeriesBuilder) TimeSeriesBuilder {
	return func(ctx context.Context, readings []*types.Reading) ([]prompb.TimeSeries, error) {
		var allTimeSeries []prompb.TimeSeries

		for _, builder := range builders {
			if builder == nil {
				continue
			}

			timeSeries, err := builder(ctx, readings)
			if err != nil {
				return nil, err
			}

			allTimeSeries = append(allTimeSeries, timeSeries...)
		}

		return allTimeSeries, nil
	}
}
