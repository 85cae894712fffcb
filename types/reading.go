package types

import "time"

// ReadingType identifies the type of reading flowing to the metrics pipeline
type ReadingType string

const (
	ReadingTypeDegreeDay   ReadingType = "degree_day"
	ReadingTypeTemperature ReadingType = "temperature"
)

// Reading is a union type holding one reading destined for remote write
type Reading struct {
	Type        ReadingType
	DegreeDay   *DegreeDayReading
	Temperature *TemperatureReading
}

// DegreeDayReading is one published degree-day value for a sensor
type DegreeDayReading struct {
	Timestamp time.Time
	Sensor    string
	EntityID  string
	MetricKey string // e.g. "hdd_daily"
	Value     float64
}

// TemperatureReading is the mean temperature of a processed window
type TemperatureReading struct {
	Timestamp time.Time
	Sensor    string
	EntityID  string
	Unit      string
	Value     float64
}

// GetTimestamp returns the timestamp of the reading regardless of type
func (r *Reading) GetTimestamp() time.Time {
	switch r.Type {
	case ReadingTypeDegreeDay:
		return r.DegreeDay.Timestamp
	case ReadingTypeTemperature:
		return r.Temperature.Timestamp
	default:
		return time.Time{}
	}
}
