// Package degreedays computes heating and cooling degree days from a series
// of temperature samples by trapezoidal integration over time.
package degreedays

import (
	"math"

	"github.com/mjasion/degree-days/history"
)

// minIntervalDays guards against duplicate or near-duplicate timestamps
// producing numerically unstable contributions (~1 minute)
const minIntervalDays = 1.0 / 1440.0

const secondsPerDay = 24 * 3600

// Heating returns the heating degree days for the series: the time-weighted
// integral of max(0, baseTemp - T(t)) over the covered span, in degree·days.
// A series with fewer than two samples yields 0.
func Heating(series history.Series, baseTemp float64) float64 {
	return integrate(series, func(temp float64) float64 {
		return math.Max(0, baseTemp-temp)
	})
}

// Cooling returns the cooling degree days for the series: the time-weighted
// integral of max(0, T(t) - baseTemp) over the covered span, in degree·days.
func Cooling(series history.Series, baseTemp float64) float64 {
	return integrate(series, func(temp float64) float64 {
		return math.Max(0, temp-baseTemp)
	})
}

// integrate applies the trapezoidal rule to the deviation function over each
// consecutive sample pair. The deviation is evaluated at both endpoints and
// averaged, so intervals straddling the base temperature only accumulate the
// portion actually beyond it at each end.
func integrate(series history.Series, deviation func(float64) float64) float64 {
	if len(series) < 2 {
		return 0
	}

	sorted := series.Sorted()

	var total float64
	for i := 0; i < len(sorted)-1; i++ {
		current := sorted[i]
		next := sorted[i+1]

		intervalDays := next.Timestamp.Sub(current.Timestamp).Seconds() / secondsPerDay
		if intervalDays < minIntervalDays {
			continue
		}

		avgDeviation := (deviation(current.Temperature) + deviation(next.Temperature)) / 2
		total += avgDeviation * intervalDays
	}

	return total
}
