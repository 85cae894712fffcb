package aggregate

// Mode identifies whether a metric measures heating deficit or cooling excess
type Mode int

const (
	ModeHeating Mode = iota
	ModeCooling
)

// Period identifies the rolling window a metric covers
type Period int

const (
	PeriodDaily Period = iota
	PeriodWeekly
	PeriodMonthly
)

// Metric is a tagged {mode, period} variant identifying one published value
type Metric struct {
	Mode   Mode
	Period Period
}

// metricInfo carries the presentation policy for one metric
type metricInfo struct {
	key   string
	label string
	unit  string
}

var metricTable = map[Metric]metricInfo{
	{ModeHeating, PeriodDaily}:   {key: "hdd_daily", label: "HDD Daily", unit: "HDD"},
	{ModeHeating, PeriodWeekly}:  {key: "hdd_weekly", label: "HDD Weekly", unit: "HDD"},
	{ModeHeating, PeriodMonthly}: {key: "hdd_monthly", label: "HDD Monthly", unit: "HDD"},
	{ModeCooling, PeriodDaily}:   {key: "cdd_daily", label: "CDD Daily", unit: "CDD"},
	{ModeCooling, PeriodWeekly}:  {key: "cdd_weekly", label: "CDD Weekly", unit: "CDD"},
	{ModeCooling, PeriodMonthly}: {key: "cdd_monthly", label: "CDD Monthly", unit: "CDD"},
}

// Key returns the stable external identifier for the metric, e.g. "hdd_daily"
func (m Metric) Key() string {
	return metricTable[m].key
}

// Label returns the human-readable metric name, e.g. "HDD Daily"
func (m Metric) Label() string {
	return metricTable[m].label
}

// Unit returns the display unit for the metric
func (m Metric) Unit() string {
	return metricTable[m].unit
}

// HeatingMetrics lists the heating metrics in daily, weekly, monthly order
func HeatingMetrics() []Metric {
	return []Metric{
		{ModeHeating, PeriodDaily},
		{ModeHeating, PeriodWeekly},
		{ModeHeating, PeriodMonthly},
	}
}

// CoolingMetrics lists the cooling metrics in daily, weekly, monthly order
func CoolingMetrics() []Metric {
	return []Metric{
		{ModeCooling, PeriodDaily},
		{ModeCooling, PeriodWeekly},
		{ModeCooling, PeriodMonthly},
	}
}
