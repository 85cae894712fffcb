package aggregate

import "time"

// Date is a calendar date used as the key of the daily value maps.
// It is comparable, so it can key a map directly.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// Time returns the midnight instant of the date in loc
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n calendar days after d (n may be negative)
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Before reports whether d is earlier than other
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// WeekStart returns the Monday of the ISO week containing d
func (d Date) WeekStart() Date {
	weekday := d.Time(time.UTC).Weekday()
	// time.Weekday counts Sunday as 0, ISO weeks start on Monday
	offset := (int(weekday) + 6) % 7
	return d.AddDays(-offset)
}

// MonthStart returns the first day of d's month
func (d Date) MonthStart() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// DaysInMonth returns the number of calendar days in d's month,
// accounting for leap years
func (d Date) DaysInMonth() int {
	// day 0 of the next month is the last day of this month
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return d.Time(time.UTC).Format("2006-01-02")
}
