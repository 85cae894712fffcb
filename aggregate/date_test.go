package aggregate

import (
	"testing"
	"time"
)

func TestDateOf(t *testing.T) {
	d := DateOf(time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC))
	if d != (Date{Year: 2024, Month: time.February, Day: 29}) {
		t.Errorf("Unexpected date: %v", d)
	}
}

func TestDate_AddDays(t *testing.T) {
	d := Date{Year: 2024, Month: time.March, Day: 1}

	if got := d.AddDays(-1); got != (Date{Year: 2024, Month: time.February, Day: 29}) {
		t.Errorf("Expected 2024-02-29 (leap year), got %v", got)
	}

	if got := d.AddDays(31); got != (Date{Year: 2024, Month: time.April, Day: 1}) {
		t.Errorf("Expected 2024-04-01, got %v", got)
	}
}

func TestDate_Before(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Date
		expected bool
	}{
		{"earlier year", Date{2023, time.December, 31}, Date{2024, time.January, 1}, true},
		{"earlier month", Date{2024, time.January, 31}, Date{2024, time.February, 1}, true},
		{"earlier day", Date{2024, time.March, 1}, Date{2024, time.March, 2}, true},
		{"equal", Date{2024, time.March, 1}, Date{2024, time.March, 1}, false},
		{"later", Date{2024, time.March, 2}, Date{2024, time.March, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Before(tt.b); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDate_WeekStart(t *testing.T) {
	tests := []struct {
		name     string
		date     Date
		expected Date
	}{
		// 2024-01-15 is a Monday
		{"monday maps to itself", Date{2024, time.January, 15}, Date{2024, time.January, 15}},
		{"wednesday", Date{2024, time.January, 17}, Date{2024, time.January, 15}},
		{"sunday belongs to the preceding monday", Date{2024, time.January, 21}, Date{2024, time.January, 15}},
		{"week crossing month boundary", Date{2024, time.February, 2}, Date{2024, time.January, 29}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.date.WeekStart(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDate_DaysInMonth(t *testing.T) {
	tests := []struct {
		date     Date
		expected int
	}{
		{Date{2024, time.February, 10}, 29}, // leap year
		{Date{2023, time.February, 10}, 28},
		{Date{2024, time.January, 1}, 31},
		{Date{2024, time.April, 30}, 30},
	}

	for _, tt := range tests {
		if got := tt.date.DaysInMonth(); got != tt.expected {
			t.Errorf("%v: expected %d days, got %d", tt.date, tt.expected, got)
		}
	}
}

func TestDate_String(t *testing.T) {
	d := Date{Year: 2024, Month: time.March, Day: 5}
	if got := d.String(); got != "2024-03-05" {
		t.Errorf("Expected 2024-03-05, got %s", got)
	}
}
