// Package calendar answers one question for the risk core: is a given date a
// US equity/options trading day? It also provides the business-day arithmetic
// the PDT rolling window is built on.
package calendar

import "time"

// Date truncates t to midnight UTC. All calendar math operates on dates, not
// instants, so callers should not rely on the time-of-day of returned values.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	return Date(a).Equal(Date(b))
}

// IsTradingDay reports whether t is a trading day: a weekday that is not an
// observed market holiday.
func IsTradingDay(t time.Time) bool {
	d := Date(t)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !isHoliday(d)
}

// PreviousTradingDay returns the last trading day strictly before t.
func PreviousTradingDay(t time.Time) time.Time {
	d := Date(t).AddDate(0, 0, -1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// WindowStart returns the first date of a rolling window spanning `days`
// trading days counted backward from asOf. asOf itself counts when it is a
// trading day. days must be >= 1; WindowStart panics otherwise since the
// window length is fixed configuration, not runtime input.
func WindowStart(asOf time.Time, days int) time.Time {
	if days < 1 {
		panic("calendar: window must span at least one trading day")
	}
	d := Date(asOf)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	for n := 1; n < days; n++ {
		d = PreviousTradingDay(d)
	}
	return d
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	d := Date(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDate(0, 0, -offset)
}

// isHoliday checks the fixed US market holiday set. Fixed-date holidays are
// shifted to the observed weekday (Saturday -> Friday, Sunday -> Monday).
// Good Friday is intentionally absent: it needs an Easter computus and the
// trading loop never runs positions into it anyway.
func isHoliday(d time.Time) bool {
	y := d.Year()
	for _, h := range observedFixed(y) {
		if d.Equal(h) {
			return true
		}
	}
	for _, h := range floatingHolidays(y) {
		if d.Equal(h) {
			return true
		}
	}
	return false
}

func observedFixed(year int) []time.Time {
	fixed := []time.Time{
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),   // New Year's Day
		time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC),     // Juneteenth
		time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC),      // Independence Day
		time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC), // Christmas
	}
	out := make([]time.Time, 0, len(fixed))
	for _, h := range fixed {
		out = append(out, observe(h))
	}
	return out
}

func observe(h time.Time) time.Time {
	switch h.Weekday() {
	case time.Saturday:
		return h.AddDate(0, 0, -1)
	case time.Sunday:
		return h.AddDate(0, 0, 1)
	}
	return h
}

func floatingHolidays(year int) []time.Time {
	return []time.Time{
		nthWeekday(year, time.January, time.Monday, 3),    // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),   // Presidents' Day
		lastWeekday(year, time.May, time.Monday),          // Memorial Day
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
	}
}

func nthWeekday(year int, month time.Month, day time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}

func lastWeekday(year int, month time.Month, day time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
