package recurrence

import "time"

const dayLayout = "2006-01-02"

// Day truncates t to a UTC calendar date, keeping the wall-clock date of t.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a calendar date.
func ParseDay(raw string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, raw, time.UTC)
}

// FormatDay renders a calendar date as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(dayLayout)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInYear(year int) int {
	if isLeap(year) {
		return 366
	}
	return 365
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// isoWeeksInYear returns 52 or 53.
func isoWeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// isoWeekMonday returns the Monday starting ISO week `week` of `year`.
func isoWeekMonday(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(week-1)*7)
}

// resolveSigned maps a signed 1-based index onto [1,size]; 0 when out of range.
func resolveSigned(n, size int) int {
	if n > 0 && n <= size {
		return n
	}
	if n < 0 && -n <= size {
		return size + n + 1
	}
	return 0
}

// weekStartOf returns the first day of the week containing t.
func weekStartOf(t time.Time, start time.Weekday) time.Time {
	diff := (int(t.Weekday()) - int(start) + 7) % 7
	return AddDays(t, -diff)
}

// nthWeekday returns the ordinal-th matching weekday in [from, to], negative
// ordinals counting from the end. ok is false when the ordinal does not exist.
func nthWeekday(from, to time.Time, wd time.Weekday, ordinal int) (time.Time, bool) {
	matches := weekdaysIn(from, to, wd)
	idx := resolveSigned(ordinal, len(matches))
	if idx == 0 {
		return time.Time{}, false
	}
	return matches[idx-1], true
}

func weekdaysIn(from, to time.Time, wd time.Weekday) []time.Time {
	first := AddDays(from, (int(wd)-int(from.Weekday())+7)%7)
	var out []time.Time
	for d := first; !d.After(to); d = d.AddDate(0, 0, 7) {
		out = append(out, d)
	}
	return out
}

func minDay(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDay(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
