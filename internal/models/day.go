package models

import (
	"fmt"
	"time"
)

// DayLayout is the file name and CLI format of a calendar day.
const DayLayout = "2006-01-02"

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current UTC day.
func Today() time.Time {
	return Day(time.Now())
}

// ParseDay parses "YYYY-MM-DD" as a UTC day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}

func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// NextDay returns the day after day.
func NextDay(day time.Time) time.Time {
	return Day(day).AddDate(0, 0, 1)
}

// DaysBetween counts whole days from a to b. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / (24 * time.Hour))
}

// DaySpan is an inclusive range of UTC days.
type DaySpan struct {
	First time.Time
	Last  time.Time
}

// NewDaySpan normalizes both ends to UTC days.
func NewDaySpan(first, last time.Time) (DaySpan, error) {
	s := DaySpan{First: Day(first), Last: Day(last)}
	if s.Last.Before(s.First) {
		return DaySpan{}, fmt.Errorf("day span %s..%s ends before it starts", FormatDay(s.First), FormatDay(s.Last))
	}
	return s, nil
}

// Contains reports whether day falls inside the span.
func (s DaySpan) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(s.First) && !d.After(s.Last)
}

// Days lists every day of the span in ascending order.
func (s DaySpan) Days() []time.Time {
	var out []time.Time
	for d := s.First; !d.After(s.Last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (s DaySpan) String() string {
	return FormatDay(s.First) + ".." + FormatDay(s.Last)
}
