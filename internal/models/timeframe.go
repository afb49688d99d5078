package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeframe is the bucket width used when aggregating 1-minute candles.
type Timeframe time.Duration

// OneMinute is the archive resolution.
const OneMinute = Timeframe(time.Minute)

// ParseTimeframe accepts "1m", "15m", "4h", "1d" and any Go duration
// ("90m", "2h30m"). The result must be a whole number of minutes that
// divides a day, so buckets stay anchored to UTC midnight.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("invalid timeframe %q", s)
		}
		d = time.Duration(days) * 24 * time.Hour
	} else {
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid timeframe %q: %w", s, err)
		}
	}
	tf := Timeframe(d)
	if err := tf.Validate(); err != nil {
		return 0, err
	}
	return tf, nil
}

// Validate enforces positive, whole-minute widths that divide 24h.
// A width of exactly one day is allowed.
func (tf Timeframe) Validate() error {
	d := time.Duration(tf)
	day := 24 * time.Hour
	switch {
	case d < time.Minute:
		return fmt.Errorf("timeframe %s is shorter than one minute", d)
	case d%time.Minute != 0:
		return fmt.Errorf("timeframe %s is not a whole number of minutes", d)
	case d > day || day%d != 0:
		return fmt.Errorf("timeframe %s does not divide a day", d)
	}
	return nil
}

func (tf Timeframe) Duration() time.Duration { return time.Duration(tf) }

// Bucket returns the start of the bucket containing t.
func (tf Timeframe) Bucket(t time.Time) time.Time {
	day := Day(t)
	offset := t.UTC().Sub(day)
	return day.Add(offset - offset%time.Duration(tf))
}

// String renders the compact form, e.g. "4h", "15m", "1d".
func (tf Timeframe) String() string {
	d := time.Duration(tf)
	switch {
	case d == 24*time.Hour:
		return "1d"
	case d%time.Hour == 0:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	default:
		return strconv.Itoa(int(d/time.Minute)) + "m"
	}
}
