// Package loader rebuilds continuous candle series from the day archive.
package loader

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/models"
)

// Reader is the read side of the day store.
type Reader interface {
	ReadDay(ns, market string, day time.Time) ([]models.Candle, error)
	ListDays(ns, market string) ([]time.Time, error)
}

type Loader struct {
	store  Reader
	logger logrus.FieldLogger
}

func NewLoader(store Reader, logger logrus.FieldLogger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{store: store, logger: logger}
}

// Load concatenates the archived days of a key inside span (every day when
// span is nil) and resamples them to tf. Missing days are left as gaps.
// A key with no archived day at all is a *models.NotFoundError.
func (l *Loader) Load(ns, market string, span *models.DaySpan, tf models.Timeframe) ([]models.Candle, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}
	days, err := l.store.ListDays(ns, market)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, models.NotFound("archived days for %s %s", ns, market)
	}

	var candles []models.Candle
	read := 0
	for _, day := range days {
		if span != nil && !span.Contains(day) {
			continue
		}
		dayCandles, err := l.store.ReadDay(ns, market, day)
		if models.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s %s: %w", ns, market, err)
		}
		candles = append(candles, dayCandles...)
		read++
	}

	l.logger.WithFields(logrus.Fields{
		"namespace": ns,
		"market":    market,
		"timeframe": tf.String(),
	}).Debugf("Loaded %d candles from %d days", len(candles), read)

	if tf == models.OneMinute {
		return candles, nil
	}
	return Resample(candles, tf)
}

// EarliestOnDisk returns the first archived day of a key.
func (l *Loader) EarliestOnDisk(ns, market string) (time.Time, bool, error) {
	days, err := l.store.ListDays(ns, market)
	if err != nil || len(days) == 0 {
		return time.Time{}, false, err
	}
	return days[0], true, nil
}

// LatestOnDisk returns the last archived day of a key.
func (l *Loader) LatestOnDisk(ns, market string) (time.Time, bool, error) {
	days, err := l.store.ListDays(ns, market)
	if err != nil || len(days) == 0 {
		return time.Time{}, false, err
	}
	return days[len(days)-1], true, nil
}
