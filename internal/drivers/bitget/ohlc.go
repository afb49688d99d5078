// This file implements 1m candle fetching.
// API Doc: https://bitgetlimited.github.io/apidoc/en/mix/#get-history-candle-data
//
// Response format (newest window first is not guaranteed, we sort):
//
//	[
//	  ["1704067200000", "42283.5", "42298", "42261", "42290", "12.31", "520931.2"],
//	  ["1704067260000", "42290", "42301", "42280", "42300.5", "8.02", "339201.7"]
//	]
//
// history-candles returns at most PageLimit rows, so a day is fetched as
// fixed windows of PageLimit minutes.
package bitget

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/models"
)

const window = PageLimit * time.Minute

func (b *Bitget) CandlesForDay(ctx context.Context, market string, day time.Time) ([]models.Candle, error) {
	day = models.Day(day)
	end := day.Add(24 * time.Hour)

	var all []models.Candle
	for start := day; start.Before(end); start = start.Add(window) {
		stop := start.Add(window)
		if stop.After(end) {
			stop = end
		}
		page, err := b.fetchWindow(ctx, market, start, stop, PageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
	}

	candles := crawler.NormalizeDay(all, day)
	b.logger.WithFields(logrus.Fields{
		"market": market,
		"day":    models.FormatDay(day),
	}).Debugf("Fetched %d candles", len(candles))
	return candles, nil
}

// fetchWindow returns candles with start <= ts < stop.
func (b *Bitget) fetchWindow(ctx context.Context, market string, start, stop time.Time, limit int) ([]models.Candle, error) {
	op := "bitget candles " + market
	query := url.Values{
		"symbol":      {market},
		"granularity": {"1m"},
		"startTime":   {strconv.FormatInt(start.UnixMilli(), 10)},
		"endTime":     {strconv.FormatInt(stop.UnixMilli()-1, 10)},
		"limit":       {strconv.Itoa(limit)},
	}

	var rows [][]string
	if err := b.getData(ctx, op, candlesAPI, query, &rows); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := rowToCandle(row)
		if err == nil {
			err = c.Validate()
		}
		if err != nil {
			return nil, &models.SchemaError{Op: op, Err: err}
		}
		if c.Timestamp.Before(start) || !c.Timestamp.Before(stop) {
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}
