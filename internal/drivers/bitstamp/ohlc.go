// This file implements 1m OHLC fetching.
// API Doc: https://www.bitstamp.net/api/#tag/Market-info/operation/GetOHLCData
//
// Response format:
//
//	{
//	  "data": {
//	    "pair": "BTC/USD",
//	    "ohlc": [
//	      {"timestamp": "1704067200", "open": "42283", "high": "42298",
//	       "low": "42261", "close": "42290", "volume": "1.52310000"}
//	    ]
//	  }
//	}
//
// A day is 1440 candles, so it takes two pages of PageLimit.
package bitstamp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/models"
)

// CandlesForDay pages through the UTC day starting at midnight.
func (b *Bitstamp) CandlesForDay(ctx context.Context, market string, day time.Time) ([]models.Candle, error) {
	day = models.Day(day)
	last := day.Add(24*time.Hour - time.Minute)

	var all []models.Candle
	for start := day; !start.After(last); {
		page, err := b.fetchPage(ctx, market, start, last, PageLimit)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		next := page[len(page)-1].Timestamp.Add(time.Minute)
		if len(page) < PageLimit || !next.After(start) {
			break
		}
		start = next
	}

	candles := crawler.NormalizeDay(all, day)
	b.logger.WithFields(logrus.Fields{
		"market": market,
		"day":    models.FormatDay(day),
	}).Debugf("Fetched %d candles", len(candles))
	return candles, nil
}

// fetchPage asks for up to limit candles in [start, end]. With a zero start
// Bitstamp returns the last limit candles at or before end.
func (b *Bitstamp) fetchPage(ctx context.Context, market string, start, end time.Time, limit int) ([]models.Candle, error) {
	op := "bitstamp ohlc " + market
	query := url.Values{
		"step":  {"60"},
		"limit": {strconv.Itoa(limit)},
		"end":   {strconv.FormatInt(end.Unix(), 10)},
	}
	if !start.IsZero() {
		query.Set("start", strconv.FormatInt(start.Unix(), 10))
	}

	var resp ohlcResponse
	if err := b.client.GetJSON(ctx, op, fmt.Sprintf(ohlcAPI, urlSymbol(market)), query, &resp); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(resp.Data.OHLC))
	for _, entry := range resp.Data.OHLC {
		c, err := entry.toCandle()
		if err == nil {
			err = c.Validate()
		}
		if err != nil {
			return nil, &models.SchemaError{Op: op, Err: err}
		}
		candles = append(candles, c)
	}
	return candles, nil
}
