// This file implements 1m kline fetching.
// API Doc: https://developers.binance.com/docs/binance-spot-api-docs/rest-api/market-data-endpoints#klinecandlestick-data
//
// Response format:
//
//	[
//	  [
//	    1499040000000,      // Open time
//	    "0.01634790",       // Open
//	    "0.80000000",       // High
//	    "0.01575800",       // Low
//	    "0.01577100",       // Close
//	    "148976.11427815",  // Volume
//	    1499644799999,      // Close time
//	    "2434.19055334",    // Quote asset volume
//	    308,                // Number of trades
//	    "1756.87402397",    // Taker buy base asset volume
//	    "28.46694368",      // Taker buy quote asset volume
//	    "0"                 // Ignore
//	  ]
//	]
package binance

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

// CandlesForDay needs two pages of PageLimit for a full day.
func (b *Binance) CandlesForDay(ctx context.Context, market string, day time.Time) ([]models.Candle, error) {
	day = models.Day(day)
	end := day.Add(24*time.Hour - time.Millisecond)

	var all []models.Candle
	for start := day; !start.After(end); {
		query := url.Values{
			"symbol":    {market},
			"interval":  {"1m"},
			"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
			"endTime":   {strconv.FormatInt(end.UnixMilli(), 10)},
			"limit":     {strconv.Itoa(PageLimit)},
		}
		page, err := b.klines(ctx, market, query)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < PageLimit {
			break
		}
		next := page[len(page)-1].Timestamp.Add(time.Minute)
		if !next.After(start) {
			return nil, &models.SchemaError{
				Op:  "binance klines " + market,
				Err: fmt.Errorf("page ending %s does not advance past %s", page[len(page)-1].Timestamp.Format(time.RFC3339), start.Format(time.RFC3339)),
			}
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

func (b *Binance) klines(ctx context.Context, market string, query url.Values) ([]models.Candle, error) {
	op := "binance klines " + market
	body, err := b.client.Get(ctx, op, b.api.prefix+"/klines", query)
	if err != nil {
		return nil, err
	}

	rows, err := decodeKlines(body)
	if err != nil {
		return nil, &models.SchemaError{Op: op, Err: err}
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := rowToCandle(row, b.api.coinM)
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
