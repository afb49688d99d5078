package binance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/marketarchive/internal/models"
)

type exchangeInfo struct {
	Timezone string `json:"timezone"`
	Symbols  []struct {
		Symbol string `json:"symbol"`
		Status string `json:"status"`
	} `json:"symbols"`
}

// kline positions in the array Binance returns.
const (
	kOpenTime = iota
	kOpen
	kHigh
	kLow
	kClose
	kVolume
	kCloseTime
	kQuoteVolume
	kTrades
	kTakerBuyBase
	kTakerBuyQuote
	klineFields
)

// decodeKlines parses the raw response body with json.Number so prices and
// millisecond timestamps keep every digit.
func decodeKlines(body []byte) ([][]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows [][]any
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func decimalAt(row []any, i int) (decimal.Decimal, error) {
	switch v := row[i].(type) {
	case string:
		return decimal.NewFromString(v)
	case json.Number:
		return decimal.NewFromString(v.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("field %d: unexpected %T", i, row[i])
	}
}

func intAt(row []any, i int) (int64, error) {
	switch v := row[i].(type) {
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("field %d: unexpected %T", i, row[i])
	}
}

// rowToCandle converts one kline. On COIN-M markets the volume column
// counts contracts and the "quote" column is the base asset volume.
func rowToCandle(row []any, coinM bool) (models.Candle, error) {
	if len(row) < klineFields {
		return models.Candle{}, fmt.Errorf("kline has %d fields, want %d", len(row), klineFields)
	}
	ms, err := intAt(row, kOpenTime)
	if err != nil {
		return models.Candle{}, err
	}
	trades, err := intAt(row, kTrades)
	if err != nil {
		return models.Candle{}, err
	}

	var values [8]decimal.Decimal
	for n, i := range []int{kOpen, kHigh, kLow, kClose, kVolume, kQuoteVolume, kTakerBuyBase, kTakerBuyQuote} {
		if values[n], err = decimalAt(row, i); err != nil {
			return models.Candle{}, err
		}
	}
	open, high, low, close, volume := values[0], values[1], values[2], values[3], values[4]
	quote, takerBase, takerQuote := values[5], values[6], values[7]

	var extras []models.Field
	if coinM {
		extras = []models.Field{
			models.DecimalField("base_volume", quote),
			models.IntField("trades", trades),
			models.DecimalField("taker_buy_volume", takerBase),
			models.DecimalField("taker_buy_base_volume", takerQuote),
		}
	} else {
		extras = []models.Field{
			models.DecimalField("quote_volume", quote),
			models.IntField("trades", trades),
			models.DecimalField("taker_buy_base", takerBase),
			models.DecimalField("taker_buy_quote", takerQuote),
		}
	}

	return models.NewCandle(time.UnixMilli(ms), open, high, low, close, volume, extras...), nil
}
