package bitstamp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/marketarchive/internal/models"
)

type pairInfo struct {
	Name      string `json:"name"`
	URLSymbol string `json:"url_symbol"`
	Trading   string `json:"trading"`
}

type ohlcEntry struct {
	Timestamp string `json:"timestamp"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
}

type ohlcResponse struct {
	Data struct {
		Pair string      `json:"pair"`
		OHLC []ohlcEntry `json:"ohlc"`
	} `json:"data"`
}

// urlSymbol turns "BTC/USD" into the path form "btcusd".
func urlSymbol(market string) string {
	return strings.ToLower(strings.ReplaceAll(market, "/", ""))
}

func (e ohlcEntry) toCandle() (models.Candle, error) {
	secs, err := strconv.ParseInt(e.Timestamp, 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("timestamp %q: %w", e.Timestamp, err)
	}

	values := make([]decimal.Decimal, 5)
	for i, raw := range []string{e.Open, e.High, e.Low, e.Close, e.Volume} {
		values[i], err = decimal.NewFromString(raw)
		if err != nil {
			return models.Candle{}, fmt.Errorf("value %q: %w", raw, err)
		}
	}
	return models.NewCandle(time.Unix(secs, 0), values[0], values[1], values[2], values[3], values[4]), nil
}
