// Package models holds the canonical candle shape shared by every exchange
// driver, the day archive and the loader.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents one 1-minute (or resampled) OHLCV record.
// Candles are values: nothing in the codebase mutates one after creation.
type Candle struct {
	// Timestamp is the start of the candle, UTC, minute precision.
	Timestamp time.Time `json:"timestamp"`

	// Open is the first traded price of the period.
	Open decimal.Decimal `json:"open"`

	// High is the highest traded price of the period.
	High decimal.Decimal `json:"high"`

	// Low is the lowest traded price of the period.
	Low decimal.Decimal `json:"low"`

	// Close is the last traded price of the period.
	Close decimal.Decimal `json:"close"`

	// Volume is the base asset volume of the period. Never negative.
	Volume decimal.Decimal `json:"volume"`

	// Extras are exchange-specific columns (quote volume, trade count...)
	// in the order the exchange driver declares them.
	Extras Extras `json:"extras,omitempty"`
}

// NewCandle builds a candle with its timestamp normalized to UTC.
func NewCandle(ts time.Time, open, high, low, close, volume decimal.Decimal, extras ...Field) Candle {
	return Candle{
		Timestamp: ts.UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Extras:    Extras(extras),
	}
}

// Validate checks the OHLC bound invariant, the volume sign and minute alignment.
func (c Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return fmt.Errorf("candle has zero timestamp")
	}
	if !c.Timestamp.Equal(c.Timestamp.Truncate(time.Minute)) {
		return fmt.Errorf("candle %s is not minute aligned", c.Timestamp.Format(time.RFC3339Nano))
	}
	lo := decimal.Min(c.Open, c.Close)
	hi := decimal.Max(c.Open, c.Close)
	if c.Low.GreaterThan(lo) || c.High.LessThan(hi) {
		return fmt.Errorf("candle %s breaks ohlc bounds: o=%s h=%s l=%s c=%s",
			c.Timestamp.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume.IsNegative() {
		return fmt.Errorf("candle %s has negative volume %s", c.Timestamp.Format(time.RFC3339), c.Volume)
	}
	return nil
}

// Equal reports whether both candles carry the same values.
// Decimals are compared numerically, so "1.50" equals "1.5".
func (c Candle) Equal(o Candle) bool {
	return c.Timestamp.Equal(o.Timestamp) &&
		c.Open.Equal(o.Open) &&
		c.High.Equal(o.High) &&
		c.Low.Equal(o.Low) &&
		c.Close.Equal(o.Close) &&
		c.Volume.Equal(o.Volume) &&
		c.Extras.Equal(o.Extras)
}

// Day returns the UTC calendar day the candle belongs to.
func (c Candle) Day() time.Time {
	return Day(c.Timestamp)
}

// SortedUnique reports whether timestamps are strictly increasing.
func SortedUnique(candles []Candle) bool {
	for i := 1; i < len(candles); i++ {
		if !candles[i-1].Timestamp.Before(candles[i].Timestamp) {
			return false
		}
	}
	return true
}
