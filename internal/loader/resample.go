package loader

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/marketarchive/internal/models"
)

// Resample aggregates ascending candles into tf buckets anchored at UTC
// midnight. Empty buckets are omitted. Numeric extras are summed and
// string extras dropped, so resampling twice at the same width changes
// nothing.
func Resample(candles []models.Candle, tf models.Timeframe) ([]models.Candle, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}

	var out []models.Candle
	for i := 0; i < len(candles); {
		bucket := tf.Bucket(candles[i].Timestamp)
		j := i + 1
		for j < len(candles) && tf.Bucket(candles[j].Timestamp).Equal(bucket) {
			j++
		}
		out = append(out, aggregate(bucket, candles[i:j]))
		i = j
	}
	return out, nil
}

func aggregate(bucket time.Time, group []models.Candle) models.Candle {
	first, last := group[0], group[len(group)-1]
	high, low := first.High, first.Low
	volume := decimal.Zero

	var extras []models.Field
	for _, f := range first.Extras {
		if f.Numeric() {
			extras = append(extras, f)
		}
	}
	for i := range extras {
		extras[i] = zero(extras[i])
	}

	for _, c := range group {
		high = decimal.Max(high, c.High)
		low = decimal.Min(low, c.Low)
		volume = volume.Add(c.Volume)
		for i, f := range extras {
			if v, ok := c.Extras.Get(f.Name); ok && v.Kind == f.Kind {
				extras[i] = f.Add(v)
			}
		}
	}

	return models.NewCandle(bucket, first.Open, high, low, last.Close, volume, extras...)
}

func zero(f models.Field) models.Field {
	if f.Kind == models.KindInt {
		return models.IntField(f.Name, 0)
	}
	return models.DecimalField(f.Name, decimal.Zero)
}
