package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/marketarchive/internal/models"
)

// baseHeader is the fixed column prefix of every day file. Extra columns
// follow as "name:kind".
var baseHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

func encodeDay(w *csv.Writer, candles []models.Candle) error {
	layout := candles[0].Extras
	header := append(append([]string{}, baseHeader...), layout.Headers()...)
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, c := range candles {
		if !c.Extras.SameLayout(layout) {
			return fmt.Errorf("candle %s has extras %v, want %v",
				c.Timestamp.Format(time.RFC3339), c.Extras.Headers(), layout.Headers())
		}
		row[0] = c.Timestamp.UTC().Format(time.RFC3339)
		row[1] = c.Open.String()
		row[2] = c.High.String()
		row[3] = c.Low.String()
		row[4] = c.Close.String()
		row[5] = c.Volume.String()
		for i, f := range c.Extras {
			row[len(baseHeader)+i] = f.String()
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type column struct {
	name string
	kind models.FieldKind
}

func decodeDay(r *csv.Reader) ([]models.Candle, error) {
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, err
	}
	if len(header) < len(baseHeader) {
		return nil, fmt.Errorf("header has %d columns, want at least %d", len(header), len(baseHeader))
	}
	for i, name := range baseHeader {
		if header[i] != name {
			return nil, fmt.Errorf("column %d is %q, want %q", i, header[i], name)
		}
	}
	extras := make([]column, 0, len(header)-len(baseHeader))
	for _, h := range header[len(baseHeader):] {
		name, kind, err := models.ParseHeader(h)
		if err != nil {
			return nil, err
		}
		extras = append(extras, column{name: name, kind: kind})
	}

	var candles []models.Candle
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		c, err := decodeRow(rec, extras)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func decodeRow(rec []string, extras []column) (models.Candle, error) {
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return models.Candle{}, err
	}
	var values [5]decimal.Decimal
	for i := range values {
		if values[i], err = decimal.NewFromString(rec[i+1]); err != nil {
			return models.Candle{}, fmt.Errorf("%s: %w", baseHeader[i+1], err)
		}
	}

	var fields []models.Field
	if len(extras) > 0 {
		fields = make([]models.Field, len(extras))
		for i, col := range extras {
			if fields[i], err = models.ParseField(col.name, col.kind, rec[len(baseHeader)+i]); err != nil {
				return models.Candle{}, err
			}
		}
	}

	return models.NewCandle(ts, values[0], values[1], values[2], values[3], values[4], fields...), nil
}
