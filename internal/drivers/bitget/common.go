package bitget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/marketarchive/internal/models"
)

const successCode = "00000"

// envelope is the wrapper Bitget puts around every JSON object response.
type envelope struct {
	Code        string          `json:"code"`
	Msg         string          `json:"msg"`
	RequestTime int64           `json:"requestTime"`
	Data        json.RawMessage `json:"data"`
}

type contract struct {
	Symbol       string `json:"symbol"`
	SymbolName   string `json:"symbolName"`
	BaseCoin     string `json:"baseCoin"`
	QuoteCoin    string `json:"quoteCoin"`
	SymbolStatus string `json:"symbolStatus"`
}

// throttled spots the "429" code Bitget returns for too many requests.
func throttled(status int, body []byte) bool {
	var env envelope
	if len(body) == 0 || body[0] != '{' {
		return false
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	return env.Code == "429" || env.Code == "40429"
}

// getData fetches path and decodes its payload into out. Candle endpoints
// answer with a bare array; everything else is wrapped in an envelope.
func (b *Bitget) getData(ctx context.Context, op, path string, query url.Values, out any) error {
	body, err := b.client.Get(ctx, op, path, query)
	if err != nil {
		return err
	}

	payload := bytes.TrimSpace(body)
	if len(payload) > 0 && payload[0] == '{' {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return &models.SchemaError{Op: op, Err: err}
		}
		if env.Code != successCode {
			return &models.SchemaError{Op: op, Err: fmt.Errorf("code %s: %s", env.Code, env.Msg)}
		}
		payload = env.Data
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return &models.SchemaError{Op: op, Err: err}
	}
	return nil
}

// rowToCandle converts [ts, open, high, low, close, baseVol, quoteVol].
func rowToCandle(row []string) (models.Candle, error) {
	if len(row) < 7 {
		return models.Candle{}, fmt.Errorf("candle row has %d fields, want 7", len(row))
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("timestamp %q: %w", row[0], err)
	}

	values := make([]decimal.Decimal, 6)
	for i := range values {
		values[i], err = decimal.NewFromString(row[i+1])
		if err != nil {
			return models.Candle{}, fmt.Errorf("value %q: %w", row[i+1], err)
		}
	}

	return models.NewCandle(
		time.UnixMilli(ms),
		values[0], values[1], values[2], values[3], values[4],
		models.DecimalField("quote_volume", values[5]),
	), nil
}
