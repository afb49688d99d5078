package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/navid-fn/marketarchive/internal/models"
)

// Series identifies a reconstructed candle series.
type Series struct {
	Namespace string
	Market    string
	Timeframe models.Timeframe
}

// Warehouse persists reconstructed series for analytics.
// Implementations must be safe for concurrent use.
type Warehouse interface {
	// InsertCandles appends one series as a single batch.
	InsertCandles(ctx context.Context, series Series, candles []models.Candle) error

	// Close releases connection resources.
	Close() error
}

// clickhouseWarehouse implements Warehouse with the native ClickHouse driver.
type clickhouseWarehouse struct {
	conn driver.Conn
}

// NewClickHouseWarehouse parses the DSN, opens a connection and pings it.
// Fails if the server does not answer within 5 seconds.
func NewClickHouseWarehouse(dsn string) (Warehouse, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return &clickhouseWarehouse{conn: conn}, nil
}

// InsertCandles uses a batch insert. Rows of one call share inserted_at;
// the ReplacingMergeTree keeps the newest row per key.
func (w *clickhouseWarehouse) InsertCandles(ctx context.Context, series Series, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, `
		INSERT INTO candle (
			namespace, market, timeframe, open_time,
			open, high, low, close, volume,
			extras, inserted_at
		)
	`)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	tf := series.Timeframe.String()
	for _, c := range candles {
		err := batch.Append(
			series.Namespace,
			series.Market,
			tf,
			c.Timestamp,
			c.Open,
			c.High,
			c.Low,
			c.Close,
			c.Volume,
			extrasMap(c.Extras),
			now,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (w *clickhouseWarehouse) Close() error {
	return w.conn.Close()
}

func extrasMap(extras models.Extras) map[string]string {
	m := make(map[string]string, len(extras))
	for _, f := range extras {
		m[f.Name] = f.String()
	}
	return m
}
