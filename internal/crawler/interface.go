package crawler

import (
	"context"
	"time"

	"github.com/navid-fn/marketarchive/internal/models"
)

// Exchange is the capability set every exchange driver implements.
// The ingester, loader and binaries only ever see this interface.
type Exchange interface {
	// Name is the exchange identity, e.g. "bitget".
	Name() string

	// Namespace is the archive root of this instance. It includes the
	// subcategory when the exchange has more than one ("bitget-umcbl").
	Namespace() string

	// Markets lists market identifiers in one round trip.
	Markets(ctx context.Context) ([]string, error)

	// CandlesForDay returns the 1m candles of one UTC day, deduplicated
	// and ascending. Fewer than 1440 rows is normal.
	CandlesForDay(ctx context.Context, market string, day time.Time) ([]models.Candle, error)

	// EarliestCandle returns the first candle the exchange has for market,
	// or a *models.NotFoundError.
	EarliestCandle(ctx context.Context, market string) (models.Candle, error)
}

// MarketFetcher is the subset used by binaries that only list markets.
type MarketFetcher interface {
	Markets(ctx context.Context) ([]string, error)
}
