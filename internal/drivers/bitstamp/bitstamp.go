// Package bitstamp implements the Bitstamp spot exchange driver.
// Markets use Bitstamp's display names ("BTC/USD").
package bitstamp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/models"
)

const (
	BitstampAPIURL = "https://www.bitstamp.net"
	Name           = "bitstamp"

	marketsAPI = "/api/v2/trading-pairs-info/"
	ohlcAPI    = "/api/v2/ohlc/%s/"

	// PageLimit is the maximum number of candles the OHLC endpoint returns.
	PageLimit = 1000
)

// Launch is the first day Bitstamp has any trading history.
var Launch = time.Date(2011, 8, 18, 0, 0, 0, 0, time.UTC)

type Bitstamp struct {
	client *crawler.Client
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewBitstamp builds a driver. Bitstamp has no subcategories.
func NewBitstamp(opts crawler.Options) (*Bitstamp, error) {
	if opts.Subcategory != "" {
		return nil, fmt.Errorf("%s: subcategories are not supported", Name)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("exchange", Name)

	client, err := crawler.NewClient(crawler.HTTPConfigFromOptions(BitstampAPIURL, opts), logger)
	if err != nil {
		return nil, err
	}
	return &Bitstamp{client: client, logger: logger, now: time.Now}, nil
}

func (b *Bitstamp) Name() string { return Name }

func (b *Bitstamp) Namespace() string { return Name }

// Markets fetches every pair Bitstamp lists, enabled or not, so delisted
// markets can still be archived.
func (b *Bitstamp) Markets(ctx context.Context) ([]string, error) {
	var pairs []pairInfo
	if err := b.client.GetJSON(ctx, "bitstamp markets", marketsAPI, nil, &pairs); err != nil {
		return nil, err
	}

	markets := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.Name == "" {
			return nil, &models.SchemaError{Op: "bitstamp markets", Err: fmt.Errorf("pair without name: %+v", p)}
		}
		markets = append(markets, p.Name)
	}
	sort.Strings(markets)

	b.logger.Infof("Fetched %d markets", len(markets))
	return markets, nil
}

// EarliestCandle binary searches day offsets between Launch and today. Each
// step asks for the last candle at or before the end of the day, so a
// delisted market still answers for every day after its listing.
func (b *Bitstamp) EarliestCandle(ctx context.Context, market string) (models.Candle, error) {
	seenBy := func(day time.Time) (bool, error) {
		page, err := b.fetchPage(ctx, market, time.Time{}, day.Add(24*time.Hour-time.Minute), 1)
		if err != nil {
			return false, err
		}
		return len(page) > 0, nil
	}

	first, ok, err := crawler.FirstDayWithData(Launch, models.Day(b.now()), seenBy)
	if err != nil {
		return models.Candle{}, err
	}
	if !ok {
		return models.Candle{}, models.NotFound("bitstamp history for %s", market)
	}

	candles, err := b.CandlesForDay(ctx, market, first)
	if err != nil {
		return models.Candle{}, err
	}
	if len(candles) == 0 {
		return models.Candle{}, models.NotFound("bitstamp history for %s", market)
	}
	return candles[0], nil
}
