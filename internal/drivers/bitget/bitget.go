// Package bitget implements the Bitget mix (futures) exchange driver.
// The product type (umcbl, dmcbl, cmcbl) is the subcategory and is part of
// the archive namespace, e.g. "bitget-dmcbl".
package bitget

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/models"
)

const (
	BitgetAPIURL = "https://api.bitget.com"
	Name         = "bitget"

	contractsAPI = "/api/mix/v1/market/contracts"
	candlesAPI   = "/api/mix/v1/market/history-candles"

	// PageLimit is the most candles history-candles returns per call.
	PageLimit = 200

	ProductUSDT = "umcbl"
	ProductCoin = "dmcbl"
	ProductUSDC = "cmcbl"
)

// Launch is the lower bound of the search for a first candle.
var Launch = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

type Bitget struct {
	client      *crawler.Client
	logger      logrus.FieldLogger
	productType string
	now         func() time.Time
}

func NewBitget(opts crawler.Options) (*Bitget, error) {
	productType, err := crawler.PickSubcategory(Name, opts.Subcategory, ProductUSDT, ProductUSDT, ProductCoin, ProductUSDC)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logrus.Fields{"exchange": Name, "product_type": productType})

	client, err := crawler.NewClient(crawler.HTTPConfigFromOptions(BitgetAPIURL, opts), logger)
	if err != nil {
		return nil, err
	}
	client.Throttled = throttled

	return &Bitget{
		client:      client,
		logger:      logger,
		productType: productType,
		now:         time.Now,
	}, nil
}

func (b *Bitget) Name() string { return Name }

func (b *Bitget) Namespace() string { return crawler.Namespace(Name, b.productType) }

// Markets lists the contract symbols of the configured product type,
// e.g. "BTCUSDT_UMCBL".
func (b *Bitget) Markets(ctx context.Context) ([]string, error) {
	op := "bitget contracts " + b.productType
	var contracts []contract
	if err := b.getData(ctx, op, contractsAPI, url.Values{"productType": {b.productType}}, &contracts); err != nil {
		return nil, err
	}

	markets := make([]string, 0, len(contracts))
	for _, c := range contracts {
		if c.Symbol == "" {
			return nil, &models.SchemaError{Op: op, Err: fmt.Errorf("contract without symbol")}
		}
		markets = append(markets, c.Symbol)
	}
	sort.Strings(markets)

	b.logger.Infof("Fetched %d markets", len(markets))
	return markets, nil
}

// EarliestCandle binary searches days between Launch and today. Each step
// asks for one candle between Launch and the end of the day, so contracts
// that have since been delisted are still found.
func (b *Bitget) EarliestCandle(ctx context.Context, market string) (models.Candle, error) {
	seenBy := func(day time.Time) (bool, error) {
		page, err := b.fetchWindow(ctx, market, Launch, day.Add(24*time.Hour), 1)
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
		return models.Candle{}, models.NotFound("bitget %s history for %s", b.productType, market)
	}

	candles, err := b.CandlesForDay(ctx, market, first)
	if err != nil {
		return models.Candle{}, err
	}
	if len(candles) == 0 {
		return models.Candle{}, models.NotFound("bitget %s history for %s", b.productType, market)
	}
	return candles[0], nil
}
