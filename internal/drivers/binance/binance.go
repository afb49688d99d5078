// Package binance implements the Binance driver for spot, USD-M futures (um)
// and COIN-M futures (cm) markets.
package binance

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/models"
)

const (
	Name = "binance"

	Spot = "spot"
	UM   = "um"
	CM   = "cm"

	// PageLimit is the most klines one request returns.
	PageLimit = 1000
)

// market describes the API surface of one subcategory.
type market struct {
	baseURL string
	prefix  string
	// namespace suffix; spot keeps the bare exchange name
	suffix string
	coinM  bool
}

var markets = map[string]market{
	Spot: {baseURL: "https://api.binance.com", prefix: "/api/v3"},
	UM:   {baseURL: "https://fapi.binance.com", prefix: "/fapi/v1", suffix: UM},
	CM:   {baseURL: "https://dapi.binance.com", prefix: "/dapi/v1", suffix: CM, coinM: true},
}

type Binance struct {
	client *crawler.Client
	logger logrus.FieldLogger
	sub    string
	api    market
}

func NewBinance(opts crawler.Options) (*Binance, error) {
	sub, err := crawler.PickSubcategory(Name, opts.Subcategory, Spot, Spot, UM, CM)
	if err != nil {
		return nil, err
	}
	api := markets[sub]

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logrus.Fields{"exchange": Name, "market_type": sub})

	client, err := crawler.NewClient(crawler.HTTPConfigFromOptions(api.baseURL, opts), logger)
	if err != nil {
		return nil, err
	}

	return &Binance{client: client, logger: logger, sub: sub, api: api}, nil
}

func (b *Binance) Name() string { return Name }

func (b *Binance) Namespace() string { return crawler.Namespace(Name, b.api.suffix) }

// Markets lists every symbol of exchangeInfo, trading or not, since
// delisted symbols still have history worth archiving.
func (b *Binance) Markets(ctx context.Context) ([]string, error) {
	op := "binance exchangeInfo " + b.sub
	var info exchangeInfo
	if err := b.client.GetJSON(ctx, op, b.api.prefix+"/exchangeInfo", nil, &info); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Symbol == "" {
			return nil, &models.SchemaError{Op: op, Err: fmt.Errorf("symbol without name")}
		}
		out = append(out, s.Symbol)
	}
	sort.Strings(out)

	b.logger.Infof("Fetched %d markets", len(out))
	return out, nil
}

// EarliestCandle asks for the first kline since the epoch. Binance answers
// with the market's first candle directly, no search needed.
func (b *Binance) EarliestCandle(ctx context.Context, market string) (models.Candle, error) {
	query := url.Values{
		"symbol":    {market},
		"interval":  {"1m"},
		"startTime": {"0"},
		"limit":     {"1"},
	}
	candles, err := b.klines(ctx, market, query)
	if err != nil {
		return models.Candle{}, err
	}
	if len(candles) == 0 {
		return models.Candle{}, models.NotFound("binance %s history for %s", b.sub, market)
	}
	return candles[0], nil
}
