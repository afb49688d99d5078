package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/navid-fn/marketarchive/configs"
	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/loader"
	"github.com/navid-fn/marketarchive/internal/models"
	"github.com/navid-fn/marketarchive/internal/storage"
)

// batchSize bounds the rows of a single ClickHouse insert.
const batchSize = 50_000

func main() {
	var (
		namespace string
		market    string
		timeframe string
	)
	flag.StringVar(&namespace, "namespace", "", "Archive namespace (required)")
	flag.StringVar(&market, "market", "", "Market (required)")
	flag.StringVar(&timeframe, "timeframe", "1m", "Candle width to export")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := crawler.NewLogger(cfg.LogLevel)

	if namespace == "" || market == "" {
		logger.Fatal("-namespace and -market are required")
	}
	tf, err := models.ParseTimeframe(timeframe)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	candles, err := loader.NewLoader(storage.NewDayStore(cfg.DataDir), logger).Load(namespace, market, nil, tf)
	if err != nil {
		logger.Fatalf("Failed to load %s %s: %v", namespace, market, err)
	}

	warehouse, err := storage.NewClickHouseWarehouse(cfg.DBDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer warehouse.Close()

	series := storage.Series{Namespace: namespace, Market: market, Timeframe: tf}
	for start := 0; start < len(candles); start += batchSize {
		end := min(start+batchSize, len(candles))
		if err := warehouse.InsertCandles(ctx, series, candles[start:end]); err != nil {
			logger.Errorf("Insert failed after %d of %d candles: %v", start, len(candles), err)
			warehouse.Close()
			os.Exit(1)
		}
	}
	logger.Infof("Exported %d %s candles of %s %s", len(candles), tf, namespace, market)
}
