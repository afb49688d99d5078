package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/navid-fn/marketarchive/configs"
	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/drivers"
	"github.com/navid-fn/marketarchive/internal/events"
	"github.com/navid-fn/marketarchive/internal/ingester"
	"github.com/navid-fn/marketarchive/internal/models"
	"github.com/navid-fn/marketarchive/internal/storage"
)

func main() {
	var (
		exchange    string
		sub         string
		markets     string
		start       string
		end         string
		day         string
		listMarkets bool
		earliest    bool
		parallel    int
	)

	flag.StringVar(&exchange, "exchange", "", "Exchange to archive: "+strings.Join(drivers.Names(), ", ")+" (required)")
	flag.StringVar(&sub, "sub", "", "Exchange subcategory: bitget umcbl|dmcbl|cmcbl, binance spot|um|cm")
	flag.StringVar(&markets, "market", "", "Comma separated markets, or \"all\"")
	flag.StringVar(&start, "start", "", "First day YYYY-MM-DD (default: resume after the latest archived day)")
	flag.StringVar(&end, "end", "", "Last day YYYY-MM-DD (default: today UTC)")
	flag.StringVar(&day, "day", "", "Archive only this day YYYY-MM-DD")
	flag.BoolVar(&listMarkets, "list-markets", false, "Print the exchange's markets and exit")
	flag.BoolVar(&earliest, "earliest", false, "Print the earliest candle of each market and exit")
	flag.IntVar(&parallel, "parallel", 1, "Markets archived at the same time")
	flag.Parse()

	if exchange == "" {
		fmt.Fprintf(os.Stderr, "Error: -exchange flag is required\n")
		fmt.Fprintf(os.Stderr, "Usage: %s -exchange <name> [-sub <sub>] -market <m1,m2|all> [-start YYYY-MM-DD] [-end YYYY-MM-DD]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -exchange bitstamp -list-markets\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -exchange bitget -sub dmcbl -market BTCUSD_DMCBL -earliest\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -exchange binance -sub um -market BTCUSDT,ETHUSDT -parallel 2\n", os.Args[0])
		os.Exit(1)
	}

	cfg := configs.AppLoad()
	logger := crawler.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex, err := drivers.New(exchange, crawler.Options{
		Proxy:       cfg.Crawler.ProxyURL,
		Subcategory: sub,
		Timeout:     cfg.Crawler.RequestTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create exchange driver: %v", err)
	}
	logger.Infof("Initialized %s driver, namespace %s", ex.Name(), ex.Namespace())

	if listMarkets {
		list, err := ex.Markets(ctx)
		if err != nil {
			logger.Fatalf("Failed to list markets: %v", err)
		}
		for _, m := range list {
			fmt.Println(m)
		}
		return
	}

	targets, err := resolveMarkets(ctx, ex, markets)
	if err != nil {
		logger.Fatal(err)
	}

	if earliest {
		for _, m := range targets {
			c, err := ex.EarliestCandle(ctx, m)
			if err != nil {
				logger.Fatalf("Earliest candle of %s: %v", m, err)
			}
			fmt.Printf("%s\t%s\topen=%s close=%s volume=%s\n", m, c.Timestamp.Format(time.RFC3339), c.Open, c.Close, c.Volume)
		}
		return
	}

	p, err := parsePlan(start, end, day)
	if err != nil {
		logger.Fatal(err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled() {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatalf("Failed to create event publisher: %v", err)
		}
		publisher = kp
	}
	defer publisher.Close()

	store := storage.NewDayStore(cfg.DataDir)
	icfg := ingester.Config{
		Delay:      cfg.Ingester.PacingDelay,
		MaxRetries: cfg.Ingester.RateLimitRetries,
		RetryDelay: cfg.Ingester.RateLimitDelay,
		Tolerant:   cfg.Ingester.Tolerant,
	}

	if parallel < 1 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, m := range targets {
		g.Go(func() error {
			ig := ingester.NewIngester(ex, store, logger, icfg)
			ig.SetNotifier(publisher)
			report, err := p.run(gctx, ig, m)
			printReport(logger, report)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logger.Errorf("Archiving failed: %v", err)
		publisher.Close()
		os.Exit(1)
	}
}

func resolveMarkets(ctx context.Context, ex crawler.MarketFetcher, markets string) ([]string, error) {
	if markets == "" {
		return nil, fmt.Errorf("-market is required")
	}
	if markets == "all" {
		return ex.Markets(ctx)
	}
	var out []string
	seen := map[string]bool{}
	for _, m := range strings.Split(markets, ",") {
		m = strings.TrimSpace(m)
		if m != "" && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("-market has no market names")
	}
	return out, nil
}

// plan is either one day (-day) or a range of days.
type plan struct {
	day  time.Time
	span ingester.Range
}

func (p plan) run(ctx context.Context, ig *ingester.Ingester, market string) (ingester.Report, error) {
	if !p.day.IsZero() {
		return ig.SaveDay(ctx, market, p.day)
	}
	return ig.Run(ctx, market, p.span)
}

func parsePlan(start, end, day string) (plan, error) {
	if day == "" {
		r, err := parseRange(start, end)
		return plan{span: r}, err
	}
	if start != "" || end != "" {
		return plan{}, fmt.Errorf("-day cannot be combined with -start or -end")
	}
	d, err := models.ParseDay(day)
	if err != nil {
		return plan{}, err
	}
	return plan{day: d}, nil
}

func parseRange(start, end string) (ingester.Range, error) {
	var r ingester.Range
	if start != "" {
		d, err := models.ParseDay(start)
		if err != nil {
			return r, err
		}
		r.Start = &d
	}
	if end != "" {
		d, err := models.ParseDay(end)
		if err != nil {
			return r, err
		}
		r.End = d
	}
	return r, nil
}

func printReport(logger logrus.FieldLogger, report ingester.Report) {
	fields := logrus.Fields{
		"market":  report.Market,
		"run_id":  report.RunID,
		"saved":   report.Saved,
		"empty":   report.Empty,
		"skipped": report.Skipped,
	}
	if report.HasSaved() {
		fields["last_saved"] = models.FormatDay(report.LastSaved)
	}
	if report.HasWritten() {
		fields["last_written"] = models.FormatDay(report.LastWritten)
	}
	logger.WithFields(fields).Info("Run report")
}
