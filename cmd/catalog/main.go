package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/navid-fn/marketarchive/configs"
	"github.com/navid-fn/marketarchive/internal/catalog"
	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/loader"
	"github.com/navid-fn/marketarchive/internal/models"
	"github.com/navid-fn/marketarchive/internal/storage"
)

func main() {
	var (
		load      bool
		namespace string
		market    string
		from      string
		to        string
		timeframe string
	)

	flag.BoolVar(&load, "load", false, "Print a reconstructed series as CSV instead of the catalog")
	flag.StringVar(&namespace, "namespace", "", "Archive namespace, e.g. bitget-umcbl (with -load)")
	flag.StringVar(&market, "market", "", "Market (with -load)")
	flag.StringVar(&from, "from", "", "First day YYYY-MM-DD (with -load)")
	flag.StringVar(&to, "to", "", "Last day YYYY-MM-DD (with -load)")
	flag.StringVar(&timeframe, "timeframe", "1m", "Candle width: 1m, 5m, 1h, 4h, 1d...")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := crawler.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)
	store := storage.NewDayStore(cfg.DataDir)

	if !load {
		entries, err := catalog.New(store).Entries()
		if err != nil {
			logger.Fatalf("Failed to scan %s: %v", cfg.DataDir, err)
		}
		printCatalog(os.Stdout, entries)
		return
	}

	if namespace == "" || market == "" {
		logger.Fatal("-load needs -namespace and -market")
	}
	tf, err := models.ParseTimeframe(timeframe)
	if err != nil {
		logger.Fatal(err)
	}
	span, err := parseSpan(from, to)
	if err != nil {
		logger.Fatal(err)
	}

	candles, err := loader.NewLoader(store, logger).Load(namespace, market, span, tf)
	if err != nil {
		logger.Fatalf("Failed to load %s %s: %v", namespace, market, err)
	}
	if err := writeCSV(os.Stdout, candles); err != nil {
		logger.Fatalf("Failed to write CSV: %v", err)
	}
}

func printCatalog(w io.Writer, entries []catalog.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMESPACE\tMARKET\tFIRST\tLAST\tDAYS\tMISSING")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			e.Namespace, e.Market, models.FormatDay(e.FirstDay), models.FormatDay(e.LastDay), e.Days, e.Missing())
	}
	tw.Flush()
}

// parseSpan returns nil when neither end is given.
func parseSpan(from, to string) (*models.DaySpan, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	first, last := time.Time{}, models.Today()
	var err error
	if from != "" {
		if first, err = models.ParseDay(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if last, err = models.ParseDay(to); err != nil {
			return nil, err
		}
	}
	span, err := models.NewDaySpan(first, last)
	if err != nil {
		return nil, err
	}
	return &span, nil
}

// writeCSV uses the archive column layout; extras of the first candle
// decide the extra columns.
func writeCSV(w io.Writer, candles []models.Candle) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "open", "high", "low", "close", "volume"}
	if len(candles) > 0 {
		header = append(header, candles[0].Extras.Headers()...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range candles {
		row := []string{
			c.Timestamp.Format(time.RFC3339),
			c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), c.Volume.String(),
		}
		for _, f := range c.Extras {
			row = append(row, f.String())
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
