package main

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/ingester"
	"github.com/navid-fn/marketarchive/internal/models"
	"github.com/navid-fn/marketarchive/internal/storage"
)

type staticMarkets []string

func (s staticMarkets) Markets(context.Context) ([]string, error) { return s, nil }

func TestResolveMarkets(t *testing.T) {
	ex := staticMarkets{"BTCUSDT", "ETHUSDT"}

	all, err := resolveMarkets(context.Background(), ex, "all")
	if err != nil || len(all) != 2 {
		t.Errorf("Expected every market, got %v (%v)", all, err)
	}

	got, err := resolveMarkets(context.Background(), ex, " BTCUSDT, ,BTCUSDT,SOLUSDT")
	if err != nil {
		t.Fatalf("resolveMarkets failed: %v", err)
	}
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "SOLUSDT" {
		t.Errorf("Unexpected markets %v", got)
	}

	if _, err := resolveMarkets(context.Background(), ex, ""); err == nil {
		t.Error("Expected error for empty -market")
	}
}

func TestParseRange(t *testing.T) {
	r, err := parseRange("", "")
	if err != nil || r.Start != nil || !r.End.IsZero() {
		t.Errorf("Expected open range, got %+v (%v)", r, err)
	}

	r, err = parseRange("2024-01-01", "2024-01-31")
	if err != nil || r.Start == nil || r.Start.Day() != 1 || r.End.Day() != 31 {
		t.Errorf("Unexpected range %+v (%v)", r, err)
	}

	for _, args := range [][2]string{
		{"01/01/2024", ""},
		{"", "tomorrow"},
	} {
		if _, err := parseRange(args[0], args[1]); err == nil {
			t.Errorf("parseRange%v: expected error", args)
		}
	}
}

func TestParsePlan(t *testing.T) {
	p, err := parsePlan("2024-01-01", "2024-01-31", "")
	if err != nil || !p.day.IsZero() || p.span.Start == nil {
		t.Errorf("Expected a range plan, got %+v (%v)", p, err)
	}

	p, err = parsePlan("", "", "2024-02-29")
	if err != nil || !p.day.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected single day plan, got %+v (%v)", p, err)
	}

	for _, args := range [][3]string{
		{"2024-01-01", "", "2024-01-02"},
		{"", "2024-01-03", "2024-01-02"},
		{"", "", "02/29/2024"},
	} {
		if _, err := parsePlan(args[0], args[1], args[2]); err == nil {
			t.Errorf("parsePlan%v: expected error", args)
		}
	}
}

// oneDayExchange serves a single flat candle at 00:00 of any day.
type oneDayExchange struct {
	staticMarkets
	calls []time.Time
}

func (e *oneDayExchange) Name() string      { return "fake" }
func (e *oneDayExchange) Namespace() string { return "fake" }

func (e *oneDayExchange) CandlesForDay(_ context.Context, _ string, day time.Time) ([]models.Candle, error) {
	e.calls = append(e.calls, day)
	one := decimal.NewFromInt(1)
	return []models.Candle{models.NewCandle(day, one, one, one, one, one)}, nil
}

func (e *oneDayExchange) EarliestCandle(context.Context, string) (models.Candle, error) {
	return models.Candle{}, models.NotFound("fake history")
}

func TestPlanRunSingleDay(t *testing.T) {
	ex := &oneDayExchange{}
	store := storage.NewDayStore(t.TempDir())
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	ig := ingester.NewIngester(ex, store, logger, ingester.Config{MaxRetries: 1, RetryDelay: time.Millisecond})

	p, err := parsePlan("", "", "2024-02-29")
	if err != nil {
		t.Fatal(err)
	}
	report, err := p.run(context.Background(), ig, "BTCUSDT")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(ex.calls) != 1 || !ex.calls[0].Equal(p.day) {
		t.Errorf("Expected one fetch of %s, got %v", models.FormatDay(p.day), ex.calls)
	}
	if !report.Start.Equal(p.day) || !report.End.Equal(p.day) || !report.LastWritten.Equal(p.day) {
		t.Errorf("Unexpected report %+v", report)
	}
}
