package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/marketarchive/internal/catalog"
	"github.com/navid-fn/marketarchive/internal/models"
)

func TestWriteCSV(t *testing.T) {
	ts := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	c := models.NewCandle(ts, decimal.RequireFromString("1.5"), decimal.RequireFromString("2"),
		decimal.RequireFromString("1"), decimal.RequireFromString("1.75"), decimal.RequireFromString("10"),
		models.IntField("trades", 4))

	var buf bytes.Buffer
	if err := writeCSV(&buf, []models.Candle{c}); err != nil {
		t.Fatalf("writeCSV failed: %v", err)
	}
	want := "timestamp,open,high,low,close,volume,trades:int\n2024-01-01T04:00:00Z,1.5,2,1,1.75,10,4\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestParseSpan(t *testing.T) {
	span, err := parseSpan("", "")
	if err != nil || span != nil {
		t.Errorf("Expected nil span, got %v (%v)", span, err)
	}
	span, err = parseSpan("2024-01-01", "2024-01-10")
	if err != nil || len(span.Days()) != 10 {
		t.Errorf("Unexpected span %v (%v)", span, err)
	}
	if _, err := parseSpan("2024-01-10", "2024-01-01"); err == nil {
		t.Error("Expected error for reversed span")
	}
}

func TestPrintCatalog(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printCatalog(&buf, []catalog.Entry{{Namespace: "bitstamp", Market: "BTC/USD", FirstDay: day, LastDay: day.AddDate(0, 0, 2), Days: 2}})

	out := buf.String()
	if !strings.HasPrefix(out, "NAMESPACE") || !strings.Contains(out, "BTC/USD") || !strings.Contains(out, "2024-01-03") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}
