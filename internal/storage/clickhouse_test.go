package storage

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/marketarchive/internal/models"
)

func TestExtrasMap(t *testing.T) {
	extras := models.Extras{
		models.DecimalField("quote_volume", decimal.RequireFromString("12.50")),
		models.IntField("trades", 7),
		models.StringField("note", "x"),
	}
	m := extrasMap(extras)
	want := map[string]string{"quote_volume": "12.5", "trades": "7", "note": "x"}
	if len(m) != len(want) {
		t.Fatalf("Expected %v, got %v", want, m)
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s: expected %s, got %s", k, v, m[k])
		}
	}
}

func TestNewClickHouseWarehouseBadDSN(t *testing.T) {
	if _, err := NewClickHouseWarehouse("://not a dsn"); err == nil {
		t.Error("Expected error for malformed DSN")
	}
}
