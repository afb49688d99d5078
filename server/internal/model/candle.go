package model

import (
	"time"

	"github.com/navid-fn/marketarchive/internal/models"
)

// CandleSeries is the response body of GET /v1/candles.
type CandleSeries struct {
	Namespace string          `json:"namespace"`
	Market    string          `json:"market"`
	Timeframe string          `json:"timeframe"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Count     int             `json:"count"`
	Candles   []models.Candle `json:"candles"`
}

// CatalogEntry is one row of GET /v1/catalog.
type CatalogEntry struct {
	Namespace string    `json:"namespace"`
	Market    string    `json:"market"`
	FirstDay  string    `json:"first_day"`
	LastDay   string    `json:"last_day"`
	Days      int       `json:"days"`
	Missing   int       `json:"missing_days"`
	ScannedAt time.Time `json:"scanned_at"`
}

type Error struct {
	Error string `json:"error"`
}
