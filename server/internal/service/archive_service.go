package service

import (
	"fmt"
	"time"

	"github.com/navid-fn/marketarchive/internal/catalog"
	"github.com/navid-fn/marketarchive/internal/loader"
	"github.com/navid-fn/marketarchive/internal/models"
	"github.com/navid-fn/marketarchive/server/internal/model"
)

// QueryError marks a request the caller got wrong.
type QueryError struct {
	Msg string
}

func (e *QueryError) Error() string { return e.Msg }

// CandleQuery carries the raw query parameters of GET /v1/candles.
type CandleQuery struct {
	Namespace string
	Market    string
	From      string
	To        string
	Timeframe string
}

type ArchiveService struct {
	catalog *catalog.Catalog
	loader  *loader.Loader
}

func NewArchiveService(catalog *catalog.Catalog, loader *loader.Loader) *ArchiveService {
	return &ArchiveService{
		catalog: catalog,
		loader:  loader,
	}
}

func (s *ArchiveService) Catalog() ([]model.CatalogEntry, error) {
	entries, err := s.catalog.Entries()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]model.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.CatalogEntry{
			Namespace: e.Namespace,
			Market:    e.Market,
			FirstDay:  models.FormatDay(e.FirstDay),
			LastDay:   models.FormatDay(e.LastDay),
			Days:      e.Days,
			Missing:   e.Missing(),
			ScannedAt: now,
		})
	}
	return out, nil
}

// Candles loads a series. Both ends of the span are optional; a missing
// end is open.
func (s *ArchiveService) Candles(q CandleQuery) (*model.CandleSeries, error) {
	if q.Namespace == "" || q.Market == "" {
		return nil, &QueryError{Msg: "namespace and market are required"}
	}

	tf := models.OneMinute
	if q.Timeframe != "" {
		parsed, err := models.ParseTimeframe(q.Timeframe)
		if err != nil {
			return nil, &QueryError{Msg: err.Error()}
		}
		tf = parsed
	}

	span, err := s.span(q)
	if err != nil {
		return nil, err
	}

	candles, err := s.loader.Load(q.Namespace, q.Market, span, tf)
	if err != nil {
		return nil, err
	}
	if candles == nil {
		candles = []models.Candle{}
	}

	return &model.CandleSeries{
		Namespace: q.Namespace,
		Market:    q.Market,
		Timeframe: tf.String(),
		From:      q.From,
		To:        q.To,
		Count:     len(candles),
		Candles:   candles,
	}, nil
}

func (s *ArchiveService) span(q CandleQuery) (*models.DaySpan, error) {
	if q.From == "" && q.To == "" {
		return nil, nil
	}

	first, last := time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if q.From != "" {
		day, err := models.ParseDay(q.From)
		if err != nil {
			return nil, &QueryError{Msg: err.Error()}
		}
		first = day
	}
	if q.To != "" {
		day, err := models.ParseDay(q.To)
		if err != nil {
			return nil, &QueryError{Msg: err.Error()}
		}
		last = day
	}

	span, err := models.NewDaySpan(first, last)
	if err != nil {
		return nil, &QueryError{Msg: fmt.Sprintf("invalid range: %v", err)}
	}
	return &span, nil
}
