// Package events announces archived days to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DayArchived is published after a day file has been written.
type DayArchived struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Exchange   string    `json:"exchange"`
	Namespace  string    `json:"namespace"`
	Market     string    `json:"market"`
	Day        string    `json:"day"`
	Candles    int       `json:"candles"`
	ArchivedAt time.Time `json:"archived_at"`
}

// NewDayArchived stamps a fresh event ID and time.
func NewDayArchived(runID, exchange, namespace, market, day string, candles int) DayArchived {
	return DayArchived{
		ID:         uuid.NewString(),
		RunID:      runID,
		Exchange:   exchange,
		Namespace:  namespace,
		Market:     market,
		Day:        day,
		Candles:    candles,
		ArchivedAt: time.Now().UTC(),
	}
}

// Key partitions events so every day of one market lands in order.
func (e DayArchived) Key() []byte {
	return []byte(e.Namespace + "/" + e.Market)
}

func (e DayArchived) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Publish must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e DayArchived) error
	Close()
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, DayArchived) error { return nil }

func (Nop) Close() {}
