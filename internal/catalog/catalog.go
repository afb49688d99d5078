// Package catalog describes what the day archive holds. It scans the store
// on every call and keeps nothing between calls.
package catalog

import (
	"fmt"
	"time"

	"github.com/navid-fn/marketarchive/internal/models"
)

// Store is the listing side of the day store.
type Store interface {
	Namespaces() ([]string, error)
	Markets(ns string) ([]string, error)
	ListDays(ns, market string) ([]time.Time, error)
}

// Entry summarizes one archived (namespace, market) key.
type Entry struct {
	Namespace string    `json:"namespace"`
	Market    string    `json:"market"`
	FirstDay  time.Time `json:"first_day"`
	LastDay   time.Time `json:"last_day"`
	Days      int       `json:"days"`
}

// Missing is the number of days between FirstDay and LastDay without a file.
func (e Entry) Missing() int {
	return models.DaysBetween(e.FirstDay, e.LastDay) + 1 - e.Days
}

type Catalog struct {
	store Store
}

func New(store Store) *Catalog {
	return &Catalog{store: store}
}

// Entries lists every key with at least one archived day, sorted by
// namespace then market.
func (c *Catalog) Entries() ([]Entry, error) {
	namespaces, err := c.store.Namespaces()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, ns := range namespaces {
		markets, err := c.store.Markets(ns)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", ns, err)
		}
		for _, market := range markets {
			entry, ok, err := c.entry(ns, market)
			if err != nil {
				return nil, err
			}
			if ok {
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

// Entry describes a single key, or returns a *models.NotFoundError.
func (c *Catalog) Entry(ns, market string) (Entry, error) {
	entry, ok, err := c.entry(ns, market)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, models.NotFound("archived days for %s %s", ns, market)
	}
	return entry, nil
}

func (c *Catalog) entry(ns, market string) (Entry, bool, error) {
	days, err := c.store.ListDays(ns, market)
	if err != nil {
		return Entry{}, false, fmt.Errorf("catalog %s %s: %w", ns, market, err)
	}
	if len(days) == 0 {
		return Entry{}, false, nil
	}
	return Entry{
		Namespace: ns,
		Market:    market,
		FirstDay:  days[0],
		LastDay:   days[len(days)-1],
		Days:      len(days),
	}, true, nil
}
