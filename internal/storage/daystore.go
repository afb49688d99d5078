// Package storage keeps the day archive: one CSV file per
// (namespace, market, UTC day). It also holds the ClickHouse warehouse
// that reconstructed series can be exported to.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/navid-fn/marketarchive/internal/models"
)

const fileExt = ".csv"

// DayStore reads and writes day files under Root. It holds no state besides
// the root, so concurrent use on different (namespace, market) keys is safe.
type DayStore struct {
	Root string
}

func NewDayStore(root string) *DayStore {
	return &DayStore{Root: root}
}

// escapeMarket makes a market identifier safe as a single path element.
func escapeMarket(market string) (string, error) {
	if market == "" {
		return "", fmt.Errorf("empty market")
	}
	esc := url.PathEscape(market)
	if esc == "." || esc == ".." {
		return "", fmt.Errorf("invalid market %q", market)
	}
	return esc, nil
}

func checkNamespace(ns string) error {
	if ns == "" || ns == "." || ns == ".." || strings.ContainsAny(ns, `/\`) {
		return fmt.Errorf("invalid namespace %q", ns)
	}
	return nil
}

// MarketDir is the directory holding every day file of one key.
func (s *DayStore) MarketDir(ns, market string) (string, error) {
	if err := checkNamespace(ns); err != nil {
		return "", err
	}
	esc, err := escapeMarket(market)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, ns, esc), nil
}

// DayPath is the file a day is stored in.
func (s *DayStore) DayPath(ns, market string, day time.Time) (string, error) {
	dir, err := s.MarketDir(ns, market)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, models.FormatDay(day)+fileExt), nil
}

// WriteDay replaces the file of day with candles. Nothing is written for an
// empty slice. The file is written to a temporary name and renamed so
// readers never see a partial day.
func (s *DayStore) WriteDay(ns, market string, day time.Time, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	day = models.Day(day)
	if err := checkDay(candles, day); err != nil {
		return fmt.Errorf("write %s %s %s: %w", ns, market, models.FormatDay(day), err)
	}

	path, err := s.DayPath(ns, market, day)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+models.FormatDay(day)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := encodeDay(csv.NewWriter(tmp), candles); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	committed = true
	return nil
}

// ReadDay loads one day file.
func (s *DayStore) ReadDay(ns, market string, day time.Time) ([]models.Candle, error) {
	day = models.Day(day)
	path, err := s.DayPath(ns, market, day)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.NotFound("%s %s %s", ns, market, models.FormatDay(day))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	op := "read " + path
	candles, err := decodeDay(csv.NewReader(f))
	if err != nil {
		return nil, &models.SchemaError{Op: op, Err: err}
	}
	if err := checkDay(candles, day); err != nil {
		return nil, &models.SchemaError{Op: op, Err: err}
	}
	return candles, nil
}

// ListDays returns the archived days of a key, ascending. A key that was
// never written has no days.
func (s *DayStore) ListDays(ns, market string) ([]time.Time, error) {
	dir, err := s.MarketDir(ns, market)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var days []time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		day, err := models.ParseDay(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// Namespaces lists namespace directories under the root.
func (s *DayStore) Namespaces() ([]string, error) {
	return listDirs(s.Root)
}

// Markets lists the markets stored in a namespace, unescaped.
func (s *DayStore) Markets(ns string) ([]string, error) {
	if err := checkNamespace(ns); err != nil {
		return nil, err
	}
	dirs, err := listDirs(filepath.Join(s.Root, ns))
	if err != nil {
		return nil, err
	}
	markets := make([]string, 0, len(dirs))
	for _, d := range dirs {
		m, err := url.PathUnescape(d)
		if err != nil {
			continue
		}
		markets = append(markets, m)
	}
	sort.Strings(markets)
	return markets, nil
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// checkDay enforces that candles are valid, strictly ascending and inside day.
func checkDay(candles []models.Candle, day time.Time) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return err
		}
		if !c.Day().Equal(day) {
			return fmt.Errorf("candle %s outside day %s", c.Timestamp.Format(time.RFC3339), models.FormatDay(day))
		}
		if i > 0 && !candles[i-1].Timestamp.Before(c.Timestamp) {
			return fmt.Errorf("candle %s out of order", c.Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
