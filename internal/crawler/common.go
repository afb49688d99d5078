package crawler

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/models"
)

const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 1

	MinutesPerDay = 24 * 60
)

// Options configures one exchange driver instance. It is fixed for the
// lifetime of the driver: a different subcategory needs a new instance
// because it changes the archive namespace.
type Options struct {
	// Proxy routes every request through this HTTP proxy when set.
	Proxy string

	// Subcategory selects an exchange-specific partition: product type on
	// bitget, spot/um/cm on binance. Empty picks the driver default.
	Subcategory string

	// BaseURL overrides the exchange API root. Used by tests.
	BaseURL string

	// RequestsPerSecond caps the driver's own request rate.
	RequestsPerSecond float64

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	Logger logrus.FieldLogger
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// Namespace joins an exchange name and its subcategory.
func Namespace(name, subcategory string) string {
	if subcategory == "" {
		return name
	}
	return name + "-" + strings.ToLower(subcategory)
}

// PickSubcategory validates sub against the allowed set, returning the
// default for an empty value.
func PickSubcategory(exchange, sub, def string, allowed ...string) (string, error) {
	if sub == "" {
		return def, nil
	}
	sub = strings.ToLower(sub)
	for _, a := range allowed {
		if a == sub {
			return sub, nil
		}
	}
	return "", fmt.Errorf("%s: unknown subcategory %q (want one of %s)", exchange, sub, strings.Join(allowed, ", "))
}

// NormalizeDay sorts candles, drops duplicate timestamps (first wins) and
// keeps only those that belong to day.
func NormalizeDay(candles []models.Candle, day time.Time) []models.Candle {
	day = models.Day(day)
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if !c.Day().Equal(day) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(c.Timestamp) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FirstDayWithData binary searches [lo, hi] for the first day where seenBy
// reports true. seenBy must answer "has the market any candle at or before
// this day", which stays true after a delisting. Returns false when even hi
// has none.
func FirstDayWithData(lo, hi time.Time, seenBy func(day time.Time) (bool, error)) (time.Time, bool, error) {
	lo, hi = models.Day(lo), models.Day(hi)
	ok, err := seenBy(hi)
	if err != nil {
		return time.Time{}, false, err
	}
	if !ok {
		return time.Time{}, false, nil
	}
	for models.DaysBetween(lo, hi) > 0 {
		mid := lo.AddDate(0, 0, models.DaysBetween(lo, hi)/2)
		has, err := seenBy(mid)
		if err != nil {
			return time.Time{}, false, err
		}
		if has {
			hi = mid
		} else {
			lo = mid.AddDate(0, 0, 1)
		}
	}
	return hi, true, nil
}
