// Package ingester drives an exchange adapter over a range of UTC days and
// archives each day through the day store.
//
// Every day walks a small state machine:
//
//	PENDING -> FETCHING -> SAVED
//	                    -> RETRY_WAIT -> FETCHING   (rate limited)
//	                    -> SKIPPED                  (bad payload, tolerant mode)
//	                    -> ABORTED                  (anything else)
//
// An aborted day stops the run. Days already saved stay on disk, so the
// next run resumes after the latest archived day.
package ingester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/events"
	"github.com/navid-fn/marketarchive/internal/loader"
	"github.com/navid-fn/marketarchive/internal/models"
)

const (
	DefaultDelay      = 500 * time.Millisecond
	DefaultMaxRetries = 5
	DefaultRetryDelay = 10 * time.Second
)

// Config holds the pacing and retry policy of a run.
type Config struct {
	// Delay is the minimum spacing between two adapter calls.
	Delay time.Duration

	// MaxRetries bounds retries of one day after rate limiting.
	MaxRetries int

	// RetryDelay is the wait after a rate limit. A longer Retry-After
	// from the exchange wins.
	RetryDelay time.Duration

	// Tolerant skips days whose payload cannot be parsed instead of
	// aborting the run.
	Tolerant bool
}

func DefaultConfig() Config {
	return Config{
		Delay:      DefaultDelay,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Archive is the part of the day store the ingester writes through and
// resumes from.
type Archive interface {
	loader.Reader
	WriteDay(ns, market string, day time.Time, candles []models.Candle) error
}

// Range selects the days of a run. A nil Start resumes after the latest
// archived day, or from the market's first candle. A zero End means today.
type Range struct {
	Start *time.Time
	End   time.Time
}

// Ingester runs one sequential worker. It owns its limiter, so two
// ingesters never share pacing. Callers must not run the same
// (namespace, market) pair twice at once.
type Ingester struct {
	exchange crawler.Exchange
	archive  Archive
	disk     *loader.Loader
	logger   logrus.FieldLogger
	cfg      Config
	limiter  *rate.Limiter
	notifier events.Publisher
	now      func() time.Time
}

func NewIngester(exchange crawler.Exchange, archive Archive, logger logrus.FieldLogger, cfg Config) *Ingester {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	logger = logger.WithField("namespace", exchange.Namespace())
	return &Ingester{
		exchange: exchange,
		archive:  archive,
		disk:     loader.NewLoader(archive, logger),
		logger:   logger,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		notifier: events.Nop{},
		now:      time.Now,
	}
}

// SetNotifier publishes a DayArchived event after every written day.
func (ig *Ingester) SetNotifier(p events.Publisher) {
	if p == nil {
		p = events.Nop{}
	}
	ig.notifier = p
}

// SaveDay archives a single day.
func (ig *Ingester) SaveDay(ctx context.Context, market string, day time.Time) (Report, error) {
	day = models.Day(day)
	return ig.Run(ctx, market, Range{Start: &day, End: day})
}

// Run archives every day of r in ascending order. The report is returned
// even on failure so the caller can tell how far the run got.
func (ig *Ingester) Run(ctx context.Context, market string, r Range) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		Exchange:  ig.exchange.Name(),
		Namespace: ig.exchange.Namespace(),
		Market:    market,
	}
	logger := ig.logger.WithFields(logrus.Fields{"market": market, "run_id": report.RunID})

	end := models.Today()
	if !r.End.IsZero() {
		end = models.Day(r.End)
	}
	start, err := ig.resolveStart(ctx, logger, market, r.Start)
	if err != nil {
		return report, err
	}
	report.Start, report.End = start, end

	if start.After(end) {
		logger.Infof("Nothing to fetch: start %s is after end %s", models.FormatDay(start), models.FormatDay(end))
		return report, nil
	}
	logger.Infof("Archiving %s to %s", models.FormatDay(start), models.FormatDay(end))

	for day := start; !day.After(end); day = models.NextDay(day) {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Run cancelled before %s", models.FormatDay(day))
			return report, err
		}
		if err := ig.processDay(ctx, logger, &report, market, day); err != nil {
			if report.HasWritten() {
				logger.Errorf("Run aborted, last archived day %s: %v", models.FormatDay(report.LastWritten), err)
			} else {
				logger.Errorf("Run aborted before archiving any day: %v", err)
			}
			return report, err
		}
	}

	logger.Infof("Run finished: %d saved, %d empty, %d skipped", report.Saved, report.Empty, report.Skipped)
	return report, nil
}

// resolveStart resumes the day after the latest archived one, or asks the
// exchange for the first candle of a market never archived.
func (ig *Ingester) resolveStart(ctx context.Context, logger logrus.FieldLogger, market string, start *time.Time) (time.Time, error) {
	if start != nil {
		return models.Day(*start), nil
	}

	ns := ig.exchange.Namespace()
	latest, ok, err := ig.disk.LatestOnDisk(ns, market)
	if err != nil {
		return time.Time{}, fmt.Errorf("list archived days of %s %s: %w", ns, market, err)
	}
	if ok {
		if earliest, found, err := ig.disk.EarliestOnDisk(ns, market); err == nil && found {
			logger.Infof("Archive holds %s to %s, resuming", models.FormatDay(earliest), models.FormatDay(latest))
		}
		return models.NextDay(latest), nil
	}

	if err := ig.limiter.Wait(ctx); err != nil {
		return time.Time{}, err
	}
	first, err := ig.exchange.EarliestCandle(ctx, market)
	if err != nil {
		return time.Time{}, fmt.Errorf("earliest candle of %s %s: %w", ns, market, err)
	}
	return first.Day(), nil
}

// processDay returns nil for SAVED and SKIPPED days, the cause otherwise.
func (ig *Ingester) processDay(ctx context.Context, logger logrus.FieldLogger, report *Report, market string, day time.Time) error {
	logger = logger.WithField("day", models.FormatDay(day))
	report.move(day, Pending, Fetching, nil)

	candles, err := ig.fetch(ctx, logger, report, market, day)
	if err != nil {
		from := Fetching
		switch {
		case models.IsSchema(err) && ig.cfg.Tolerant:
			report.move(day, Fetching, Skipped, err)
			report.Skipped++
			logger.Warnf("Skipping day: %v", err)
			return nil
		case models.IsRateLimit(err):
			from = RetryWait
			err = fmt.Errorf("%s %s: still rate limited after %d retries: %w",
				market, models.FormatDay(day), ig.cfg.MaxRetries, err)
		default:
			err = fmt.Errorf("%s %s: %w", market, models.FormatDay(day), err)
		}
		report.move(day, from, Aborted, err)
		return err
	}

	ns := ig.exchange.Namespace()
	if err := ig.archive.WriteDay(ns, market, day, candles); err != nil {
		report.move(day, Fetching, Aborted, err)
		return err
	}
	report.move(day, Fetching, Saved, nil)
	report.LastSaved = day

	if len(candles) == 0 {
		report.Empty++
		logger.Info("No candles for day")
		return nil
	}
	report.LastWritten = day
	report.Saved++
	logger.Infof("Saved %d candles", len(candles))

	event := events.NewDayArchived(report.RunID, ig.exchange.Name(), ns, market, models.FormatDay(day), len(candles))
	if err := ig.notifier.Publish(ctx, event); err != nil {
		logger.Warnf("Failed to publish archived event: %v", err)
	}
	return nil
}

// fetch calls the adapter, retrying the same day on rate limits only.
func (ig *Ingester) fetch(ctx context.Context, logger logrus.FieldLogger, report *Report, market string, day time.Time) ([]models.Candle, error) {
	var (
		candles    []models.Candle
		retryAfter time.Duration
		waiting    bool
	)

	err := retry.Do(ctx, ig.backoff(&retryAfter), func(ctx context.Context) error {
		if waiting {
			report.move(day, RetryWait, Fetching, nil)
			waiting = false
		}
		if err := ig.limiter.Wait(ctx); err != nil {
			return err
		}

		got, err := ig.exchange.CandlesForDay(ctx, market, day)
		var rl *models.RateLimitError
		if errors.As(err, &rl) {
			retryAfter = rl.RetryAfter
			waiting = true
			report.move(day, Fetching, RetryWait, err)
			logger.Warnf("Rate limited, waiting before retry: %v", err)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		candles = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// backoff waits RetryDelay between attempts, or the exchange's
// Retry-After when that is longer, for at most MaxRetries retries.
func (ig *Ingester) backoff(retryAfter *time.Duration) retry.Backoff {
	tries := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		if tries >= ig.cfg.MaxRetries {
			return 0, true
		}
		tries++
		wait := ig.cfg.RetryDelay
		if *retryAfter > wait {
			wait = *retryAfter
		}
		return wait, false
	})
}
