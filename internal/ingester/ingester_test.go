package ingester

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/marketarchive/internal/events"
	"github.com/navid-fn/marketarchive/internal/models"
	"github.com/navid-fn/marketarchive/internal/storage"
)

const market = "BTCUSDT"

var (
	day1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
	day3 = day1.AddDate(0, 0, 2)
)

func fullDay(day time.Time) []models.Candle {
	candles := make([]models.Candle, 0, 24*60)
	one := decimal.NewFromInt(1)
	for i := 0; i < 24*60; i++ {
		ts := day.Add(time.Duration(i) * time.Minute)
		candles = append(candles, models.NewCandle(ts, one, one, one, one, one))
	}
	return candles
}

// fakeExchange serves canned days. errs holds errors returned, in order,
// before a day is served.
type fakeExchange struct {
	mu       sync.Mutex
	days     map[string][]models.Candle
	errs     map[string][]error
	earliest time.Time
	calls    []string
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{days: map[string][]models.Candle{}, errs: map[string][]error{}}
}

func (f *fakeExchange) Name() string      { return "fake" }
func (f *fakeExchange) Namespace() string { return "fake-spot" }

func (f *fakeExchange) Markets(context.Context) ([]string, error) {
	return []string{market}, nil
}

func (f *fakeExchange) CandlesForDay(ctx context.Context, m string, day time.Time) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := models.FormatDay(day)
	f.calls = append(f.calls, key)
	if errs := f.errs[key]; len(errs) > 0 {
		f.errs[key] = errs[1:]
		return nil, errs[0]
	}
	return f.days[key], nil
}

func (f *fakeExchange) EarliestCandle(ctx context.Context, m string) (models.Candle, error) {
	if f.earliest.IsZero() {
		return models.Candle{}, models.NotFound("fake %s", m)
	}
	one := decimal.NewFromInt(1)
	return models.NewCandle(f.earliest, one, one, one, one, one), nil
}

func (f *fakeExchange) callCount(day time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == models.FormatDay(day) {
			n++
		}
	}
	return n
}

func testConfig() Config {
	return Config{Delay: 0, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func newTestIngester(t *testing.T, ex *fakeExchange, cfg Config) (*Ingester, *storage.DayStore) {
	t.Helper()
	store := storage.NewDayStore(t.TempDir())
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewIngester(ex, store, logger, cfg), store
}

func ptr(t time.Time) *time.Time { return &t }

func TestRunThreeDays(t *testing.T) {
	ex := newFakeExchange()
	ex.days[models.FormatDay(day1)] = fullDay(day1)
	ex.days[models.FormatDay(day3)] = fullDay(day3)
	ig, store := newTestIngester(t, ex, testConfig())

	report, err := ig.Run(context.Background(), market, Range{Start: ptr(day1), End: day3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Saved != 2 || report.Empty != 1 || report.Skipped != 0 {
		t.Errorf("Unexpected counts: saved=%d empty=%d skipped=%d", report.Saved, report.Empty, report.Skipped)
	}
	if !report.LastSaved.Equal(day3) {
		t.Errorf("Expected last saved %s, got %s", day3, report.LastSaved)
	}
	if report.RunID == "" {
		t.Error("Expected run id")
	}

	days, err := store.ListDays("fake-spot", market)
	if err != nil {
		t.Fatalf("ListDays failed: %v", err)
	}
	if len(days) != 2 || !days[0].Equal(day1) || !days[1].Equal(day3) {
		t.Errorf("Expected files for day 1 and 3, got %v", days)
	}
	for _, day := range []time.Time{day1, day2, day3} {
		if s, _ := report.Final(day); s != Saved {
			t.Errorf("%s: expected SAVED, got %s", models.FormatDay(day), s)
		}
	}
}

func TestRunResumesAfterLatestDay(t *testing.T) {
	ex := newFakeExchange()
	ex.days[models.FormatDay(day1)] = fullDay(day1)
	ex.days[models.FormatDay(day2)] = fullDay(day2)
	ig, store := newTestIngester(t, ex, testConfig())

	if err := store.WriteDay("fake-spot", market, day1, fullDay(day1)); err != nil {
		t.Fatal(err)
	}

	report, err := ig.Run(context.Background(), market, Range{End: day2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Start.Equal(day2) {
		t.Errorf("Expected resume at %s, got %s", day2, report.Start)
	}
	if ex.callCount(day1) != 0 {
		t.Error("Archived day was fetched again")
	}
}

func TestRunResumesAfterLatestDayWithGap(t *testing.T) {
	ex := newFakeExchange()
	ig, store := newTestIngester(t, ex, testConfig())

	// a gap on day 2 is left alone; resume follows the latest file
	for _, day := range []time.Time{day1, day3} {
		if err := store.WriteDay("fake-spot", market, day, fullDay(day)); err != nil {
			t.Fatal(err)
		}
	}

	report, err := ig.Run(context.Background(), market, Range{End: day3.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := day3.AddDate(0, 0, 1); !report.Start.Equal(want) {
		t.Errorf("Expected resume at %s, got %s", want, report.Start)
	}
	if ex.callCount(day2) != 0 {
		t.Error("Gap before the latest day was fetched")
	}
}

func TestRunStartsAtEarliestCandle(t *testing.T) {
	ex := newFakeExchange()
	ex.earliest = day2.Add(13 * time.Hour)
	ig, _ := newTestIngester(t, ex, testConfig())

	report, err := ig.Run(context.Background(), market, Range{End: day3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Start.Equal(day2) {
		t.Errorf("Expected start %s, got %s", day2, report.Start)
	}
}

func TestRunNoHistory(t *testing.T) {
	ig, _ := newTestIngester(t, newFakeExchange(), testConfig())

	_, err := ig.Run(context.Background(), market, Range{End: day3})
	if !models.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestRunStartAfterEnd(t *testing.T) {
	ex := newFakeExchange()
	ig, _ := newTestIngester(t, ex, testConfig())

	report, err := ig.Run(context.Background(), market, Range{Start: ptr(day3), End: day1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ex.calls) != 0 || len(report.Transitions) != 0 {
		t.Errorf("Expected no work, got calls %v", ex.calls)
	}
}

func TestRateLimitRetriesSameDay(t *testing.T) {
	ex := newFakeExchange()
	ex.days[models.FormatDay(day1)] = fullDay(day1)
	ex.errs[models.FormatDay(day1)] = []error{
		&models.RateLimitError{Op: "fake", StatusCode: 429},
		&models.RateLimitError{Op: "fake", StatusCode: 429},
	}
	ig, _ := newTestIngester(t, ex, testConfig())

	report, err := ig.SaveDay(context.Background(), market, day1)
	if err != nil {
		t.Fatalf("SaveDay failed: %v", err)
	}
	if n := ex.callCount(day1); n != 3 {
		t.Errorf("Expected 3 calls, got %d", n)
	}

	want := []State{Fetching, RetryWait, Fetching, RetryWait, Fetching, Saved}
	if len(report.Transitions) != len(want) {
		t.Fatalf("Expected %d transitions, got %v", len(want), report.Transitions)
	}
	for i, s := range want {
		if report.Transitions[i].To != s {
			t.Errorf("Transition %d: expected %s, got %s", i, s, report.Transitions[i].To)
		}
	}
}

func TestRateLimitExhausted(t *testing.T) {
	ex := newFakeExchange()
	ex.days[models.FormatDay(day1)] = fullDay(day1)
	limited := &models.RateLimitError{Op: "fake", StatusCode: 429}
	ex.errs[models.FormatDay(day2)] = []error{limited, limited, limited, limited, limited}
	cfg := testConfig()
	cfg.MaxRetries = 2
	ig, _ := newTestIngester(t, ex, cfg)

	report, err := ig.Run(context.Background(), market, Range{Start: ptr(day1), End: day3})
	if !models.IsRateLimit(err) {
		t.Fatalf("Expected RateLimitError, got %v", err)
	}
	if n := ex.callCount(day2); n != 3 {
		t.Errorf("Expected 3 calls for day 2, got %d", n)
	}
	if !report.LastSaved.Equal(day1) {
		t.Errorf("Expected last saved %s, got %s", day1, report.LastSaved)
	}
	if !report.LastWritten.Equal(day1) {
		t.Errorf("Expected last written %s, got %s", day1, report.LastWritten)
	}
	if s, _ := report.Final(day2); s != Aborted {
		t.Errorf("Expected day 2 ABORTED, got %s", s)
	}
	if ex.callCount(day3) != 0 {
		t.Error("Run continued past an aborted day")
	}
}

func TestRetryAfterWins(t *testing.T) {
	ex := newFakeExchange()
	ex.errs[models.FormatDay(day1)] = []error{
		&models.RateLimitError{Op: "fake", StatusCode: 429, RetryAfter: 60 * time.Millisecond},
	}
	ig, _ := newTestIngester(t, ex, testConfig())

	began := time.Now()
	if _, err := ig.SaveDay(context.Background(), market, day1); err != nil {
		t.Fatalf("SaveDay failed: %v", err)
	}
	if elapsed := time.Since(began); elapsed < 60*time.Millisecond {
		t.Errorf("Expected to wait for Retry-After, waited %s", elapsed)
	}
}

func TestSchemaError(t *testing.T) {
	tests := []struct {
		name     string
		tolerant bool
		wantErr  bool
		state    State
	}{
		{"strict", false, true, Aborted},
		{"tolerant", true, false, Skipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := newFakeExchange()
			ex.days[models.FormatDay(day3)] = fullDay(day3)
			ex.errs[models.FormatDay(day2)] = []error{&models.SchemaError{Op: "fake", Err: errors.New("bad row")}}
			cfg := testConfig()
			cfg.Tolerant = tt.tolerant
			ig, _ := newTestIngester(t, ex, cfg)

			report, err := ig.Run(context.Background(), market, Range{Start: ptr(day1), End: day3})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if s, _ := report.Final(day2); s != tt.state {
				t.Errorf("Expected %s, got %s", tt.state, s)
			}
			if ex.callCount(day2) != 1 {
				t.Errorf("Schema errors must not be retried, got %d calls", ex.callCount(day2))
			}
			if tt.tolerant && report.Skipped != 1 {
				t.Errorf("Expected 1 skipped day, got %d", report.Skipped)
			}
		})
	}
}

func TestTransportErrorAborts(t *testing.T) {
	ex := newFakeExchange()
	ex.errs[models.FormatDay(day1)] = []error{&models.TransportError{Op: "fake", StatusCode: 500}}
	cfg := testConfig()
	cfg.Tolerant = true
	ig, _ := newTestIngester(t, ex, cfg)

	report, err := ig.SaveDay(context.Background(), market, day1)
	var te *models.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if ex.callCount(day1) != 1 {
		t.Errorf("Transport errors must not be retried, got %d calls", ex.callCount(day1))
	}
	if report.HasSaved() || report.HasWritten() {
		t.Error("Expected nothing saved")
	}
}

func TestLastWrittenSkipsEmptyDays(t *testing.T) {
	ex := newFakeExchange()
	ex.days[models.FormatDay(day1)] = fullDay(day1)
	ex.errs[models.FormatDay(day3)] = []error{&models.TransportError{Op: "fake", StatusCode: 500}}
	ig, store := newTestIngester(t, ex, testConfig())

	report, err := ig.Run(context.Background(), market, Range{Start: ptr(day1), End: day3})
	if err == nil {
		t.Fatal("Expected day 3 to abort the run")
	}
	if !report.LastSaved.Equal(day2) {
		t.Errorf("Expected last saved %s, got %s", day2, report.LastSaved)
	}
	if !report.LastWritten.Equal(day1) {
		t.Errorf("Expected last written %s, got %s", day1, report.LastWritten)
	}
	if _, err := store.ReadDay("fake-spot", market, report.LastWritten); err != nil {
		t.Errorf("Last written day has no file: %v", err)
	}
}

func TestCancelledRun(t *testing.T) {
	ex := newFakeExchange()
	ig, _ := newTestIngester(t, ex, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ig.Run(ctx, market, Range{Start: ptr(day1), End: day3}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(ex.calls) != 0 {
		t.Errorf("Expected no calls, got %v", ex.calls)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DayArchived
}

func (p *recordingPublisher) Publish(_ context.Context, e events.DayArchived) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

func TestNotifier(t *testing.T) {
	ex := newFakeExchange()
	ex.days[models.FormatDay(day1)] = fullDay(day1)
	ig, _ := newTestIngester(t, ex, testConfig())
	pub := &recordingPublisher{}
	ig.SetNotifier(pub)

	report, err := ig.Run(context.Background(), market, Range{Start: ptr(day1), End: day2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(pub.events))
	}
	e := pub.events[0]
	if e.Day != "2024-01-01" || e.Candles != 1440 || e.RunID != report.RunID || e.Namespace != "fake-spot" {
		t.Errorf("Unexpected event %+v", e)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Pending:   "PENDING",
		Fetching:  "FETCHING",
		RetryWait: "RETRY_WAIT",
		Saved:     "SAVED",
		Skipped:   "SKIPPED",
		Aborted:   "ABORTED",
		State(42): "State(42)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("Expected %s, got %s", want, s.String())
		}
	}
}
