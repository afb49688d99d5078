package ingester

import (
	"fmt"
	"time"

	"github.com/navid-fn/marketarchive/internal/models"
)

// State is the per-day position in the ingestion state machine.
type State int

const (
	Pending State = iota
	Fetching
	RetryWait
	Saved
	Skipped
	Aborted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Fetching:
		return "FETCHING"
	case RetryWait:
		return "RETRY_WAIT"
	case Saved:
		return "SAVED"
	case Skipped:
		return "SKIPPED"
	case Aborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Transition struct {
	Day  time.Time
	From State
	To   State
	// Err is the error that caused the move, if any.
	Err error
}

func (t Transition) String() string {
	s := fmt.Sprintf("%s %s -> %s", models.FormatDay(t.Day), t.From, t.To)
	if t.Err != nil {
		s += ": " + t.Err.Error()
	}
	return s
}

// Report summarizes a run. It is returned even when the run fails.
type Report struct {
	RunID     string
	Exchange  string
	Namespace string
	Market    string

	// Start and End are the resolved, inclusive day range.
	Start time.Time
	End   time.Time

	// LastSaved is the last day that reached SAVED. Zero when none did.
	LastSaved time.Time

	// LastWritten is the last day whose file was written. Empty days reach
	// SAVED without a file, so it can trail LastSaved.
	LastWritten time.Time

	Saved   int
	Empty   int
	Skipped int

	Transitions []Transition
}

// HasSaved reports whether any day reached SAVED.
func (r *Report) HasSaved() bool {
	return !r.LastSaved.IsZero()
}

// HasWritten reports whether any day file was written.
func (r *Report) HasWritten() bool {
	return !r.LastWritten.IsZero()
}

// Final returns the last state a day reached in this run.
func (r *Report) Final(day time.Time) (State, bool) {
	day = models.Day(day)
	for i := len(r.Transitions) - 1; i >= 0; i-- {
		if r.Transitions[i].Day.Equal(day) {
			return r.Transitions[i].To, true
		}
	}
	return Pending, false
}

func (r *Report) move(day time.Time, from, to State, err error) {
	r.Transitions = append(r.Transitions, Transition{Day: day, From: from, To: to, Err: err})
}
