package analyzer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/sirupsen/logrus"
)

// HistoryReader exposes the rolling snapshot window the pattern factor
// reads. Implementations must allow reads concurrent with appends.
type HistoryReader interface {
	Window(n int) []activity.Snapshot
}

// Options configures optional collaborators of an Analyzer.
type Options struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Logger receives warnings from degraded factor evaluation.
	Logger logrus.FieldLogger
}

// Analyzer computes burnout risk assessments from metrics snapshots.
// It keeps no state between calls apart from the last-break marker and
// the thresholds, both of which may be changed concurrently with Analyze.
type Analyzer struct {
	thresholds atomic.Pointer[Thresholds]
	lastBreak  atomic.Int64 // unix nanoseconds
	history    HistoryReader
	now        func() time.Time
	log        logrus.FieldLogger
}

// New creates a new Analyzer. The last-break marker starts at construction
// time. history may be nil, in which case the pattern factor is always low.
func New(t Thresholds, history HistoryReader, opts Options) (*Analyzer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	a := &Analyzer{
		history: history,
		now:     opts.Clock,
		log:     opts.Logger,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	a.log = a.log.WithField("component", "analyzer")

	a.thresholds.Store(&t)
	a.lastBreak.Store(a.now().UnixNano())
	return a, nil
}

// Thresholds returns the thresholds currently in effect.
func (a *Analyzer) Thresholds() Thresholds {
	return *a.thresholds.Load()
}

// SetThresholds swaps the thresholds used by subsequent Analyze calls.
func (a *Analyzer) SetThresholds(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("failed to update thresholds: %w", err)
	}
	a.thresholds.Store(&t)
	return nil
}

// RecordBreakTaken resets the continuous-work clock to now. Nothing in the
// monitor calls this on its own; it is driven by an explicit user
// acknowledgement (POST /api/break or `burnwatch break`).
func (a *Analyzer) RecordBreakTaken() {
	a.lastBreak.Store(a.now().UnixNano())
}

// LastBreak reports the current last-break marker.
func (a *Analyzer) LastBreak() time.Time {
	return time.Unix(0, a.lastBreak.Load())
}

// MinutesSinceBreak reports how long the user has worked since the marker.
func (a *Analyzer) MinutesSinceBreak() float64 {
	return a.now().Sub(a.LastBreak()).Minutes()
}
