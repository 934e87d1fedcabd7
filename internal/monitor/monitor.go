package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/burnwatch/internal/activewindow"
	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/blackwell-systems/burnwatch/internal/analyzer"
	"github.com/blackwell-systems/burnwatch/internal/history"
	"github.com/blackwell-systems/burnwatch/internal/input"
	"github.com/blackwell-systems/burnwatch/internal/state"
)

// Defaults applied by New when an Options field is zero.
const (
	DefaultInterval        = 5 * time.Second
	DefaultPersistInterval = 60 * time.Second
	DefaultStopTimeout     = 1 * time.Second
	DefaultRetryDelay      = 1 * time.Second
	DefaultLookupTimeout   = 2 * time.Second
)

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("monitor has been stopped")

// Persister stores snapshots durably and reads them back.
type Persister interface {
	Save(s activity.Snapshot) (string, error)
	Load(hours float64) ([]activity.PersistedRecord, error)
	DailySummary(date string) (activity.DailySummary, bool, error)
}

// Archive is the long-term snapshot store.
type Archive interface {
	InsertSnapshot(s activity.Snapshot) (int64, error)
	PruneSnapshots(before time.Time) (int64, error)
	InsertBreak(at time.Time) error
}

// Publisher receives every scored snapshot.
type Publisher interface {
	Publish(ctx context.Context, s activity.Snapshot) error
}

// AppResolver maps a window title to an application name.
type AppResolver interface {
	Resolve(title string) string
}

// Options configures a Monitor. Input is required; everything else has a
// usable default.
type Options struct {
	Input      input.Source
	Lookup     activewindow.Lookup
	Apps       AppResolver
	Thresholds analyzer.Thresholds
	Persister  Persister
	Archive    Archive
	Publishers []Publisher
	Logger     logrus.FieldLogger
	Clock      func() time.Time

	Interval         time.Duration
	PersistInterval  time.Duration
	StopTimeout      time.Duration
	RetryDelay       time.Duration
	LookupTimeout    time.Duration
	HistoryRetention time.Duration
	// ArchiveRetention prunes archived snapshots older than this on every
	// persist. Zero keeps them forever.
	ArchiveRetention time.Duration
}

// Stats counts loop outcomes since New.
type Stats struct {
	Ticks           uint64
	TickFailures    uint64
	PersistFailures uint64
}

// Monitor owns the aggregation loop and every component it drives.
type Monitor struct {
	counter    *activity.Counter
	input      input.Source
	lookup     activewindow.Lookup
	apps       AppResolver
	analyzer   *analyzer.Analyzer
	history    *history.Window
	state      *state.Cell
	persister  Persister
	archive    Archive
	publishers []Publisher
	log        logrus.FieldLogger
	now        func() time.Time

	interval         time.Duration
	persistInterval  time.Duration
	stopTimeout      time.Duration
	retryDelay       time.Duration
	lookupTimeout    time.Duration
	archiveRetention time.Duration

	mu      sync.Mutex // guards running, stopCh, done
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	publishMu  sync.Mutex // guards stopped and the factors of the current snapshot
	stopped    bool
	factors    analyzer.Factors
	factorsErr error

	lastPersisted uint64 // state version; loop goroutine only
	lookupFailing atomic.Bool

	ticks           atomic.Uint64
	tickFailures    atomic.Uint64
	persistFailures atomic.Uint64
}

// New creates a Monitor. The session clock and the break marker start now.
func New(opts Options) (*Monitor, error) {
	if opts.Input == nil {
		return nil, fmt.Errorf("input source cannot be nil")
	}

	m := &Monitor{
		input:            opts.Input,
		lookup:           opts.Lookup,
		apps:             opts.Apps,
		state:            state.NewCell(),
		persister:        opts.Persister,
		archive:          opts.Archive,
		publishers:       opts.Publishers,
		log:              opts.Logger,
		now:              opts.Clock,
		interval:         opts.Interval,
		persistInterval:  opts.PersistInterval,
		stopTimeout:      opts.StopTimeout,
		retryDelay:       opts.RetryDelay,
		lookupTimeout:    opts.LookupTimeout,
		archiveRetention: opts.ArchiveRetention,
	}
	if m.lookup == nil {
		m.lookup = activewindow.Unavailable()
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	m.log = m.log.WithField("component", "monitor")
	if m.now == nil {
		m.now = time.Now
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.persistInterval <= 0 {
		m.persistInterval = DefaultPersistInterval
	}
	if m.stopTimeout <= 0 {
		m.stopTimeout = DefaultStopTimeout
	}
	if m.retryDelay <= 0 {
		m.retryDelay = DefaultRetryDelay
	}
	if m.lookupTimeout <= 0 {
		m.lookupTimeout = DefaultLookupTimeout
	}

	thresholds := opts.Thresholds
	if thresholds == (analyzer.Thresholds{}) {
		thresholds = analyzer.DefaultThresholds()
	}

	m.counter = activity.NewCounter(m.now)
	m.history = history.New(opts.HistoryRetention, m.now)

	a, err := analyzer.New(thresholds, m.history, analyzer.Options{Clock: m.now, Logger: opts.Logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	m.analyzer = a

	return m, nil
}

// Start registers the input callbacks and launches the aggregation loop.
// Calling Start on a running monitor does nothing. A registration failure
// is returned and the loop is not started.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if m.isStopped() {
		return ErrStopped
	}

	handlers := input.Handlers{
		OnClick:    m.counter.HandleClick,
		OnKeyPress: m.counter.RecordKeyPress,
	}
	if err := m.input.Register(ctx, handlers); err != nil {
		return fmt.Errorf("failed to register input callbacks: %w", err)
	}

	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	go m.run(ctx, m.stopCh, m.done)

	m.log.Infof("monitor started (interval %v, persist every %v)", m.interval, m.persistInterval)
	return nil
}

// run ticks immediately, then every interval. A failed tick is retried
// after the retry delay instead of a full interval.
func (m *Monitor) run(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer m.persist()

	retry := backoff.NewConstantBackOff(m.retryDelay)
	timer := time.NewTimer(0)
	defer timer.Stop()
	persistTicker := time.NewTicker(m.persistInterval)
	defer persistTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.release(stopCh)
			return
		case <-stopCh:
			return
		case <-persistTicker.C:
			m.persist()
		case <-timer.C:
			delay := m.interval
			if err := m.safeTick(ctx); err != nil {
				m.tickFailures.Add(1)
				m.log.WithError(err).Error("metrics update failed")
				delay = retry.NextBackOff()
			}
			timer.Reset(delay)
		}
	}
}

// release ends a run whose context was cancelled without Stop, so a later
// Start launches a fresh loop.
func (m *Monitor) release(stopCh <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.stopCh != stopCh {
		return
	}
	m.running = false
	if err := m.input.Unregister(); err != nil {
		m.log.Warnf("failed to unregister input callbacks: %v", err)
	}
	m.log.Info("monitor context cancelled")
}

// Stop unregisters the input callbacks, then signals the loop and waits up
// to the stop timeout for it to exit. After Stop returns no further
// snapshot reaches the shared state. Stop is safe to call more than once.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		m.markStopped()
		return nil
	}
	m.running = false
	stopCh, done := m.stopCh, m.done
	m.mu.Unlock()

	var err error
	if uerr := m.input.Unregister(); uerr != nil {
		err = fmt.Errorf("failed to unregister input callbacks: %w", uerr)
	}

	close(stopCh)
	select {
	case <-done:
	case <-time.After(m.stopTimeout):
		m.log.Warnf("monitor loop did not exit within %v", m.stopTimeout)
	}

	m.markStopped()
	m.log.Info("monitor stopped")
	return err
}

func (m *Monitor) markStopped() {
	m.publishMu.Lock()
	m.stopped = true
	m.publishMu.Unlock()
}

func (m *Monitor) isStopped() bool {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	return m.stopped
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Current returns the latest published snapshot, or false before the
// first tick.
func (m *Monitor) Current() (activity.Snapshot, bool) {
	return m.state.Current()
}

// CurrentOrPending returns the latest snapshot or a pending placeholder
// with unknown risk.
func (m *Monitor) CurrentOrPending() activity.Snapshot {
	return m.state.CurrentOrPending()
}

// Version counts published snapshots.
func (m *Monitor) Version() uint64 {
	return m.state.Version()
}

// Factors returns the three risk factors the current snapshot was scored
// with. The error is set when that tick could not compute them.
func (m *Monitor) Factors() (analyzer.Factors, bool, error) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	if m.state.Version() == 0 {
		return analyzer.Factors{}, false, nil
	}
	return m.factors, true, m.factorsErr
}

// History returns persisted records from the last hours.
func (m *Monitor) History(hours float64) ([]activity.PersistedRecord, error) {
	if m.persister == nil {
		return nil, nil
	}
	return m.persister.Load(hours)
}

// Summary aggregates the persisted records of one day (YYYY-MM-DD). The
// bool is false when there is no data for that day.
func (m *Monitor) Summary(date string) (activity.DailySummary, bool, error) {
	if m.persister == nil {
		return activity.DailySummary{}, false, nil
	}
	return m.persister.DailySummary(date)
}

// RecordBreakTaken resets the continuous-work clock and archives the
// break.
func (m *Monitor) RecordBreakTaken() {
	m.analyzer.RecordBreakTaken()
	if m.archive != nil {
		if err := m.archive.InsertBreak(m.analyzer.LastBreak()); err != nil {
			m.log.Warnf("failed to archive break: %v", err)
		}
	}
	m.log.Info("break recorded")
}

// LastBreak returns the current break marker.
func (m *Monitor) LastBreak() time.Time {
	return m.analyzer.LastBreak()
}

// MinutesSinceBreak is the continuous-work time seen by the analyzer.
func (m *Monitor) MinutesSinceBreak() float64 {
	return m.analyzer.MinutesSinceBreak()
}

// SetThresholds swaps the risk thresholds used by later ticks.
func (m *Monitor) SetThresholds(t analyzer.Thresholds) error {
	return m.analyzer.SetThresholds(t)
}

// Thresholds returns the active risk thresholds.
func (m *Monitor) Thresholds() analyzer.Thresholds {
	return m.analyzer.Thresholds()
}

// Stats returns the loop counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Ticks:           m.ticks.Load(),
		TickFailures:    m.tickFailures.Load(),
		PersistFailures: m.persistFailures.Load(),
	}
}
