package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/blackwell-systems/burnwatch/internal/analyzer"
)

// safeTick runs one update, turning a panic into an error so the loop
// survives it.
func (m *Monitor) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during update: %v", r)
		}
	}()
	m.tick(ctx)
	return nil
}

func (m *Monitor) tick(ctx context.Context) {
	counts := m.counter.SnapshotCounts()
	app := m.activeApp(ctx)

	snap := activity.Snapshot{
		Clicks:            counts.Clicks,
		KeyPresses:        counts.KeyPresses,
		ScreenTimeMinutes: counts.ElapsedMinutes,
		ActiveApp:         app,
		TakenAt:           m.now(),
		RiskLevel:         activity.RiskUnknown,
		Recommendations:   []string{},
	}

	// The trend factor reads the history, so the new point goes in first.
	m.history.Append(snap)
	assessment, factors, err := m.analyzer.Evaluate(snap)
	scored := snap.WithAssessment(assessment)

	if !m.publish(scored, factors, err) {
		return
	}
	m.ticks.Add(1)

	for _, p := range m.publishers {
		if err := p.Publish(ctx, scored); err != nil {
			m.log.Warnf("publisher failed: %v", err)
		}
	}
}

// publish stores s and the factors it was scored with unless the monitor
// has stopped.
func (m *Monitor) publish(s activity.Snapshot, f analyzer.Factors, ferr error) bool {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	if m.stopped {
		return false
	}
	m.state.Publish(s)
	m.factors, m.factorsErr = f, ferr
	return true
}

// activeApp resolves the focused application, falling back to
// activity.UnknownApp. Only the first failure of a run of failures is
// logged at warning level.
func (m *Monitor) activeApp(ctx context.Context) string {
	lctx, cancel := context.WithTimeout(ctx, m.lookupTimeout)
	defer cancel()

	name, err := m.lookup.ActiveApp(lctx)
	name = strings.TrimSpace(name)
	if err == nil && name == "" {
		err = fmt.Errorf("empty window name")
	}
	if err != nil {
		if m.lookupFailing.CompareAndSwap(false, true) {
			m.log.Warnf("active window lookup failed: %v", err)
		} else {
			m.log.Debugf("active window lookup failed: %v", err)
		}
		return activity.UnknownApp
	}
	m.lookupFailing.Store(false)

	if m.apps != nil {
		name = m.apps.Resolve(name)
	}
	return name
}

// persist saves the latest snapshot if it changed since the last persist.
// Failures are logged and counted; they never stop the loop.
func (m *Monitor) persist() {
	snap, ok := m.state.Current()
	if !ok {
		return
	}
	version := m.state.Version()
	if version == m.lastPersisted {
		return
	}
	m.lastPersisted = version

	if m.persister != nil {
		if path, err := m.persister.Save(snap); err != nil {
			m.persistFailures.Add(1)
			m.log.Warnf("failed to save snapshot: %v", err)
		} else {
			m.log.Debugf("saved snapshot to %s", path)
		}
	}

	if m.archive != nil {
		if _, err := m.archive.InsertSnapshot(snap); err != nil {
			m.persistFailures.Add(1)
			m.log.Warnf("failed to archive snapshot: %v", err)
		}
		if m.archiveRetention > 0 {
			if n, err := m.archive.PruneSnapshots(m.now().Add(-m.archiveRetention)); err != nil {
				m.log.Warnf("failed to prune archive: %v", err)
			} else if n > 0 {
				m.log.Debugf("pruned %d archived snapshots", n)
			}
		}
	}
}
