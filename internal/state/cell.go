// Package state holds the single externally visible current-metrics record.
package state

import (
	"sync/atomic"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

type versioned struct {
	snap    activity.Snapshot
	version uint64
}

// Cell publishes fully built snapshots to any number of readers. Each
// publish replaces the whole record with one pointer swap, so a reader
// sees either the previous snapshot or the new one, never a mix.
type Cell struct {
	cur atomic.Pointer[versioned]
}

// NewCell creates an empty cell.
func NewCell() *Cell {
	return &Cell{}
}

// Publish makes s the current snapshot. Callers keep ownership of s; the
// cell stores its own copy.
func (c *Cell) Publish(s activity.Snapshot) {
	for {
		old := c.cur.Load()
		next := &versioned{snap: s.Clone(), version: 1}
		if old != nil {
			next.version = old.version + 1
		}
		if c.cur.CompareAndSwap(old, next) {
			return
		}
	}
}

// Current returns the latest snapshot, or false if nothing has been
// published yet.
func (c *Cell) Current() (activity.Snapshot, bool) {
	v := c.cur.Load()
	if v == nil {
		return activity.Snapshot{}, false
	}
	return v.snap.Clone(), true
}

// Version counts publishes so far. It is zero before the first publish.
func (c *Cell) Version() uint64 {
	v := c.cur.Load()
	if v == nil {
		return 0
	}
	return v.version
}

// CurrentOrPending returns the latest snapshot or, before the first
// publish, an empty snapshot with unknown risk.
func (c *Cell) CurrentOrPending() activity.Snapshot {
	if s, ok := c.Current(); ok {
		return s
	}
	return activity.Snapshot{
		ActiveApp:       activity.UnknownApp,
		RiskLevel:       activity.RiskUnknown,
		Recommendations: []string{},
	}
}
