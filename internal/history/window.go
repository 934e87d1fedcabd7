// Package history keeps the rolling in-memory window of recent snapshots
// that the risk engine reads for trend detection.
package history

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

// DefaultRetention is how long snapshots stay in the window.
const DefaultRetention = 24 * time.Hour

// Window is a time-bounded, time-ordered sequence of snapshots.
//
// Appends copy the current slice, add the new entry, prune expired ones and
// swap the result in with an atomic store. Readers load the pointer and
// never block appends. Returned slices are shared and must be treated as
// read-only.
type Window struct {
	entries   atomic.Pointer[[]activity.Snapshot]
	writeMu   sync.Mutex
	retention time.Duration
	now       func() time.Time
}

// New creates an empty window. A non-positive retention selects
// DefaultRetention; a nil clock selects time.Now.
func New(retention time.Duration, clock func() time.Time) *Window {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if clock == nil {
		clock = time.Now
	}
	w := &Window{retention: retention, now: clock}
	empty := []activity.Snapshot{}
	w.entries.Store(&empty)
	return w
}

// Append adds s at the tail and drops every entry taken before
// now minus the retention.
func (w *Window) Append(s activity.Snapshot) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	cutoff := w.now().Add(-w.retention)
	cur := *w.entries.Load()

	next := make([]activity.Snapshot, 0, len(cur)+1)
	for _, e := range cur {
		if !e.TakenAt.Before(cutoff) {
			next = append(next, e)
		}
	}
	if !s.TakenAt.Before(cutoff) {
		next = append(next, s.Clone())
	}

	w.entries.Store(&next)
}

// Window returns up to the last n entries in time order.
func (w *Window) Window(n int) []activity.Snapshot {
	if n <= 0 {
		return nil
	}
	cur := *w.entries.Load()
	if n > len(cur) {
		n = len(cur)
	}
	return cur[len(cur)-n:]
}

// All returns every retained entry in time order.
func (w *Window) All() []activity.Snapshot {
	return *w.entries.Load()
}

// Len reports how many entries are retained.
func (w *Window) Len() int {
	return len(*w.entries.Load())
}
