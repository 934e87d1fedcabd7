package history

import (
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(base time.Time, d time.Duration, clicks int64) activity.Snapshot {
	return activity.Snapshot{TakenAt: base.Add(d), Clicks: clicks}
}

func TestWindow_ReturnsLastN(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	w := New(0, func() time.Time { return now })

	for i := int64(1); i <= 5; i++ {
		w.Append(at(now, time.Duration(i)*time.Minute-time.Hour, i))
	}

	got := w.Window(3)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{3, 4, 5}, []int64{got[0].Clicks, got[1].Clicks, got[2].Clicks})

	assert.Len(t, w.Window(10), 5, "short history returns everything")
	assert.Nil(t, w.Window(0))
	assert.Nil(t, w.Window(-1))
	assert.Equal(t, 5, w.Len())
}

func TestWindow_PrunesOnAppend(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	w := New(24*time.Hour, func() time.Time { return now })

	w.Append(at(now, -25*time.Hour, 1))
	w.Append(at(now, -2*time.Hour, 2))
	w.Append(at(now, -time.Hour, 3))

	got := w.Window(3)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.NotEqual(t, int64(1), s.Clicks, "entry older than retention should be pruned")
	}
}

func TestWindow_PrunesAsClockAdvances(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	w := New(24*time.Hour, func() time.Time { return now })

	w.Append(at(now, 0, 1))
	now = now.Add(25 * time.Hour)
	w.Append(at(now, 0, 2))

	got := w.All()
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Clicks)
}

func TestWindow_ReadersSeeStableSlices(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	w := New(0, func() time.Time { return now })
	w.Append(at(now, 0, 1))

	before := w.All()
	w.Append(at(now, time.Second, 2))

	assert.Len(t, before, 1, "earlier read must not observe later appends")
	assert.Len(t, w.All(), 2)
}

func TestWindow_ConcurrentReadersAndWriter(t *testing.T) {
	w := New(0, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			w.Append(activity.Snapshot{TakenAt: time.Now(), Clicks: int64(i)})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				win := w.Window(3)
				for j := 1; j < len(win); j++ {
					if win[j].Clicks <= win[j-1].Clicks {
						t.Errorf("window out of order: %d then %d", win[j-1].Clicks, win[j].Clicks)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, w.Len())
}
