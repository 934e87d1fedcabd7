// Package snapshots persists metrics snapshots as one JSON file each and
// reads them back for history views and daily summaries.
package snapshots

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRetention is how long snapshot files are kept on disk.
const DefaultRetention = 7 * 24 * time.Hour

const (
	filePrefix = "metrics_"
	fileSuffix = ".json"
	// fileTimeLayout keeps filenames lexically sortable by time.
	fileTimeLayout = "20060102_150405"
)

// Options configures a Manager.
type Options struct {
	// Retention is the file age after which files are deleted.
	// Defaults to DefaultRetention.
	Retention time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Logger receives soft failures (unreadable files, failed deletes).
	Logger logrus.FieldLogger
}

// Manager manages snapshot file creation, loading, and cleanup.
type Manager struct {
	dir       string
	retention time.Duration
	now       func() time.Time
	log       logrus.FieldLogger
}

// New creates a new snapshot Manager rooted at dir.
func New(dir string, opts Options) *Manager {
	m := &Manager{
		dir:       dir,
		retention: opts.Retention,
		now:       opts.Clock,
		log:       opts.Logger,
	}
	if m.retention <= 0 {
		m.retention = DefaultRetention
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	m.log = m.log.WithField("component", "snapshots")
	return m
}

// Dir returns the directory snapshot files are written to.
func (m *Manager) Dir() string {
	return m.dir
}
