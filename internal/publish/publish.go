// Package publish forwards each assessed snapshot to optional external
// sinks: Redis for live state and Elasticsearch for long-term indexing.
//
// Publishing is best effort. A sink failure is logged and never interrupts
// the monitor loop.
package publish

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

// Publisher receives every snapshot published by the monitor.
type Publisher interface {
	Publish(ctx context.Context, s activity.Snapshot) error
	Close() error
}

// Multi fans a snapshot out to several publishers.
type Multi struct {
	publishers []Publisher
	log        logrus.FieldLogger
}

// NewMulti returns a Multi over the given publishers. Nil entries are
// dropped.
func NewMulti(log logrus.FieldLogger, publishers ...Publisher) *Multi {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Multi{log: log.WithField("component", "publish")}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Len returns the number of configured publishers.
func (m *Multi) Len() int {
	return len(m.publishers)
}

// Publish sends s to every publisher. Failures are joined into the returned
// error and logged per sink at debug level. A failing publisher does not
// stop the others.
func (m *Multi) Publish(ctx context.Context, s activity.Snapshot) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, s); err != nil {
			m.log.WithError(err).Debug("publish failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m *Multi) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
