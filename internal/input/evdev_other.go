//go:build !linux

package input

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Evdev is unavailable outside Linux.
type Evdev struct{}

// NewEvdev returns a source whose Register always fails.
func NewEvdev(paths []string, logger logrus.FieldLogger) *Evdev {
	return &Evdev{}
}

// DiscoverDevices returns ErrNotAvailable on this platform.
func DiscoverDevices() ([]Device, error) {
	return nil, ErrNotAvailable
}

// Register returns ErrNotAvailable on this platform.
func (e *Evdev) Register(ctx context.Context, h Handlers) error {
	return ErrNotAvailable
}

// Unregister is a no-op on this platform.
func (e *Evdev) Unregister() error {
	return nil
}
