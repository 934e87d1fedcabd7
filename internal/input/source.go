// Package input delivers raw mouse-button and key-down events to the
// activity counter.
//
// Only the fact that an event happened is reported. Key codes are never
// passed on or stored.
//
// Platform support:
//   - Linux: reads /dev/input/event* (requires the input group or root)
//   - Other platforms: Register returns ErrNotAvailable
package input

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAvailable is returned when input events cannot be observed on this
// platform or with the current permissions.
var ErrNotAvailable = errors.New("input monitoring not available")

// Handlers are the callbacks an input source invokes. They may be called
// from several goroutines at once and must not block.
type Handlers struct {
	// OnClick is called for every mouse button transition; pressed is
	// false for releases.
	OnClick func(pressed bool)
	// OnKeyPress is called for every key-down event.
	OnKeyPress func()
}

func (h Handlers) click(pressed bool) {
	if h.OnClick != nil {
		h.OnClick(pressed)
	}
}

func (h Handlers) keyPress() {
	if h.OnKeyPress != nil {
		h.OnKeyPress()
	}
}

// Source is a registrable producer of input events.
type Source interface {
	// Register starts delivering events to h until Unregister is called or
	// ctx is cancelled.
	Register(ctx context.Context, h Handlers) error
	// Unregister stops delivery and releases device handles. It is safe
	// to call more than once.
	Unregister() error
}

// Simulated is a Source driven by the caller, used by tests and by
// `burnwatch run --simulate`.
type Simulated struct {
	mu       sync.RWMutex
	handlers *Handlers
}

// NewSimulated creates an unregistered simulated source.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Register implements Source.
func (s *Simulated) Register(_ context.Context, h Handlers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = &h
	return nil
}

// Unregister implements Source.
func (s *Simulated) Unregister() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = nil
	return nil
}

// Registered reports whether handlers are currently attached.
func (s *Simulated) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers != nil
}

// Click delivers a press and a release. It is a no-op when unregistered.
func (s *Simulated) Click() {
	s.mu.RLock()
	h := s.handlers
	s.mu.RUnlock()
	if h == nil {
		return
	}
	h.click(true)
	h.click(false)
}

// KeyPress delivers one key-down. It is a no-op when unregistered.
func (s *Simulated) KeyPress() {
	s.mu.RLock()
	h := s.handlers
	s.mu.RUnlock()
	if h != nil {
		h.keyPress()
	}
}
