// Package activewindow resolves the title of the window the user is
// currently working in.
package activewindow

import (
	"context"
	"errors"
)

// ErrNotAvailable is returned where no lookup mechanism exists.
var ErrNotAvailable = errors.New("active window lookup not available")

// Lookup returns a display string for the focused window.
type Lookup interface {
	ActiveApp(ctx context.Context) (string, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context) (string, error)

// ActiveApp implements Lookup.
func (f LookupFunc) ActiveApp(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static always reports the same name.
func Static(name string) Lookup {
	return LookupFunc(func(context.Context) (string, error) {
		return name, nil
	})
}

// Unavailable always fails with ErrNotAvailable.
func Unavailable() Lookup {
	return LookupFunc(func(context.Context) (string, error) {
		return "", ErrNotAvailable
	})
}
