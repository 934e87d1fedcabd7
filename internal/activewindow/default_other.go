//go:build !linux

package activewindow

// Default returns a lookup that always fails; callers substitute a
// placeholder name.
func Default() Lookup {
	return Unavailable()
}
