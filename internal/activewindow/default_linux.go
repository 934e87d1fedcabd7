//go:build linux

package activewindow

// Default returns the platform lookup: X11 via xdotool or xprop.
func Default() Lookup {
	return NewX11()
}
