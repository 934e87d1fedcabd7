package activewindow

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Runner executes an external command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ProcessNamer resolves a PID to its executable name.
type ProcessNamer func(ctx context.Context, pid int32) (string, error)

func gopsutilNamer(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", err
	}
	return p.NameWithContext(ctx)
}

// X11 queries the focused window with xdotool, falling back to xprop.
// When the window has no title the owning process name is reported.
type X11 struct {
	run  Runner
	name ProcessNamer
}

// NewX11 creates an X11 lookup using the real xdotool/xprop binaries and
// gopsutil for process names.
func NewX11() *X11 {
	return &X11{run: execRunner, name: gopsutilNamer}
}

// ActiveApp implements Lookup.
func (x *X11) ActiveApp(ctx context.Context) (string, error) {
	title, pid, err := x.viaXdotool(ctx)
	if err != nil {
		title, pid, err = x.viaXprop(ctx)
		if err != nil {
			return "", err
		}
	}

	if title != "" {
		return title, nil
	}
	if pid > 0 {
		if name, err := x.name(ctx, pid); err == nil && name != "" {
			return name, nil
		}
	}
	return "", errors.New("focused window has no title")
}

func (x *X11) viaXdotool(ctx context.Context) (string, int32, error) {
	out, err := x.run(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return "", 0, fmt.Errorf("xdotool getactivewindow: %w", err)
	}
	windowID := strings.TrimSpace(string(out))
	if windowID == "" {
		return "", 0, errors.New("xdotool returned no window")
	}

	var title string
	if out, err := x.run(ctx, "xdotool", "getwindowname", windowID); err == nil {
		title = strings.TrimSpace(string(out))
	}

	var pid int32
	if out, err := x.run(ctx, "xdotool", "getwindowpid", windowID); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 32); err == nil {
			pid = int32(n)
		}
	}

	return title, pid, nil
}

func (x *X11) viaXprop(ctx context.Context) (string, int32, error) {
	out, err := x.run(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return "", 0, fmt.Errorf("xprop -root: %w", err)
	}
	windowID, err := parseActiveWindowID(string(out))
	if err != nil {
		return "", 0, err
	}

	out, err = x.run(ctx, "xprop", "-id", windowID, "WM_NAME", "_NET_WM_PID")
	if err != nil {
		return "", 0, fmt.Errorf("xprop -id %s: %w", windowID, err)
	}
	title, pid := parseWindowProps(string(out))
	return title, pid, nil
}

// parseActiveWindowID extracts the window id from
// "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007".
func parseActiveWindowID(out string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) == 0 {
		return "", errors.New("failed to parse xprop output")
	}
	id := fields[len(fields)-1]
	if !strings.HasPrefix(id, "0x") || id == "0x0" {
		return "", errors.New("no active window")
	}
	return id, nil
}

// parseWindowProps reads WM_NAME and _NET_WM_PID lines from xprop -id.
func parseWindowProps(out string) (string, int32) {
	var title string
	var pid int32

	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case strings.HasPrefix(key, "WM_NAME"):
			title = strings.Trim(value, `"`)
		case strings.HasPrefix(key, "_NET_WM_PID"):
			if n, err := strconv.ParseInt(value, 10, 32); err == nil {
				pid = int32(n)
			}
		}
	}
	return title, pid
}
