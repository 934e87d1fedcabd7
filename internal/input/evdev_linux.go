//go:build linux

package input

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	procDevices = "/proc/bus/input/devices"
	// pollTimeoutMs bounds how long a reader waits before rechecking for
	// cancellation.
	pollTimeoutMs = 250
)

var timevalSize = int(unsafe.Sizeof(unix.Timeval{}))

// Evdev reads mouse and keyboard events from Linux evdev nodes.
type Evdev struct {
	paths []string
	log   logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEvdev creates a source reading the given device nodes. With no paths
// the keyboards and mice listed in /proc/bus/input/devices are used.
func NewEvdev(paths []string, logger logrus.FieldLogger) *Evdev {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Evdev{
		paths: paths,
		log:   logger.WithField("component", "input"),
	}
}

// DiscoverDevices lists the keyboards and mice known to the kernel.
func DiscoverDevices() ([]Device, error) {
	f, err := os.Open(procDevices)
	if err != nil {
		return nil, fmt.Errorf("failed to read input device list: %w", err)
	}
	defer f.Close()
	return ParseDevices(f)
}

// Register opens every device and starts one reader per device. It fails
// with ErrNotAvailable if no device can be opened.
func (e *Evdev) Register(ctx context.Context, h Handlers) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return nil
	}

	paths := e.paths
	if len(paths) == 0 {
		devices, err := DiscoverDevices()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotAvailable, err)
		}
		for _, d := range devices {
			paths = append(paths, d.Path)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: no keyboard or mouse devices found", ErrNotAvailable)
	}

	var fds []int
	var lastErr error
	for _, p := range paths {
		fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			lastErr = fmt.Errorf("open %s: %w", p, err)
			e.log.Warnf("skipping input device: %v", lastErr)
			continue
		}
		fds = append(fds, fd)
	}
	if len(fds) == 0 {
		if errors.Is(lastErr, unix.EACCES) {
			return fmt.Errorf("%w: permission denied (join the 'input' group or run as root)", ErrNotAvailable)
		}
		return fmt.Errorf("%w: %v", ErrNotAvailable, lastErr)
	}

	readCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	for _, fd := range fds {
		e.wg.Add(1)
		go e.readLoop(readCtx, fd, h)
	}

	e.log.Infof("reading %d input devices", len(fds))
	return nil
}

// Unregister stops all readers and closes their devices.
func (e *Evdev) Unregister() error {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	e.wg.Wait()
	return nil
}

func (e *Evdev) readLoop(ctx context.Context, fd int, h Handlers) {
	defer e.wg.Done()
	defer unix.Close(fd)

	eventSize := timevalSize + 8
	buf := make([]byte, eventSize*64)
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := unix.Poll(pfd, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			e.log.Warnf("input device poll failed: %v", err)
			return
		}
		if n == 0 {
			continue
		}
		if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			e.log.Warn("input device disconnected")
			return
		}

		read, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			e.log.Warnf("input device read failed: %v", err)
			return
		}

		for off := 0; off+eventSize <= read; off += eventSize {
			if ev, ok := decodeEvent(buf[off:off+eventSize], timevalSize); ok {
				dispatch(ev, h)
			}
		}
	}
}
