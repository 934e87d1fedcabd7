package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY reports whether w is a file descriptor attached to a terminal.
// Buffers and pipes are not.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar draws a bar with a percentage and a description.
// Example: [=========>          ]  45% Importing snapshots
//
// On a terminal the bar is redrawn in place. Elsewhere a single line is
// written once the bar completes.
type ProgressBar struct {
	mu          sync.Mutex
	total       int
	current     int
	width       int
	description string
	writer      io.Writer
	printed     bool
}

// NewProgress creates a progress bar for total steps writing to stdout.
func NewProgress(total int, description string) *ProgressBar {
	return &ProgressBar{
		total:       total,
		width:       40,
		description: description,
		writer:      os.Stdout,
	}
}

// SetWidth sets the width of the bar in characters.
func (p *ProgressBar) SetWidth(width int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
}

// SetWriter sets the output writer (useful for testing).
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Increment advances the bar by one step.
func (p *ProgressBar) Increment() {
	p.IncrementBy(1)
}

// IncrementBy advances the bar by n steps, stopping at total.
func (p *ProgressBar) IncrementBy(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(p.current + n)
}

// SetCurrent moves the bar to an absolute position, capped at total.
func (p *ProgressBar) SetCurrent(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(current)
}

// Finish fills the bar and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.set(p.total)
	if writerIsTTY(p.writer) {
		fmt.Fprintln(p.writer)
	}
}

// set must be called with the lock held.
func (p *ProgressBar) set(current int) {
	if current > p.total {
		current = p.total
	}
	if current < 0 {
		current = 0
	}
	p.current = current

	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r%s", p.line())
		return
	}
	if p.current == p.total && !p.printed {
		p.printed = true
		fmt.Fprintln(p.writer, p.line())
	}
}

// line formats the bar for the current position.
func (p *ProgressBar) line() string {
	percent, filled := 0, 0
	if p.total > 0 {
		percent = p.current * 100 / p.total
		filled = p.current * p.width / p.total
	}

	var bar strings.Builder
	bar.WriteByte('[')
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteByte('=')
		case i == filled-1:
			bar.WriteByte('>')
		default:
			bar.WriteByte(' ')
		}
	}
	bar.WriteByte(']')

	return fmt.Sprintf("%s %3d%% %s", bar.String(), percent, p.description)
}

// Spinner shows an animated indicator next to a message while a command
// waits on something with no known length.
// Example: |  Waiting for the monitor to exit...
type Spinner struct {
	mu        sync.Mutex
	message   string
	frames    []string
	writer    io.Writer
	running   bool
	done      chan struct{}
	timeout   time.Duration
	timed     bool
	startedAt time.Time
}

// NewSpinner creates a spinner writing to stdout. Call WithTimeout, if
// needed, before Start.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		frames:  []string{"|", "/", "-", "\\"},
		writer:  os.Stdout,
	}
}

// WithTimeout makes the spinner show time remaining until timeout, or time
// elapsed when timeout is zero. It returns the spinner for chaining.
func (s *Spinner) WithTimeout(timeout time.Duration) *Spinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = timeout
	s.timed = true
	return s
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. On a non-terminal writer the message is
// printed once and nothing is animated.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.startedAt = time.Now()
	s.done = make(chan struct{})

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	go s.animate(s.done)
}

func (s *Spinner) animate(done <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.running {
				fmt.Fprintf(s.writer, "\r%s  %s", s.frames[frame], s.text())
			}
			s.mu.Unlock()
			frame = (frame + 1) % len(s.frames)
		}
	}
}

// text must be called with the lock held.
func (s *Spinner) text() string {
	if !s.timed {
		return s.message
	}
	elapsed := time.Since(s.startedAt)
	if s.timeout > 0 {
		remaining := s.timeout - elapsed
		if remaining < 0 {
			remaining = 0
		}
		return fmt.Sprintf("%s (%ds remaining)", s.message, int(remaining.Seconds()))
	}
	return fmt.Sprintf("%s (%ds elapsed)", s.message, int(elapsed.Seconds()))
}

// Stop ends the animation and clears the line. Stopping twice is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.done)

	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.text())+4))
	}
}

// UpdateMessage replaces the message while the spinner runs.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// StopWithMessage stops the spinner and prints a final line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
