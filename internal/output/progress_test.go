package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestProgressBar_Line(t *testing.T) {
	p := NewProgress(100, "Importing")
	p.SetWriter(&bytes.Buffer{})

	line := p.line()
	if !strings.Contains(line, "[") || !strings.Contains(line, "]") {
		t.Errorf("Progress bar should contain brackets, got: %q", line)
	}
	if !strings.Contains(line, "0%") {
		t.Errorf("Initial progress should be 0%%, got: %q", line)
	}
	if !strings.HasSuffix(line, "Importing") {
		t.Errorf("Progress bar should end with description, got: %q", line)
	}
}

func TestProgressBar_Positions(t *testing.T) {
	tests := []struct {
		name    string
		advance func(p *ProgressBar)
		want    string
	}{
		{"increment", func(p *ProgressBar) { p.Increment() }, " 10%"},
		{"increment by", func(p *ProgressBar) { p.IncrementBy(3); p.IncrementBy(2) }, " 50%"},
		{"set current", func(p *ProgressBar) { p.SetCurrent(7) }, " 70%"},
		{"capped", func(p *ProgressBar) { p.IncrementBy(15) }, "100%"},
		{"negative", func(p *ProgressBar) { p.SetCurrent(-4) }, "  0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgress(10, "Test")
			p.SetWriter(&bytes.Buffer{})
			tt.advance(p)
			if line := p.line(); !strings.Contains(line, tt.want) {
				t.Errorf("line() = %q, want it to contain %q", line, tt.want)
			}
		})
	}
}

func TestProgressBar_NonTTYPrintsOnceOnCompletion(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(3, "Importing snapshots")
	p.SetWriter(buf)

	p.Increment()
	p.Increment()
	if buf.Len() != 0 {
		t.Fatalf("non-terminal output before completion: %q", buf.String())
	}

	p.Increment()
	p.Finish()

	output := buf.String()
	if strings.Count(output, "100%") != 1 {
		t.Errorf("expected exactly one completed line, got: %q", output)
	}
	if !strings.HasSuffix(output, "Importing snapshots\n") {
		t.Errorf("completed line should end with description, got: %q", output)
	}
}

func TestProgressBar_FinishFromPartial(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(100, "Complete")
	p.SetWriter(buf)

	p.SetCurrent(75)
	p.Finish()

	if !strings.Contains(buf.String(), "100%") {
		t.Errorf("Finish() should show 100%%, got: %q", buf.String())
	}
}

func TestProgressBar_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(0, "Empty")
	p.SetWriter(buf)

	p.Increment()
	output := buf.String()

	if !strings.Contains(output, "[") || !strings.Contains(output, "]") {
		t.Errorf("Progress bar with zero total should still render, got: %q", output)
	}
}

func TestProgressBar_Width(t *testing.T) {
	p := NewProgress(100, "Test")
	p.SetWriter(&bytes.Buffer{})
	p.SetWidth(20)
	p.SetCurrent(50)

	line := p.line()
	start := strings.Index(line, "[")
	end := strings.Index(line, "]")
	if start == -1 || end == -1 {
		t.Fatalf("Could not find brackets in output: %q", line)
	}

	bar := line[start+1 : end]
	if len(bar) != 20 {
		t.Errorf("Progress bar width should be 20, got %d: %q", len(bar), bar)
	}
	if !strings.Contains(bar, "=>") {
		t.Errorf("half-full bar should show a head, got %q", bar)
	}
}

func TestProgressBar_Concurrent(t *testing.T) {
	p := NewProgress(1000, "Concurrent test")
	p.SetWriter(&bytes.Buffer{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Increment()
			}
		}()
	}
	wg.Wait()

	if line := p.line(); !strings.Contains(line, "100%") {
		t.Errorf("After concurrent increments, should be at 100%%, got: %q", line)
	}
}

func TestSpinner_NonTTYPrintsMessageOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Waiting for monitor")
	s.SetWriter(buf)

	s.Start()
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if got := buf.String(); got != "Waiting for monitor...\n" {
		t.Errorf("non-terminal spinner output = %q", got)
	}
}

func TestSpinner_StartStop(t *testing.T) {
	s := NewSpinner("Test")
	s.SetWriter(&bytes.Buffer{})

	s.Start()
	if !s.running {
		t.Error("Spinner should be running after Start()")
	}

	s.Stop()
	if s.running {
		t.Error("Spinner should not be running after Stop()")
	}

	// Multiple stops should not panic
	s.Stop()
	s.Stop()
}

func TestSpinner_StopWithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Working")
	s.SetWriter(buf)

	s.Start()
	s.StopWithMessage("Done!")

	if !strings.HasSuffix(buf.String(), "Done!\n") {
		t.Errorf("Spinner should end with final message, got: %q", buf.String())
	}
}

func TestSpinner_Text(t *testing.T) {
	s := NewSpinner("Stopping")
	if got := s.text(); got != "Stopping" {
		t.Errorf("untimed text = %q", got)
	}

	s.WithTimeout(30 * time.Second)
	s.startedAt = time.Now()
	if got := s.text(); !strings.Contains(got, "remaining") {
		t.Errorf("timed text = %q, want remaining time", got)
	}

	s.WithTimeout(0)
	if got := s.text(); !strings.Contains(got, "elapsed") {
		t.Errorf("elapsed text = %q, want elapsed time", got)
	}
}

func TestSpinner_Concurrent(t *testing.T) {
	s := NewSpinner("Concurrent spinner")
	s.SetWriter(&bytes.Buffer{})
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.UpdateMessage("Message from goroutine")
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	s.Stop()
}

func BenchmarkProgressBar_Increment(b *testing.B) {
	p := NewProgress(b.N, "Benchmark")
	p.SetWriter(&bytes.Buffer{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Increment()
	}
}

func BenchmarkFormatRelativeTime(b *testing.B) {
	times := []time.Time{
		time.Now().Add(-30 * time.Second),
		time.Now().Add(-5 * time.Minute),
		time.Now().Add(-2 * time.Hour),
		time.Now().Add(-3 * 24 * time.Hour),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		formatRelativeTime(times[i%len(times)])
	}
}
