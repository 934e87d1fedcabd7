package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "burnwatch"

// newRegistry exposes the current snapshot as gauges and the monitor loop
// counters as counters. Values are read at scrape time.
func newRegistry(src Source, hub *Hub) *prometheus.Registry {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, fn)
	}
	counter := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, fn)
	}

	registry.MustRegister(
		gauge("clicks", "Mouse clicks counted this session.", func() float64 {
			return float64(src.CurrentOrPending().Clicks)
		}),
		gauge("key_presses", "Key presses counted this session.", func() float64 {
			return float64(src.CurrentOrPending().KeyPresses)
		}),
		gauge("screen_time_minutes", "Minutes since the session started.", func() float64 {
			return src.CurrentOrPending().ScreenTimeMinutes
		}),
		gauge("risk_score", "Current burnout risk (0 unknown, 1 low, 2 medium, 3 high).", func() float64 {
			return float64(src.CurrentOrPending().RiskLevel.Score())
		}),
		gauge("minutes_since_break", "Minutes since the last recorded break.", func() float64 {
			return src.MinutesSinceBreak()
		}),
		counter("ticks_total", "Metrics updates published.", func() float64 {
			return float64(src.Stats().Ticks)
		}),
		counter("tick_failures_total", "Metrics updates that failed.", func() float64 {
			return float64(src.Stats().TickFailures)
		}),
		counter("persist_failures_total", "Snapshot saves that failed.", func() float64 {
			return float64(src.Stats().PersistFailures)
		}),
	)

	if hub != nil {
		registry.MustRegister(gauge("websocket_clients", "Connected websocket clients.", func() float64 {
			return float64(hub.Clients())
		}))
	}

	return registry
}
