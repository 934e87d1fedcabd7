// Package monitor runs the burnwatch metrics pipeline.
//
// Input callbacks feed an activity counter. Every update interval the
// Monitor reads the counter, resolves the active application, appends a
// snapshot to the in-memory history, scores it with the risk analyzer, and
// publishes the result to the shared state cell and any configured sinks.
// Every persist interval the latest snapshot is written to disk and to the
// archive.
//
// Key features:
//   - Single aggregation goroutine; readers never block it
//   - Tick failures are recovered and retried after a short backoff
//   - Final persist on shutdown, bounded stop timeout
//   - Daemon mode support with PID file management
//
// Example usage:
//
//	m, err := monitor.New(monitor.Options{
//		Input:     input.NewEvdev(nil, log),
//		Lookup:    activewindow.Default(),
//		Persister: snapshots.New(dir, snapshots.Options{}),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := m.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer m.Stop()
package monitor
