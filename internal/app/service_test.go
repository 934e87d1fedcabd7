package app

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/burnwatch/internal/activewindow"
	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/blackwell-systems/burnwatch/internal/input"
	"github.com/blackwell-systems/burnwatch/internal/publish"
)

// freeAddr returns a loopback address nothing is listening on.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestService_RunServesAndPublishes(t *testing.T) {
	isolate(t)
	mr := miniredis.RunT(t)
	t.Setenv("BURNWATCH_LISTEN_ADDR", freeAddr(t))
	t.Setenv("BURNWATCH_REDIS_ADDR", mr.Addr())

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := input.NewSimulated()
	svc, err := newService(ctx, cfg, log, serviceOptions{
		Input:  sim,
		Lookup: activewindow.Static("editor"),
	})
	if err != nil {
		t.Fatalf("newService() failed: %v", err)
	}
	defer svc.close()

	if svc.publishers.Len() != 1 {
		t.Fatalf("expected the redis sink to be connected, got %d sinks", svc.publishers.Len())
	}

	done := make(chan error, 1)
	go func() { done <- svc.run(ctx, "") }()

	client := newAPIClient(dashboardURL(cfg))
	waitFor(t, "the dashboard", func() bool {
		var health healthResponse
		return client.get(ctx, "/health", &health) == nil
	})
	waitFor(t, "the simulated source to register", sim.Registered)

	sim.Click()
	sim.KeyPress()

	var snap activity.Snapshot
	waitFor(t, "a snapshot", func() bool {
		return client.get(ctx, "/api/current_metrics", &snap) == nil && !snap.TakenAt.IsZero()
	})
	if snap.ActiveApp != "editor" {
		t.Errorf("expected active app 'editor', got %q", snap.ActiveApp)
	}

	waitFor(t, "the redis publish", func() bool {
		return mr.Exists(publish.CurrentKey)
	})

	var br breakResponse
	if err := client.post(ctx, "/api/break", &br); err != nil {
		t.Fatalf("POST /api/break failed: %v", err)
	}
	if br.LastBreak.IsZero() {
		t.Error("expected the break time to be returned")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestConnectPublishers_UnreachableRedisIsSkipped(t *testing.T) {
	isolate(t)
	t.Setenv("BURNWATCH_REDIS_ADDR", freeAddr(t))
	t.Setenv("BURNWATCH_REDIS_MAX_RETRIES", "0")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	sinks := connectPublishers(context.Background(), cfg, log)
	defer sinks.Close()

	if sinks.Len() != 0 {
		t.Errorf("expected no sinks, got %d", sinks.Len())
	}
}
