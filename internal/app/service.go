package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/burnwatch/internal/activewindow"
	"github.com/blackwell-systems/burnwatch/internal/analyzer"
	"github.com/blackwell-systems/burnwatch/internal/config"
	"github.com/blackwell-systems/burnwatch/internal/dashboard"
	"github.com/blackwell-systems/burnwatch/internal/input"
	"github.com/blackwell-systems/burnwatch/internal/monitor"
	"github.com/blackwell-systems/burnwatch/internal/publish"
	"github.com/blackwell-systems/burnwatch/internal/snapshots"
	"github.com/blackwell-systems/burnwatch/internal/store"
)

// shutdownTimeout bounds the dashboard's graceful shutdown.
const shutdownTimeout = 5 * time.Second

// service is a fully wired monitor with its dashboard and sinks.
type service struct {
	cfg        *config.Config
	log        logrus.FieldLogger
	monitor    *monitor.Monitor
	hub        *dashboard.Hub
	server     *dashboard.Server
	archive    *store.Store
	publishers *publish.Multi
}

// serviceOptions overrides the platform defaults, mainly for tests.
type serviceOptions struct {
	Input  input.Source
	Lookup activewindow.Lookup
}

// newService opens the archive, connects the optional sinks and builds the
// monitor and dashboard. Nothing runs until run is called.
func newService(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts serviceOptions) (*service, error) {
	if opts.Input == nil {
		opts.Input = input.NewEvdev(cfg.InputDevices, log)
	}
	if opts.Lookup == nil {
		opts.Lookup = activewindow.Default()
	}

	archive, err := store.New(getDBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := archive.CreateSchema(); err != nil {
		archive.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}

	dir, err := config.Dir()
	if err != nil {
		archive.Close()
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	aliases, err := config.LoadAppAliases(dir)
	if err != nil {
		log.Warnf("failed to load app aliases: %v", err)
	}

	hub := dashboard.NewHub(log)
	sinks := connectPublishers(ctx, cfg, log)

	monitorPublishers := []monitor.Publisher{hub}
	if sinks.Len() > 0 {
		monitorPublishers = append(monitorPublishers, sinks)
	}

	m, err := monitor.New(monitor.Options{
		Input:            opts.Input,
		Lookup:           opts.Lookup,
		Apps:             aliases,
		Thresholds:       cfg.Thresholds(),
		Persister:        snapshots.New(getSnapshotDir(cfg), snapshots.Options{Retention: cfg.FileRetention(), Logger: log}),
		Archive:          archive,
		Publishers:       monitorPublishers,
		Logger:           log,
		Interval:         cfg.UpdateInterval(),
		PersistInterval:  cfg.PersistInterval(),
		HistoryRetention: cfg.HistoryRetention(),
		ArchiveRetention: time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour,
	})
	if err != nil {
		sinks.Close()
		archive.Close()
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}

	return &service{
		cfg:        cfg,
		log:        log,
		monitor:    m,
		hub:        hub,
		server:     dashboard.New(cfg.ListenAddr, m, dashboard.Options{Hub: hub, Logger: log}),
		archive:    archive,
		publishers: sinks,
	}, nil
}

// connectPublishers builds the configured sinks. A sink that cannot be
// reached is logged and left out.
func connectPublishers(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) *publish.Multi {
	var sinks []publish.Publisher

	if cfg.RedisAddr != "" {
		r, err := publish.ConnectRedis(ctx, publish.RedisOptions{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			TTL:        cfg.RedisTTL(),
			MaxRetries: uint64(cfg.RedisMaxRetries),
		}, log)
		if err != nil {
			log.Warnf("redis publishing disabled: %v", err)
		} else {
			sinks = append(sinks, r)
		}
	}

	if cfg.ElasticsearchURL != "" {
		e, err := publish.NewElasticPublisher(cfg.ElasticsearchURL, cfg.ElasticsearchIndex)
		if err != nil {
			log.Warnf("elasticsearch publishing disabled: %v", err)
		} else {
			sinks = append(sinks, e)
			log.Infof("indexing snapshots into %s/%s", cfg.ElasticsearchURL, cfg.ElasticsearchIndex)
		}
	}

	return publish.NewMulti(log, sinks...)
}

// run starts every component and blocks until a signal or ctx ends the
// monitor, then shuts the dashboard down. pidFile is removed on exit when
// set.
func (s *service) run(ctx context.Context, pidFile string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.server.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("%v", err)
		}
	}()

	go s.hub.Run(ctx)

	if err := s.cfg.WatchThresholds(ctx, s.log, func(t analyzer.Thresholds) {
		if err := s.monitor.SetThresholds(t); err != nil {
			s.log.Warnf("failed to apply thresholds: %v", err)
		}
	}); err != nil {
		s.log.Warnf("thresholds file will not be reloaded: %v", err)
	}

	return s.monitor.RunDaemon(ctx, pidFile)
}

// close releases the archive and the sinks.
func (s *service) close() error {
	return errors.Join(s.publishers.Close(), s.archive.Close())
}

// simulateActivity drives src with a plausible stream of clicks and key
// presses until ctx is done.
func simulateActivity(ctx context.Context, src *input.Simulated) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := rand.Intn(3); i > 0; i-- {
				src.Click()
			}
			for i := rand.Intn(8); i > 0; i-- {
				src.KeyPress()
			}
		}
	}
}
