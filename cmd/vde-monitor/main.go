package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/yuki-yano/vde-monitor/internal/command"
	"github.com/yuki-yano/vde-monitor/internal/config"
	"github.com/yuki-yano/vde-monitor/internal/coordinator"
	"github.com/yuki-yano/vde-monitor/internal/global"
	"github.com/yuki-yano/vde-monitor/internal/httpapi"
	"github.com/yuki-yano/vde-monitor/internal/lifecycle"
	"github.com/yuki-yano/vde-monitor/internal/logging"
	"github.com/yuki-yano/vde-monitor/internal/session"
	"github.com/yuki-yano/vde-monitor/internal/snapshotdb"
	"github.com/yuki-yano/vde-monitor/internal/timeline"
	"github.com/yuki-yano/vde-monitor/internal/upstream"
)

var version = "dev"

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig:   config.LoadConfig,
		RunServe:     runServe,
		RunMigrateUp: runMigrateUp,
		RunExport:    runExport,
	})
	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logger := logging.NewLogger(logging.Options{Component: "vde-monitor"})
		logger.Error("exited with error", "error", err)
		os.Exit(1)
	}
}

// mergeGlobalConfig fills env-config gaps from ~/.config/vde-monitor/config.toml.
func mergeGlobalConfig(cfg config.Config) config.Config {
	dir, err := global.DefaultConfigDir()
	if err != nil {
		return cfg
	}
	stored, err := global.NewConfigStore(dir).LoadOrInit()
	if err != nil {
		return cfg
	}
	if os.Getenv("VDE_MONITOR_UPSTREAM_BASE_URL") == "" && stored.Upstream.BaseURL != "" {
		cfg.UpstreamBaseURL = stored.Upstream.BaseURL
	}
	if cfg.UpstreamToken == "" {
		cfg.UpstreamToken = stored.Upstream.Token
	}
	if os.Getenv("VDE_MONITOR_LOCAL_PORT") == "" && stored.LocalPort > 0 {
		cfg.LocalPort = stored.LocalPort
	}
	if os.Getenv("VDE_MONITOR_RETENTION_DAYS") == "" && stored.Timeline.RetentionDays > 0 {
		cfg.RetentionDays = stored.Timeline.RetentionDays
	}
	if os.Getenv("VDE_MONITOR_MAX_ITEMS_PER_PANE") == "" && stored.Timeline.MaxItemsPerPane > 0 {
		cfg.MaxItemsPerPane = stored.Timeline.MaxItemsPerPane
	}
	return cfg
}

func newTimelineStore(cfg config.Config) *timeline.Store {
	return timeline.NewStore(timeline.Options{
		RetentionMS:     int64(cfg.RetentionDays) * 24 * int64(time.Hour/time.Millisecond),
		MaxItemsPerPane: cfg.MaxItemsPerPane,
	})
}

func runServe(ctx context.Context, cfg config.Config) error {
	cfg = mergeGlobalConfig(cfg)
	logger := logging.NewLogger(logging.Options{Level: cfg.ListenLogLevel, Component: "vde-monitor"})
	logger.Info("starting", "version", version, "addr", net.JoinHostPort(cfg.LocalHost, strconv.Itoa(cfg.LocalPort)))

	db, err := snapshotdb.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open snapshot db: %w", err)
	}

	store := newTimelineStore(cfg)
	persisted, err := db.Load()
	if err != nil {
		logger.Warn("snapshot load failed, starting empty", "error", err)
	} else {
		store.Restore(persisted)
	}

	registry := session.NewRegistry()
	conn := session.NewConnState(cfg.UpstreamToken)

	client := upstream.NewClient(upstream.Options{
		BaseURL: cfg.UpstreamBaseURL,
		Token:   conn.Token,
		Logger:  logger.With("component", "upstream"),
	})
	coord := coordinator.New(client, nil, coordinator.Hooks{
		OnAuthBlocked:     conn.MarkAuthBlocked,
		OnRateLimited:     conn.MarkRateLimited,
		OnConnectionIssue: func(error) { conn.MarkConnectionIssue() },
		OnSessionRemoved: func(paneID string) {
			registry.Remove(paneID)
			store.ClosePane(paneID, 0)
		},
	}, logger.With("component", "coordinator"))

	poller := session.NewPoller(coordinator.NewRegistryRefresher(coord, registry), conn, logger.With("component", "poller"))
	poller.SetInterval(time.Duration(cfg.PollIntervalMS) * time.Millisecond)

	api := httpapi.NewServer(httpapi.Deps{
		Store:     store,
		Registry:  registry,
		Conn:      conn,
		Commander: coord,
		AuthToken: cfg.APIToken,
		Logger:    logger.With("component", "httpapi"),
	})
	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.LocalHost, strconv.Itoa(cfg.LocalPort)),
		Handler: api.Handler(),
	}

	saver := snapshotdb.NewSaver(db, store, time.Duration(cfg.SnapshotIntervalMS)*time.Millisecond, logger.With("component", "snapshot"))

	mgr := lifecycle.NewManager()
	mgr.AddRun("http", func(runCtx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		select {
		case <-runCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
			return nil
		case err := <-errCh:
			return err
		}
	})
	mgr.AddRun("poller", func(runCtx context.Context) error {
		poller.Run(runCtx)
		return nil
	})
	mgr.AddRun("snapshot", saver.Run)
	mgr.AddShutdown("close-db", func(context.Context) error {
		return db.Close()
	})

	return mgr.StartAndWait(ctx, os.Interrupt, syscall.SIGTERM)
}

func runMigrateUp(_ context.Context, cfg config.Config) error {
	cfg = mergeGlobalConfig(cfg)
	db, err := snapshotdb.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open snapshot db: %w", err)
	}
	return db.Close()
}

// runExport prints the clipped per-pane timelines from the persisted
// snapshot, without touching a running server.
func runExport(_ context.Context, cfg config.Config, rangeTag string) error {
	cfg = mergeGlobalConfig(cfg)
	db, err := snapshotdb.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open snapshot db: %w", err)
	}
	defer func() { _ = db.Close() }()

	persisted, err := db.Load()
	if err != nil {
		return err
	}
	store := newTimelineStore(cfg)
	store.Restore(persisted)

	out := map[string]timeline.Timeline{}
	for paneID := range persisted {
		out[paneID] = store.GetTimeline(timeline.TimelineQuery{PaneID: paneID, Range: rangeTag})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
