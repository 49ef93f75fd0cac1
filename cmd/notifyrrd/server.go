package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	v1 "github.com/notifyrr/notifyrr/internal/api/v1"
	"github.com/notifyrr/notifyrr/internal/catalog"
	"github.com/notifyrr/notifyrr/internal/config"
	"github.com/notifyrr/notifyrr/internal/discord"
	"github.com/notifyrr/notifyrr/internal/events"
	"github.com/notifyrr/notifyrr/internal/history"
	"github.com/notifyrr/notifyrr/internal/imagerelay"
	"github.com/notifyrr/notifyrr/internal/metrics"
	"github.com/notifyrr/notifyrr/internal/migrations"
	"github.com/notifyrr/notifyrr/internal/notify"
)

// pruneRetention bounds how long delivered-message history and logged
// events are kept.
const pruneRetention = 30 * 24 * time.Hour

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func runServer(configPath string) error {
	if configPath == "" {
		discovered, err := config.Discover()
		if err != nil {
			return err
		}
		configPath = discovered
	}

	manager, err := config.NewManager(configPath, slog.Default())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg := manager.Current()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// === Stores ===
	eventLog := events.NewEventLog(db)
	historyStore := history.NewStore(db)

	// === Event bus ===
	bus := events.NewBus(eventLog, logger)
	defer func() { _ = bus.Close() }()

	// === Clients ===
	catalogClient := catalog.NewJellyfinClient(cfg.Catalog.URL, cfg.Catalog.APIKey)
	discordClient := discord.NewClient()

	var uploader notify.ImageUploader
	if cfg.ImageRelay.Enabled {
		var relayOpts []imagerelay.Option
		if cfg.ImageRelay.Endpoint != "" {
			relayOpts = append(relayOpts, imagerelay.WithEndpoint(cfg.ImageRelay.Endpoint))
		}
		uploader = imagerelay.NewClient(relayOpts...)
	}

	// === Metrics ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.New(registry)

	// === Notification pipeline ===
	notifier := notify.New(notify.Deps{
		Bus:     bus,
		Catalog: catalogClient,
		Source:  manager,
		Sender:  discordClient,
		Builder: notify.NewBuilder(uploader, logger),
		History: historyStore,
		Metrics: pipelineMetrics,
		Logger:  logger,
	}, notify.Config{
		RecheckInterval: cfg.Notifications.RecheckInterval.Duration,
		SendInterval:    cfg.Notifications.SendInterval.Duration,
		MaxRetries:      cfg.Notifications.MaxRetries,
		FallbackFactor:  cfg.Notifications.FallbackFactor,
	})

	metrics.RegisterPipelineGauges(registry,
		func() float64 { return float64(notifier.PendingCount()) },
		func() float64 { return float64(notifier.QueueDepth()) },
	)

	// === HTTP Setup ===
	mux := http.NewServeMux()

	apiV1, err := v1.New(v1.ServerDeps{
		Notifier: notifier,
		Bus:      bus,
		Source:   manager,
		History:  historyStore,
		EventLog: eventLog,
	}, logger)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	apiV1.RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting",
		"addr", addr,
		"database", cfg.Database.Path,
		"catalog", cfg.Catalog.URL,
		"subscribers", len(cfg.Subscribers),
		"imagerelay", uploader != nil,
		"log_level", cfg.Server.LogLevel,
	)

	srv := &http.Server{Addr: addr, Handler: logRequests(mux, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return notifier.Start(ctx) })
	g.Go(func() error { return manager.Watch(ctx) })
	g.Go(func() error {
		runPruner(ctx, eventLog, historyStore, logger.With("component", "pruner"))
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// runPruner trims old events and delivery history once a day.
func runPruner(ctx context.Context, eventLog *events.EventLog, historyStore *history.Store, log *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := eventLog.Prune(pruneRetention); err != nil {
				log.Error("event prune failed", "error", err)
			} else if n > 0 {
				log.Info("pruned events", "count", n)
			}
			if n, err := historyStore.Prune(pruneRetention); err != nil {
				log.Error("history prune failed", "error", err)
			} else if n > 0 {
				log.Info("pruned history", "count", n)
			}
		}
	}
}
