package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/taskboard/taskboard/server/internal/api"
	"github.com/taskboard/taskboard/server/internal/config"
	"github.com/taskboard/taskboard/server/internal/metrics"
	"github.com/taskboard/taskboard/server/internal/notify"
	"github.com/taskboard/taskboard/server/internal/store"
	"github.com/taskboard/taskboard/server/internal/tasks"
	"github.com/taskboard/taskboard/server/internal/web"
	"github.com/taskboard/taskboard/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file; empty uses built-in defaults")
	envFile := flag.String("env-file", ".env", "load environment variables from this file if it exists")
	flag.Parse()

	// Bootstrap logger until the configured one is installed.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to load env file", "path", *envFile, "err", err)
			os.Exit(1)
		}
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("taskboard-server starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"backend", cfg.Storage.Backend,
		"path", cfg.Storage.Path,
		"serialize_writes", cfg.Storage.SerializeWrites,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	reg := metrics.New()
	notifier := notify.New(cfg.Notify)

	// Hub is created before the service so the observer can reach it; it
	// only reads through the service once Run starts.
	var hub *ws.Hub
	svc := tasks.New(reg.InstrumentStore(st),
		tasks.WithSerializedWrites(cfg.Storage.SerializeWrites),
		tasks.WithObserver(func(ev tasks.Event) {
			hub.Notify()
			notifier.Publish(ev)
		}),
	)
	hub = ws.New(svc, cfg.WS.Interval)
	go hub.Run(ctx)

	// External edits to the task file reach WebSocket clients too. The
	// server's own saves are already announced by the observer.
	if fst, ok := st.(*store.FileStore); ok && cfg.Storage.Watch {
		go func() {
			if err := fst.Watch(ctx, hub.Notify); err != nil {
				slog.Warn("task file watcher stopped", "path", fst.Path(), "err", err)
			}
		}()
	}

	home := web.Handler(cfg.Server.StaticDir)
	mux := http.NewServeMux()
	mux.Handle("/", api.New(svc))
	mux.Handle(web.Prefix, home)
	mux.Handle(web.Prefix+"/", home)
	mux.Handle("/metrics", reg)
	mux.Handle("/ws/tasks", hub)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.Middleware(mux, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("taskboard-server shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	notifier.Wait()
}

// newLogger builds the default slog logger from the log config.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// openStore returns the configured backend and a func that releases it.
func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemory(), func() {}, nil
	case config.BackendSQLite:
		db, err := store.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() {
			if err := db.Close(); err != nil {
				slog.Warn("failed to close sqlite store", "err", err)
			}
		}, nil
	default:
		return store.NewFile(cfg.Path), func() {}, nil
	}
}
