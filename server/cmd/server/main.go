package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reportdesk/reportdesk/server/internal/action"
	"github.com/reportdesk/reportdesk/server/internal/api"
	"github.com/reportdesk/reportdesk/server/internal/builtin"
	"github.com/reportdesk/reportdesk/server/internal/config"
	"github.com/reportdesk/reportdesk/server/internal/export"
	"github.com/reportdesk/reportdesk/server/internal/metrics"
	"github.com/reportdesk/reportdesk/server/internal/session"
	"github.com/reportdesk/reportdesk/server/internal/store"
	"github.com/reportdesk/reportdesk/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file; defaults are used when it does not exist")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("reportdesk-server starting", "config", *configPath)

	cfg, watch, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"prefix", cfg.Server.Prefix(),
		"report_dir", cfg.Server.ReportDir,
		"cache_capacity", cfg.Server.Cache.Capacity,
		"cache_ttl", cfg.Server.Cache.TTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if watch {
		go func() {
			err := config.Watch(ctx, *configPath, func(c *config.Config) {
				level.Set(c.Server.Level())
				slog.Info("log level updated", "level", c.Server.Level())
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	handler, hub, err := newHandler(cfg)
	if err != nil {
		slog.Error("failed to build handlers", "err", err)
		os.Exit(1)
	}
	go hub.Run(ctx)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort, "prefix", cfg.Server.Prefix())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("reportdesk-server shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

// loadConfig reads path, falling back to defaults when the file does not
// exist. watch reports whether the file is there to be watched.
func loadConfig(path string) (cfg *config.Config, watch bool, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		return config.Default(), false, nil
	}
	cfg, err = config.Load(path)
	return cfg, err == nil, err
}

// newHandler wires the session cache, the report engine, the export
// coordinator and all HTTP surfaces into one handler.
func newHandler(cfg *config.Config) (http.Handler, *ws.Hub, error) {
	sc := cfg.Server

	cache := store.New(sc.Cache.Capacity, sc.Cache.TTL)
	collector := metrics.New(func() (int, int) {
		st := cache.Stats()
		return st.Sessions, st.Entries
	})

	coord, err := export.New(
		builtin.NewLoader(sc.ReportDir),
		builtin.Builder{},
		cache,
		builtin.HTMLProducer{},
		builtin.WorkbookProducer{},
		builtin.SheetProducer{},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("export coordinator: %w", err)
	}
	coord.SetObserver(collector)

	legacy := sc.Download.LegacyFilenameEncoding
	router := action.NewRouter(sc.Prefix())
	if err := router.Register(
		action.NewExcelAction(coord, legacy),
		action.NewExcel97Action(coord, legacy),
		action.NewPDFAction(coord, legacy),
		action.NewWordAction(coord, legacy),
		action.NewPreviewAction(coord),
		action.NewDesignerAction(builtin.Parser{}, cache),
	); err != nil {
		return nil, nil, fmt.Errorf("register actions: %w", err)
	}

	hub := ws.New(api.Reporter{Cache: cache}, sc.Status.Interval)
	cache.OnEvict = func(entries, sessions int) {
		collector.ObserveEviction(entries, sessions)
		hub.Notify()
	}

	mux := http.NewServeMux()
	mux.Handle(sc.Prefix()+"/", session.Middleware(sc.Session.Cookie, router))
	mux.Handle("/api/", api.New(cache, coord))
	mux.Handle("/ws/status", hub)
	mux.Handle("/metrics", collector)
	return mux, hub, nil
}
