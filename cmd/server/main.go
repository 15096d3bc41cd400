package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/pgparser/internal/api"
	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/config"
	"github.com/gyaneshwarpardhi/pgparser/internal/engine"
	"github.com/gyaneshwarpardhi/pgparser/internal/logging"
	"github.com/gyaneshwarpardhi/pgparser/internal/metrics"
)

// catalogs owns the currently opened catalog backends and their watcher.
type catalogs struct {
	mu        sync.Mutex
	opened    *catalog.Opened
	stopWatch func()
	logger    *slog.Logger
}

// open replaces the current backends with freshly opened ones built from conf.
// onDirChange is invoked with the new chain after each directory reload.
func (c *catalogs) open(ctx context.Context, conf config.CatalogConf, onDirChange func(catalog.Catalog)) (*catalog.Opened, error) {
	opened, err := catalog.Open(ctx, catalog.Sources{
		ProcessesDir:   conf.ProcessesDir,
		CollectionsDir: conf.CollectionsDir,
		SQLiteDSN:      conf.SQLiteDSN,
		RemoteURL:      conf.RemoteURL,
	}, c.logger)
	if err != nil {
		return nil, err
	}

	var stop func()
	if conf.Watch && opened.Dir != nil {
		opened.Dir.OnChange(func(*catalog.Store) { onDirChange(opened) })
		if stop, err = opened.Dir.Watch(); err != nil {
			c.logger.Warn("catalog watcher unavailable (hot-reload disabled)", "err", err)
			stop = nil
		}
	}

	c.mu.Lock()
	prev, prevStop := c.opened, c.stopWatch
	c.opened, c.stopWatch = opened, stop
	c.mu.Unlock()
	if prevStop != nil {
		prevStop()
	}
	if prev != nil {
		_ = prev.Close()
	}
	return opened, nil
}

func (c *catalogs) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopWatch != nil {
		c.stopWatch()
	}
	if c.opened != nil {
		_ = c.opened.Close()
	}
}

func main() {
	cfgPath := flag.String("config", "configs/pgparser.yaml", "Path to service YAML config")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath, slog.Default())
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Catalog + engine ──────────────────────────────────────────────────────
	cats := &catalogs{logger: logger}
	defer cats.close()

	var eng *engine.Engine
	swap := func(cat catalog.Catalog) {
		eng.SwapCatalog(cat)
		metrics.CatalogReloads.WithLabelValues("ok").Inc()
		slog.Info("catalog swapped", "processes", len(cat.ProcessIDs()))
	}

	opened, err := cats.open(ctx, cfg.Catalog, swap)
	if err != nil {
		slog.Error("failed to open catalog", "err", err)
		os.Exit(1)
	}
	eng = engine.New(ctx, opened, cfg.Engine, logger)
	eng.SetParameters(cfg.Parameters)
	slog.Info("engine started", "workers", cfg.Engine.Workers, "queue_depth", cfg.Engine.QueueDepth)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		eng.SetParameters(newCfg.Parameters)
		if newCfg.Catalog == cfg.Catalog {
			slog.Info("config reloaded", "parameters", len(newCfg.Parameters))
			return
		}
		reopened, err := cats.open(ctx, newCfg.Catalog, swap)
		if err != nil {
			metrics.CatalogReloads.WithLabelValues("error").Inc()
			slog.Warn("hot-reload skipped: catalog open failed", "err", err)
			return
		}
		cfg = newCfg
		swap(reopened)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	reload := func(ctx context.Context) (catalog.Catalog, error) {
		return cats.open(ctx, loader.Config().Catalog, swap)
	}
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(eng, reload, logger),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel()
	eng.Shutdown()
	slog.Info("goodbye")
}
