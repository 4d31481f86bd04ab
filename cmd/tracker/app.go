package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"code_tracker/internal/config"
	"code_tracker/internal/extractor"
	"code_tracker/internal/fetcher"
	"code_tracker/internal/metrics"
	"code_tracker/internal/notify"
	"code_tracker/internal/pipeline"
	"code_tracker/internal/registry"
	"code_tracker/internal/storage"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *registry.Registry
	store    *storage.SQLite
	hub      *notify.Hub
	pipeline *pipeline.Pipeline
	prom     *prometheus.Registry

	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel)
	a := &app{cfg: cfg, log: log}

	if a.registry, err = registry.Load(cfg.GamesFile); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	if a.store, err = storage.NewSQLite(cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	a.closers = append(a.closers, a.store.Close)

	for _, g := range a.registry.Games() {
		if err := a.store.EnsureGame(ctx, g); err != nil {
			a.Close()
			return nil, fmt.Errorf("prepare game %s: %w", g.ID, err)
		}
	}

	client, err := a.extractionClient(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	f := fetcher.New(&http.Client{})
	f.SetTimeout(cfg.FetchTimeout)
	source := fetcher.NewSource(f, cfg.RSSSource, log.With("component", "fetcher"))

	a.hub = notify.NewHub(log.With("component", "notify"))
	a.prom = prometheus.NewRegistry()
	a.prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ext := extractor.New(client, cfg.ExtractPerMinute, cfg.ExtractTimeout)
	a.pipeline = pipeline.New(a.registry, a.store, source, ext, a.hub, log.With("component", "pipeline"))
	a.pipeline.SetMetrics(metrics.NewCollector(a.prom))

	log.Info("initialised",
		"games", len(a.registry.Games()),
		"provider", cfg.ExtractorProvider,
		"rss_source", cfg.RSSSource,
		"database", cfg.DatabasePath,
	)
	return a, nil
}

func (a *app) extractionClient(ctx context.Context) (extractor.Client, error) {
	switch a.cfg.ExtractorProvider {
	case config.ProviderGemini:
		gc, err := extractor.NewGeminiClient(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gc.Close)
		return gc, nil
	default:
		return extractor.NewChatClient(&http.Client{}, a.cfg.DeepSeekAPIBase, a.cfg.DeepSeekAPIKey, a.cfg.DeepSeekModel), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	if a.hub != nil {
		a.hub.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", "error", err)
		}
	}
	a.closers = nil
}
