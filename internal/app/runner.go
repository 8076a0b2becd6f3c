package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samvad-hq/reqflow/internal/catalog"
	"github.com/samvad-hq/reqflow/internal/config"
	"github.com/samvad-hq/reqflow/internal/dispatch"
	"github.com/samvad-hq/reqflow/internal/logger"
	"github.com/samvad-hq/reqflow/internal/storage"
	"github.com/samvad-hq/reqflow/pkg/httpclient"
	"github.com/samvad-hq/reqflow/pkg/observers"
	"github.com/samvad-hq/reqflow/pkg/plugins"
	"github.com/samvad-hq/reqflow/pkg/publishers"
	"github.com/samvad-hq/reqflow/pkg/request"
	"golang.org/x/time/rate"
)

// Runner is the reqflow runtime. It replays the request catalog on an
// interval, wiring the engine to its observers, publishers, journal and
// metrics endpoint.
type Runner struct {
	cfg         *config.Config
	catalog     *catalog.Catalog
	engine      *request.Engine
	dispatcher  *dispatch.Service
	publishing  *observers.Publishing
	registry    *prometheus.Registry
	runInterval time.Duration
	log         logger.Logger
	journal     storage.Journal
	closeOnce   sync.Once
}

// NewRunner builds a runner from config files.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cat, err := catalog.Load(cfg.RequestsFile)
	if err != nil {
		return nil, fmt.Errorf("load requests catalog: %w", err)
	}
	ids := make([]string, 0, cat.Len())
	for _, d := range cat.All() {
		ids = append(ids, d.ID)
	}
	log.InfoObj("requests catalog loaded", "catalog_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	publishing, err := buildPublishing(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	journalOpts := storage.Options{
		EntryTTL:        cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	}
	journal, err := storage.NewJournal(cfg.JournalType, cfg.BBoltPath, journalOpts)
	if err != nil {
		_ = publishing.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	log.InfoObj("journal initialized", "journal_config", map[string]any{
		"type":                     cfg.JournalType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	registry := prometheus.NewRegistry()
	bus := plugins.New[*request.Event]()
	observers.RegisterAll(bus,
		observers.NewLogging(log),
		observers.NewMetricsWithRegistry(registry),
		observers.NewJournal(journal, log),
		publishing,
	)

	engine := request.New(
		request.WithTransport(httpclient.NewRestyTransport(cfg.HTTPTimeout)),
		request.WithPlugins(bus),
		request.WithDefaults(request.ChainDefaults(
			request.MethodDefault(cfg.DefaultMethod),
			request.HeaderDefaults(cfg.RequestHeaders()),
		)),
		request.WithLogger(log),
	)
	limiter := rate.NewLimiter(rate.Limit(cfg.DispatchRate), cfg.DispatchBurst)

	return &Runner{
		cfg:         cfg,
		catalog:     cat,
		engine:      engine,
		dispatcher:  dispatch.NewService(engine, limiter, log),
		publishing:  publishing,
		registry:    registry,
		runInterval: cfg.RunInterval,
		log:         log,
		journal:     journal,
	}, nil
}

func buildPublishing(ctx context.Context, cfg *config.Config, log logger.Logger) (*observers.Publishing, error) {
	if cfg.PublishersFile == "" {
		log.InfoObj("no publishers file configured; lifecycle events stay local", "publishers_file", "")
		return observers.NewPublishing(nil, log), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]any, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]any{
			"id":     pubCfg.ID,
			"type":   pubCfg.Type,
			"phases": pubCfg.Phases,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return observers.NewPublishing(observers.Subscriptions(enabled, pubClients), log), nil
}

// Engine exposes the configured engine.
func (r *Runner) Engine() *request.Engine { return r.engine }

// MetricsHandler serves the runner's Prometheus registry.
func (r *Runner) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Run starts the dispatch loop until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.dispatcher == nil {
		return fmt.Errorf("runner is not initialized")
	}
	defer r.close()

	if r.cfg.MetricsAddr != "" {
		srv := r.serveMetrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	defs := r.catalog.All()
	r.log.InfoObj("runner loop starting", "runner_state", map[string]any{
		"requests_count": len(defs),
		"run_interval":   r.runInterval.String(),
		"dispatch_rate":  r.cfg.DispatchRate,
	})

	if err := r.runOnce(ctx, defs); err != nil {
		r.log.ErrorObj("initial run failed", "error", err)
	}

	ticker := time.NewTicker(r.runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("runner loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx, defs); err != nil {
				r.log.ErrorObj("scheduled run failed", "error", err)
			}
		}
	}
}

// RunOnce dispatches the whole catalog a single time.
func (r *Runner) RunOnce(ctx context.Context) error {
	if r == nil || r.dispatcher == nil {
		return fmt.Errorf("runner is not initialized")
	}
	return r.runOnce(ctx, r.catalog.All())
}

func (r *Runner) runOnce(ctx context.Context, defs []catalog.Definition) error {
	start := time.Now()
	r.log.InfoObj("run started", "run_meta", map[string]any{
		"requests_count": len(defs),
		"started_at":     start.UTC(),
	})
	results, err := r.dispatcher.Run(ctx, defs)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.log.InfoObj("run completed", "run_meta", map[string]any{
		"requests_count": len(defs),
		"failed_count":   failed,
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
	return err
}

func (r *Runner) serveMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.MetricsHandler())
	srv := &http.Server{
		Addr:              r.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.ErrorObj("metrics server failed", "error", err)
		}
	}()
	r.log.InfoObj("metrics endpoint listening", "metrics_addr", r.cfg.MetricsAddr)
	return srv
}

// Close releases the journal and publishers. Run calls it on exit.
func (r *Runner) Close() {
	r.close()
}

func (r *Runner) close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(r.release)
}

func (r *Runner) release() {
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.log.ErrorObj("journal close failed", "error", err)
		}
	}
	if r.publishing != nil {
		if err := r.publishing.Close(); err != nil {
			r.log.ErrorObj("publishers close failed", "error", err)
		}
	}
}
