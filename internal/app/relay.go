package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Adda-Baaj/reimbursement-client/internal/config"
	"github.com/Adda-Baaj/reimbursement-client/internal/logger"
	"github.com/Adda-Baaj/reimbursement-client/internal/relay"
	"github.com/Adda-Baaj/reimbursement-client/internal/storage"
	"github.com/Adda-Baaj/reimbursement-client/pkg/httpclient"
	"github.com/Adda-Baaj/reimbursement-client/pkg/metrics"
	"github.com/Adda-Baaj/reimbursement-client/pkg/publishers"
	"github.com/Adda-Baaj/reimbursement-client/pkg/reimbursement"
)

const metricsShutdownTimeout = 5 * time.Second

// Relay is the relay runtime. It owns the poll loop, the publisher fanout,
// the dedupe store and the optional metrics endpoint.
type Relay struct {
	cfg        *config.Config
	fanout     *publishers.Fanout
	service    *relay.Service
	interval   time.Duration
	log        logger.Logger
	store      storage.Store
	metrics    *metrics.Manager
	metricsSrv *http.Server
}

// NewRelay builds a relay runtime from config files.
func NewRelay(ctx context.Context, cfg *config.Config, log logger.Logger) (*Relay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := reimbursement.New(cfg.APIOrigin, httpclient.NewRestyClient(cfg.RequestTimeout), log)
	if err != nil {
		return nil, fmt.Errorf("init reimbursement client: %w", err)
	}

	sources, err := relay.NewSources(cfg.RelaySources, client)
	if err != nil {
		return nil, fmt.Errorf("init relay sources: %w", err)
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.DefaultRegistry().BuildAll(ctx, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]any, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]any{
			"id":    pubCfg.ID,
			"type":  pubCfg.Type,
			"kinds": pubCfg.Kinds,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})
	for _, src := range sources {
		if fanout.Routes(src.Kind()) == 0 {
			log.WarnObj("relay source has no publisher routes", "source_routes", map[string]any{
				"source": src.Name(),
				"kind":   src.Kind(),
			})
		}
	}

	store, err := storage.NewStore(cfg.StorageType, storage.Options{
		Path:            cfg.BBoltPath,
		ItemTTL:         cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"item_ttl_seconds":         int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	m := metrics.NewManager()
	r := &Relay{
		cfg:      cfg,
		fanout:   fanout,
		service:  relay.NewService(client.Origin(), sources, fanout, store, m, log),
		interval: cfg.RelayInterval,
		log:      log,
		store:    store,
		metrics:  m,
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		r.metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return r, nil
}

// Run starts the relay loop until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r == nil || r.service == nil {
		return fmt.Errorf("relay is not initialized")
	}
	defer r.close()

	r.serveMetrics(ctx)

	r.log.InfoObj("relay loop starting", "relay_state", map[string]any{
		"api_origin":       r.cfg.APIOrigin,
		"sources":          r.cfg.RelaySources,
		"publishers_count": r.fanout.Size(),
		"relay_interval":   r.interval.String(),
	})

	if err := r.runOnce(ctx); err != nil {
		r.log.ErrorObj("initial relay pass failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("relay loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx); err != nil {
				r.log.ErrorObj("scheduled relay pass failed", "error", err)
			}
		}
	}
}

// runOnce performs a single relay pass across all sources.
func (r *Relay) runOnce(ctx context.Context) error {
	start := time.Now()
	r.log.InfoObj("relay pass started", "relay_meta", map[string]any{
		"sources":    r.cfg.RelaySources,
		"started_at": start.UTC(),
	})
	if err := r.service.Run(ctx); err != nil {
		return err
	}
	r.log.InfoObj("relay pass completed", "relay_meta", map[string]any{
		"sources":    r.cfg.RelaySources,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (r *Relay) serveMetrics(ctx context.Context) {
	if r.metricsSrv == nil {
		return
	}
	srv := r.metricsSrv
	go func() {
		r.log.InfoObj("metrics endpoint listening", "metrics_addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.ErrorObj("metrics endpoint failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// close releases publishers and the storage backend, logging any errors encountered.
func (r *Relay) close() {
	if r.fanout != nil {
		if err := r.fanout.Close(); err != nil {
			r.log.ErrorObj("publishers close failed", "error", err)
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
