package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/topicradar/topicradar/internal/aggregate"
	"github.com/topicradar/topicradar/internal/cache"
	"github.com/topicradar/topicradar/internal/config"
	"github.com/topicradar/topicradar/internal/fetch"
	"github.com/topicradar/topicradar/internal/gemini"
	"github.com/topicradar/topicradar/internal/identity"
	"github.com/topicradar/topicradar/internal/logger"
	"github.com/topicradar/topicradar/internal/metrics"
	"github.com/topicradar/topicradar/internal/ratelimit"
	"github.com/topicradar/topicradar/internal/refresh"
	"github.com/topicradar/topicradar/internal/scheduler"
	"github.com/topicradar/topicradar/internal/store"
	"github.com/topicradar/topicradar/internal/summary"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources, err := fetch.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		logger.Error("loading sources failed", "error", err)
		os.Exit(1)
	}

	fetcher := fetch.New(cfg.Location, cfg.FetchTimeout)

	var limiter *ratelimit.Limiter
	if cfg.MaxAIRequests > 0 {
		limiter = ratelimit.New(cfg.MaxAIRequests, 0)
	}

	translator, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		Timeout:        cfg.TranslateTimeout,
		KeywordTimeout: cfg.KeywordGenTimeout,
		Retries:        cfg.TranslateRetries,
		Backoff:        cfg.TranslateBackoff,
		Limiter:        limiter,
	})
	if err != nil {
		logger.Error("creating Gemini client failed", "error", err)
		os.Exit(1)
	}
	defer translator.Close()

	summarizer := summary.NewGenerator(cfg.PerplexityAPIKey, cfg.PerplexityModel, cfg.SummaryTimeout)

	var st store.Store
	if cfg.MultiTenant() {
		ps, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			logger.Error("connecting to postgres failed", "error", err)
			os.Exit(1)
		}
		defer ps.Close()
		st = ps
		logger.Info("running in multi-tenant mode")
	} else {
		fs, err := store.NewFileStore(cfg.TopicsFile, cfg.SnapshotFile)
		if err != nil {
			logger.Error("opening file store failed", "error", err)
			os.Exit(1)
		}
		st = fs
		logger.Info("running in single-tenant mode", "topics", cfg.TopicsFile)
	}

	var provider identity.Provider
	if cfg.MultiTenant() {
		provider = identity.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey)
	} else {
		provider = identity.Static{Info: identity.TenantInfo{ID: cache.LocalTenant, Role: "admin"}}
	}

	tenantCache := cache.New(cfg.StrictStaleness, cfg.RoutineStaleness)
	agg := aggregate.New(fetcher, translator, sources, cfg.SearchLimit)
	orch := refresh.New(fetcher, sources, agg, summarizer, translator, st, tenantCache, cfg.ItemsPerSource)
	tenantCache.SetLoader(orch)

	go startMonitoringServer(cfg.MonitoringPort, orch, tenantCache, provider)

	// Single-tenant mode warms the one tenant immediately; multi-tenant
	// entries load lazily on first access.
	if !cfg.MultiTenant() {
		tenantCache.EnsureFresh(ctx, cache.LocalTenant, true)
	}

	sched := scheduler.New(cfg.Location)
	sched.AddHourly("domestic-refresh", 0, func(ctx context.Context) {
		for _, tenantID := range tenantCache.TenantIDs() {
			orch.RefreshDomestic(ctx, tenantID)
		}
	})
	sched.AddHourly("international-refresh", 30, func(ctx context.Context) {
		for _, tenantID := range tenantCache.TenantIDs() {
			orch.RefreshInternational(ctx, tenantID)
		}
	})
	for _, t := range []struct{ hour, minute int }{{8, 0}, {18, 0}} {
		sched.AddDaily("summaries", t.hour, t.minute, func(ctx context.Context) {
			for _, tenantID := range tenantCache.TenantIDs() {
				orch.RefreshSummaries(ctx, tenantID)
			}
		})
	}

	logger.Info("scheduler started", "timezone", cfg.Timezone)
	sched.Run(ctx)
	logger.Info("shutting down")
}

func startMonitoringServer(port string, orch *refresh.Orchestrator, tc *cache.TenantCache, provider identity.Provider) {
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/stats", statsHandler)
	http.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orch.Status())
	})
	http.HandleFunc("/refresh", refreshHandler(tc, provider))

	logger.Info("monitoring server listening", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server failed", "error", err)
	}
}

// refreshHandler lets an authenticated caller request a strict-freshness
// check for their tenant. The rebuild, if one is needed, runs in the
// background; the response reports whether one was started.
func refreshHandler(tc *cache.TenantCache, provider identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		tenant, err := provider.Verify(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		started := tc.EnsureFresh(context.Background(), tenant.ID, true)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"started": started,
			"loading": tc.Loading(tenant.ID),
		})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if !stats["is_healthy"].(bool) {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_refresh_time"],
		"last_error": stats["last_error"],
	})
}

func statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Global.GetStats())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
