// Package cache holds the in-memory per-tenant result sets served to
// clients. Persistence hydrates it on demand; the refresh pipeline writes
// through it.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/topicradar/topicradar/internal/logger"
	"github.com/topicradar/topicradar/internal/model"
	"github.com/topicradar/topicradar/internal/store"
)

// LocalTenant is the fixed tenant key used in single-tenant mode. The cache
// has exactly one entry map either way.
const LocalTenant = "local"

// Loader rebuilds a tenant's entry from persistence and live sources. It is
// expected to call back into the cache to publish results.
type Loader interface {
	LoadTenant(ctx context.Context, tenantID string)
}

// Entry is one tenant's cached state. Result maps are keyed by topic id.
type Entry struct {
	Domestic      map[string][]model.NewsItem
	International map[string][]model.NewsItem
	Summaries     map[string]model.SummaryRecord
	LastUpdate    time.Time

	// loading guards against concurrent rebuilds of the same tenant.
	loading bool
}

func newEntry() *Entry {
	return &Entry{
		Domestic:      make(map[string][]model.NewsItem),
		International: make(map[string][]model.NewsItem),
		Summaries:     make(map[string]model.SummaryRecord),
	}
}

// TenantCache is the shared cache. All access goes through the mutex; the
// maps handed out by getters are copies, so callers never see concurrent
// mutation.
type TenantCache struct {
	mu      sync.RWMutex
	tenants map[string]*Entry

	strict  time.Duration
	routine time.Duration
	loader  Loader
}

// New creates an empty cache. strict and routine are the staleness
// thresholds for interactive and background reads respectively.
func New(strict, routine time.Duration) *TenantCache {
	return &TenantCache{
		tenants: make(map[string]*Entry),
		strict:  strict,
		routine: routine,
	}
}

// SetLoader wires the rebuild collaborator. Set once at startup, before any
// EnsureFresh call.
func (tc *TenantCache) SetLoader(loader Loader) {
	tc.loader = loader
}

// EnsureFresh checks the tenant's staleness against the selected threshold
// and kicks off a background rebuild when the entry is stale or absent. At
// most one rebuild runs per tenant; concurrent callers see the stale data
// until the rebuild publishes. Returns true when a rebuild was started.
func (tc *TenantCache) EnsureFresh(ctx context.Context, tenantID string, strict bool) bool {
	threshold := tc.routine
	if strict {
		threshold = tc.strict
	}

	tc.mu.Lock()
	entry, ok := tc.tenants[tenantID]
	if !ok {
		entry = newEntry()
		tc.tenants[tenantID] = entry
	}
	fresh := ok && time.Since(entry.LastUpdate) < threshold
	if fresh || entry.loading || tc.loader == nil {
		tc.mu.Unlock()
		return false
	}
	entry.loading = true
	tc.mu.Unlock()

	go func() {
		defer tc.clearLoading(tenantID)
		logger.Info("rebuilding tenant cache", "tenant", tenantID, "strict", strict)
		tc.loader.LoadTenant(ctx, tenantID)
	}()
	return true
}

func (tc *TenantCache) clearLoading(tenantID string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if entry, ok := tc.tenants[tenantID]; ok {
		entry.loading = false
	}
}

// Loading reports whether a rebuild is in flight for the tenant.
func (tc *TenantCache) Loading(tenantID string) bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	entry, ok := tc.tenants[tenantID]
	return ok && entry.loading
}

// Hydrate replaces a tenant's entry with persisted state. LastUpdate is left
// at zero so the next EnsureFresh still triggers a live refresh.
func (tc *TenantCache) Hydrate(tenantID string, cached map[string]store.CachedTopic) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry := tc.entryLocked(tenantID)
	for topicID, ct := range cached {
		entry.Domestic[topicID] = ct.Domestic
		entry.International[topicID] = ct.International
		entry.Summaries[topicID] = ct.Summary
	}
}

// SetTopicResults publishes both result windows for one topic.
func (tc *TenantCache) SetTopicResults(tenantID, topicID string, domestic, international []model.NewsItem) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry := tc.entryLocked(tenantID)
	entry.Domestic[topicID] = domestic
	entry.International[topicID] = international
}

// SetSummary publishes a topic's summary record.
func (tc *TenantCache) SetSummary(tenantID, topicID string, rec model.SummaryRecord) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.entryLocked(tenantID).Summaries[topicID] = rec
}

// Touch marks the tenant as freshly updated.
func (tc *TenantCache) Touch(tenantID string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.entryLocked(tenantID).LastUpdate = time.Now()
}

// DropTopic removes one topic from all result maps.
func (tc *TenantCache) DropTopic(tenantID, topicID string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry, ok := tc.tenants[tenantID]
	if !ok {
		return
	}
	delete(entry.Domestic, topicID)
	delete(entry.International, topicID)
	delete(entry.Summaries, topicID)
}

// TopicResults returns copies of one topic's windows and summary.
func (tc *TenantCache) TopicResults(tenantID, topicID string) (domestic, international []model.NewsItem, summary model.SummaryRecord) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	entry, ok := tc.tenants[tenantID]
	if !ok {
		return nil, nil, model.SummaryRecord{}
	}
	return copyItems(entry.Domestic[topicID]), copyItems(entry.International[topicID]), entry.Summaries[topicID]
}

// Snapshot returns a copy of the tenant's full result state.
func (tc *TenantCache) Snapshot(tenantID string) (domestic, international map[string][]model.NewsItem, summaries map[string]model.SummaryRecord, lastUpdate time.Time) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	entry, ok := tc.tenants[tenantID]
	if !ok {
		return nil, nil, nil, time.Time{}
	}

	domestic = make(map[string][]model.NewsItem, len(entry.Domestic))
	for id, items := range entry.Domestic {
		domestic[id] = copyItems(items)
	}
	international = make(map[string][]model.NewsItem, len(entry.International))
	for id, items := range entry.International {
		international[id] = copyItems(items)
	}
	summaries = make(map[string]model.SummaryRecord, len(entry.Summaries))
	for id, rec := range entry.Summaries {
		summaries[id] = rec
	}
	return domestic, international, summaries, entry.LastUpdate
}

// TenantIDs lists tenants currently held in memory.
func (tc *TenantCache) TenantIDs() []string {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	ids := make([]string, 0, len(tc.tenants))
	for id := range tc.tenants {
		ids = append(ids, id)
	}
	return ids
}

func (tc *TenantCache) entryLocked(tenantID string) *Entry {
	entry, ok := tc.tenants[tenantID]
	if !ok {
		entry = newEntry()
		tc.tenants[tenantID] = entry
	}
	return entry
}

func copyItems(items []model.NewsItem) []model.NewsItem {
	if items == nil {
		return nil
	}
	out := make([]model.NewsItem, len(items))
	copy(out, items)
	return out
}
