// Package refresh orchestrates the pipeline runs: pooled feed fetches,
// per-topic aggregation, summary generation and write-through to the cache
// and store. It also owns the topic lifecycle operations that trigger
// refreshes.
package refresh

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/topicradar/topicradar/internal/cache"
	"github.com/topicradar/topicradar/internal/fetch"
	"github.com/topicradar/topicradar/internal/logger"
	"github.com/topicradar/topicradar/internal/metrics"
	"github.com/topicradar/topicradar/internal/model"
	"github.com/topicradar/topicradar/internal/store"
	"github.com/topicradar/topicradar/internal/summary"
)

// Fetcher pulls one source's feed. Failures surface as empty results.
type Fetcher interface {
	FetchFeed(ctx context.Context, src fetch.Source, limit int) []model.NewsItem
}

// Aggregator merges candidate pools into per-topic rolling windows.
type Aggregator interface {
	Domestic(ctx context.Context, topic model.Topic, pool, existing []model.NewsItem) []model.NewsItem
	International(ctx context.Context, topic model.Topic, pool, existing []model.NewsItem) []model.NewsItem
}

// Summarizer produces a topic progress summary. Never fails; sentinel texts
// stand in for errors.
type Summarizer interface {
	Summarize(ctx context.Context, topic model.Topic, recent []model.NewsItem) string
	Configured() bool
}

// KeywordGenerator derives multilingual keywords for a new topic name.
type KeywordGenerator interface {
	GenerateKeywords(ctx context.Context, topicName string) model.KeywordSets
}

// Status describes refresh progress for the monitoring endpoint.
type Status struct {
	IsLoading    bool   `json:"is_loading"`
	Phase        string `json:"phase,omitempty"`
	CurrentIndex int    `json:"current_index"`
	TotalTopics  int    `json:"total_topics"`
	CurrentTopic string `json:"current_topic,omitempty"`
}

type Orchestrator struct {
	fetcher    Fetcher
	sources    *fetch.SourceConfig
	agg        Aggregator
	summarizer Summarizer
	keywords   KeywordGenerator
	store      store.Store
	cache      *cache.TenantCache

	itemsPerSource int

	// run serializes pipeline passes. Scheduled entry points TryLock and
	// skip a firing that overlaps a running pass; background tenant loads
	// and single-topic refreshes block instead, since skipping their work
	// would leave the caller with an empty window.
	run sync.Mutex

	statusMu sync.Mutex
	status   Status
}

func New(fetcher Fetcher, sources *fetch.SourceConfig, agg Aggregator, summarizer Summarizer, keywords KeywordGenerator, st store.Store, tc *cache.TenantCache, itemsPerSource int) *Orchestrator {
	return &Orchestrator{
		fetcher:        fetcher,
		sources:        sources,
		agg:            agg,
		summarizer:     summarizer,
		keywords:       keywords,
		store:          st,
		cache:          tc,
		itemsPerSource: itemsPerSource,
	}
}

// RefreshDomestic runs the domestic pipeline for every topic of a tenant.
// The candidate pool is fetched once and shared across topics.
func (o *Orchestrator) RefreshDomestic(ctx context.Context, tenantID string) {
	if !o.run.TryLock() {
		logger.Warn("refresh already running, skipping", "phase", "domestic")
		return
	}
	defer o.run.Unlock()

	start := time.Now()
	o.refreshDomesticLocked(ctx, tenantID)
	o.cache.Touch(tenantID)
	metrics.Global.RecordRefresh(time.Since(start))
}

// RefreshInternational runs the international pipeline for every topic of a
// tenant.
func (o *Orchestrator) RefreshInternational(ctx context.Context, tenantID string) {
	if !o.run.TryLock() {
		logger.Warn("refresh already running, skipping", "phase", "international")
		return
	}
	defer o.run.Unlock()

	start := time.Now()
	o.refreshInternationalLocked(ctx, tenantID)
	o.cache.Touch(tenantID)
	metrics.Global.RecordRefresh(time.Since(start))
}

// RefreshAll runs both pipelines back to back under one run lock.
func (o *Orchestrator) RefreshAll(ctx context.Context, tenantID string) {
	if !o.run.TryLock() {
		logger.Warn("refresh already running, skipping", "phase", "all")
		return
	}
	defer o.run.Unlock()

	start := time.Now()
	o.refreshDomesticLocked(ctx, tenantID)
	o.refreshInternationalLocked(ctx, tenantID)
	o.cache.Touch(tenantID)
	metrics.Global.RecordRefresh(time.Since(start))
}

func (o *Orchestrator) refreshDomesticLocked(ctx context.Context, tenantID string) {
	topics, err := o.store.Topics(ctx, tenantID)
	if err != nil {
		logger.Error("loading topics failed", "tenant", tenantID, "error", err)
		metrics.Global.SetError(err.Error())
		return
	}

	pool := o.fetchPool(ctx, o.sources.Domestic)
	logger.Info("domestic pool fetched", "sources", len(o.sources.Domestic), "items", len(pool))

	for i, topic := range topics {
		o.setStatus(Status{IsLoading: true, Phase: "domestic", CurrentIndex: i + 1, TotalTopics: len(topics), CurrentTopic: topic.Name})

		existingDom, intl, sum := o.cache.TopicResults(tenantID, topic.ID)
		domestic := o.agg.Domestic(ctx, topic, pool, existingDom)

		o.cache.SetTopicResults(tenantID, topic.ID, domestic, intl)
		o.persist(ctx, tenantID, topic.ID, domestic, intl, sum)
	}
	o.setStatus(Status{})
}

func (o *Orchestrator) refreshInternationalLocked(ctx context.Context, tenantID string) {
	topics, err := o.store.Topics(ctx, tenantID)
	if err != nil {
		logger.Error("loading topics failed", "tenant", tenantID, "error", err)
		metrics.Global.SetError(err.Error())
		return
	}

	pool := o.fetchPool(ctx, o.sources.International)
	logger.Info("international pool fetched", "sources", len(o.sources.International), "items", len(pool))

	for i, topic := range topics {
		o.setStatus(Status{IsLoading: true, Phase: "international", CurrentIndex: i + 1, TotalTopics: len(topics), CurrentTopic: topic.Name})

		dom, existingIntl, sum := o.cache.TopicResults(tenantID, topic.ID)
		intl := o.agg.International(ctx, topic, pool, existingIntl)

		o.cache.SetTopicResults(tenantID, topic.ID, dom, intl)
		o.persist(ctx, tenantID, topic.ID, dom, intl, sum)
	}
	o.setStatus(Status{})
}

// RefreshTopic rebuilds both windows for a single topic, then generates its
// summary. Used after create and edit, where waiting for the next scheduled
// pass would leave the topic empty.
func (o *Orchestrator) RefreshTopic(ctx context.Context, tenantID, topicID string) {
	topic, err := o.store.GetTopic(ctx, tenantID, topicID)
	if err != nil {
		logger.Warn("topic refresh skipped", "topic", topicID, "error", err)
		return
	}

	// Block rather than skip: two quick edits to the same topic must not
	// interleave their window reads and writes.
	o.run.Lock()
	defer o.run.Unlock()

	domPool := o.fetchPool(ctx, o.sources.Domestic)
	intlPool := o.fetchPool(ctx, o.sources.International)

	existingDom, existingIntl, _ := o.cache.TopicResults(tenantID, topic.ID)
	domestic := o.agg.Domestic(ctx, topic, domPool, existingDom)
	intl := o.agg.International(ctx, topic, intlPool, existingIntl)

	rec := model.SummaryRecord{Text: o.summarizer.Summarize(ctx, topic, domestic), UpdatedAt: time.Now()}
	if o.summarizer.Configured() {
		metrics.Global.IncrementSummariesGenerated()
	}

	o.cache.SetTopicResults(tenantID, topic.ID, domestic, intl)
	o.cache.SetSummary(tenantID, topic.ID, rec)
	o.persist(ctx, tenantID, topic.ID, domestic, intl, rec)
	logger.Info("topic refreshed", "topic", topic.Name, "domestic", len(domestic), "international", len(intl))
}

// RefreshSummaries regenerates every topic summary for a tenant. The
// domestic window provides the context headlines.
func (o *Orchestrator) RefreshSummaries(ctx context.Context, tenantID string) {
	topics, err := o.store.Topics(ctx, tenantID)
	if err != nil {
		logger.Error("loading topics failed", "tenant", tenantID, "error", err)
		return
	}

	for i, topic := range topics {
		o.setStatus(Status{IsLoading: true, Phase: "summaries", CurrentIndex: i + 1, TotalTopics: len(topics), CurrentTopic: topic.Name})

		dom, intl, _ := o.cache.TopicResults(tenantID, topic.ID)
		rec := model.SummaryRecord{Text: o.summarizer.Summarize(ctx, topic, dom), UpdatedAt: time.Now()}
		if o.summarizer.Configured() {
			metrics.Global.IncrementSummariesGenerated()
		}

		o.cache.SetSummary(tenantID, topic.ID, rec)
		o.persist(ctx, tenantID, topic.ID, dom, intl, rec)
	}
	o.setStatus(Status{})
	logger.Info("summaries refreshed", "tenant", tenantID, "topics", len(topics))
}

// SummarizeTopic regenerates one topic's summary on demand. An unknown or
// foreign topic id yields the unknown-topic sentinel without persisting.
func (o *Orchestrator) SummarizeTopic(ctx context.Context, tenantID, topicID string) model.SummaryRecord {
	topic, err := o.store.GetTopic(ctx, tenantID, topicID)
	if err != nil {
		return model.SummaryRecord{Text: summary.SentinelUnknownTopic, UpdatedAt: time.Now()}
	}

	dom, intl, _ := o.cache.TopicResults(tenantID, topic.ID)
	rec := model.SummaryRecord{Text: o.summarizer.Summarize(ctx, topic, dom), UpdatedAt: time.Now()}
	if o.summarizer.Configured() {
		metrics.Global.IncrementSummariesGenerated()
	}

	o.cache.SetSummary(tenantID, topic.ID, rec)
	o.persist(ctx, tenantID, topic.ID, dom, intl, rec)
	return rec
}

// LoadTenant hydrates a tenant from persistence and then runs a full
// pipeline pass. Implements cache.Loader. Unlike the scheduled entry
// points it waits for any in-flight refresh: the per-tenant loading flag
// already guarantees at most one load per tenant, and returning without
// doing the work would mark the load complete with an empty window.
func (o *Orchestrator) LoadTenant(ctx context.Context, tenantID string) {
	cached, err := o.store.LoadCache(ctx, tenantID)
	if err != nil {
		logger.Error("hydrating tenant failed", "tenant", tenantID, "error", err)
	} else if len(cached) > 0 {
		o.cache.Hydrate(tenantID, cached)
	}

	o.run.Lock()
	defer o.run.Unlock()

	start := time.Now()
	o.refreshDomesticLocked(ctx, tenantID)
	o.refreshInternationalLocked(ctx, tenantID)
	o.cache.Touch(tenantID)
	metrics.Global.RecordRefresh(time.Since(start))
}

// CreateTopic generates keywords for the name, stores the topic and kicks
// off its first refresh in the background.
func (o *Orchestrator) CreateTopic(ctx context.Context, tenantID, name, icon string) (model.Topic, error) {
	name = strings.TrimSpace(name)
	if icon == "" {
		icon = model.DefaultIcon
	}

	topic := model.Topic{
		ID:           model.NewTopicID(name, time.Now()),
		Name:         name,
		Keywords:     o.keywords.GenerateKeywords(ctx, name),
		Icon:         icon,
		DisplayOrder: model.DefaultDisplayOrder,
		OwnerID:      tenantID,
	}
	if err := o.store.CreateTopic(ctx, topic); err != nil {
		return model.Topic{}, err
	}

	go o.RefreshTopic(context.WithoutCancel(ctx), tenantID, topic.ID)
	logger.Info("topic created", "topic", topic.Name, "id", topic.ID)
	return topic, nil
}

// UpdateTopic applies a partial edit and refreshes the topic in the
// background when its matching behavior may have changed.
func (o *Orchestrator) UpdateTopic(ctx context.Context, tenantID, topicID string, upd store.TopicUpdate) error {
	if err := o.store.UpdateTopic(ctx, tenantID, topicID, upd); err != nil {
		return err
	}
	if upd.Keywords != nil || upd.NegativeKeywords != nil {
		go o.RefreshTopic(context.WithoutCancel(ctx), tenantID, topicID)
	}
	return nil
}

// DeleteTopic removes the topic, its persisted results and its cached
// results.
func (o *Orchestrator) DeleteTopic(ctx context.Context, tenantID, topicID string) error {
	if err := o.store.DeleteTopic(ctx, tenantID, topicID); err != nil {
		return err
	}
	if err := o.store.DeleteTopicCache(ctx, tenantID, topicID); err != nil {
		logger.Warn("deleting topic cache failed", "topic", topicID, "error", err)
	}
	o.cache.DropTopic(tenantID, topicID)
	return nil
}

// Status returns the current refresh progress.
func (o *Orchestrator) Status() Status {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	return o.status
}

func (o *Orchestrator) setStatus(s Status) {
	o.statusMu.Lock()
	o.status = s
	o.statusMu.Unlock()
}

// fetchPool pulls all sources concurrently into one candidate pool. Source
// order is not preserved; ordering happens later, per topic.
func (o *Orchestrator) fetchPool(ctx context.Context, sources []fetch.Source) []model.NewsItem {
	var (
		mu   sync.Mutex
		pool []model.NewsItem
		wg   sync.WaitGroup
	)
	for _, src := range sources {
		wg.Add(1)
		go func(src fetch.Source) {
			defer wg.Done()
			items := o.fetcher.FetchFeed(ctx, src, o.itemsPerSource)
			mu.Lock()
			pool = append(pool, items...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return pool
}

func (o *Orchestrator) persist(ctx context.Context, tenantID, topicID string, domestic, intl []model.NewsItem, sum model.SummaryRecord) {
	cached := store.CachedTopic{Domestic: domestic, International: intl, Summary: sum}
	if err := o.store.SaveTopicCache(ctx, tenantID, topicID, cached); err != nil {
		logger.Error("persisting topic cache failed", "topic", topicID, "error", err)
		metrics.Global.SetError(err.Error())
	}
}
