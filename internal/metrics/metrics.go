package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsProcessed     int64
	DuplicatesFiltered int64
	TranslationsOK     int64
	TranslationsFailed int64
	BackfillSearches   int64
	SummariesGenerated int64
	RefreshRuns        int64

	// Timings
	LastRefreshDuration time.Duration

	// Status
	LastRefreshTime time.Time
	LastErrorTime   time.Time
	LastError       string
	IsHealthy       bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddItemsProcessed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsProcessed += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementTranslationsOK() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslationsOK++
}

func (m *Metrics) IncrementTranslationsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslationsFailed++
}

func (m *Metrics) IncrementBackfillSearches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BackfillSearches++
}

func (m *Metrics) IncrementSummariesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
}

func (m *Metrics) RecordRefresh(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefreshRuns++
	m.LastRefreshDuration = duration
	m.LastRefreshTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"items_processed":          m.ItemsProcessed,
		"duplicates_filtered":      m.DuplicatesFiltered,
		"translations_ok":          m.TranslationsOK,
		"translations_failed":      m.TranslationsFailed,
		"backfill_searches":        m.BackfillSearches,
		"summaries_generated":      m.SummariesGenerated,
		"refresh_runs":             m.RefreshRuns,
		"last_refresh_duration_ms": m.LastRefreshDuration.Milliseconds(),
		"last_refresh_time":        m.LastRefreshTime.Format(time.RFC3339),
		"last_error_time":          m.LastErrorTime.Format(time.RFC3339),
		"last_error":               m.LastError,
		"is_healthy":               m.IsHealthy,
	}
}
