package aggregate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/topicradar/topicradar/internal/fetch"
	"github.com/topicradar/topicradar/internal/model"
)

type fakeSearcher struct {
	results map[string][]model.NewsItem // keyed by region code
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, region fetch.Region, limit int) []model.NewsItem {
	f.queries = append(f.queries, query)
	return f.results[region.Code]
}

type fakeTranslator struct{}

func (fakeTranslator) TranslateTitle(ctx context.Context, title string) string {
	return "譯: " + title
}

func testSources() *fetch.SourceConfig {
	return &fetch.SourceConfig{
		DomesticRegion: fetch.Region{Code: "TW", Lang: "zh-TW"},
		BackfillRegions: []fetch.Region{
			{Code: "US", Lang: "en"},
			{Code: "JP", Lang: "ja"},
		},
	}
}

func newTestAggregator(search Searcher) *Aggregator {
	return New(search, fakeTranslator{}, testSources(), 20)
}

func at(hoursAgo int) time.Time {
	return time.Now().Add(-time.Duration(hoursAgo) * time.Hour)
}

func TestDomesticFiltersPool(t *testing.T) {
	agg := newTestAggregator(nil)
	topic := model.Topic{Name: "囤房稅", Keywords: model.KeywordSets{"zh": {"囤房稅"}}}

	pool := []model.NewsItem{
		{Title: "囤房稅2.0上路 財政部說明", PublishedAt: at(1)},
		{Title: "股市上漲", PublishedAt: at(2)},
	}

	got := agg.Domestic(context.Background(), topic, pool, nil)
	require.Len(t, got, 1)
	require.Equal(t, "囤房稅2.0上路 財政部說明", got[0].Title)
}

func TestDomesticEmptyKeywordsMatchesNothing(t *testing.T) {
	agg := newTestAggregator(nil)
	topic := model.Topic{Name: "沒關鍵字", Keywords: model.KeywordSets{"en": {"anything"}}}

	pool := []model.NewsItem{{Title: "anything goes", PublishedAt: at(1)}}
	require.Empty(t, agg.Domestic(context.Background(), topic, pool, nil))
}

func TestDomesticDeduplicatesAgainstWindow(t *testing.T) {
	agg := newTestAggregator(nil)
	topic := model.Topic{Keywords: model.KeywordSets{"zh": {"囤房稅"}}}

	existing := []model.NewsItem{{Title: "囤房稅新進展", PublishedAt: at(5)}}
	pool := []model.NewsItem{
		{Title: "囤房稅新進展", PublishedAt: at(1)}, // same identity, different timestamp
		{Title: "囤房稅三讀", PublishedAt: at(2)},
	}

	got := agg.Domestic(context.Background(), topic, pool, existing)
	require.Len(t, got, 2)
	titles := []string{got[0].Title, got[1].Title}
	require.Contains(t, titles, "囤房稅三讀")
	require.Contains(t, titles, "囤房稅新進展")
}

func TestDomesticDeduplicatesWithinBatch(t *testing.T) {
	agg := newTestAggregator(nil)
	topic := model.Topic{Keywords: model.KeywordSets{"zh": {"囤房稅"}}}

	// The same headline arrives from two sources in one pool.
	pool := []model.NewsItem{
		{Title: "囤房稅2.0上路 財政部說明", Source: "聯合報", PublishedAt: at(1)},
		{Title: "囤房稅2.0上路 財政部說明", Source: "自由時報", PublishedAt: at(2)},
	}

	got := agg.Domestic(context.Background(), topic, pool, nil)
	require.Len(t, got, 1)
	require.Equal(t, "聯合報", got[0].Source, "first occurrence wins")
}

func TestDomesticIdempotent(t *testing.T) {
	agg := newTestAggregator(nil)
	topic := model.Topic{Keywords: model.KeywordSets{"zh": {"囤房稅"}}}

	pool := []model.NewsItem{
		{Title: "囤房稅A", PublishedAt: at(1)},
		{Title: "囤房稅B", PublishedAt: at(2)},
	}

	once := agg.Domestic(context.Background(), topic, pool, nil)
	twice := agg.Domestic(context.Background(), topic, pool, once)
	require.Equal(t, once, twice)
}

func TestDomesticWindowBounds(t *testing.T) {
	agg := newTestAggregator(nil)
	topic := model.Topic{Keywords: model.KeywordSets{"zh": {"囤房稅"}}}

	var pool []model.NewsItem
	for i := 0; i < 15; i++ {
		pool = append(pool, model.NewsItem{
			Title:       fmt.Sprintf("囤房稅 第%d則", i),
			PublishedAt: at(i),
		})
	}

	got := agg.Domestic(context.Background(), topic, pool, nil)
	require.Len(t, got, model.MaxDomesticItems)
	for i := 1; i < len(got); i++ {
		require.False(t, got[i].PublishedAt.After(got[i-1].PublishedAt), "newest first")
	}
}

func TestDomesticBackfillBelowWindow(t *testing.T) {
	search := &fakeSearcher{results: map[string][]model.NewsItem{
		"TW": {
			{Title: "囤房稅 搜尋補充", PublishedAt: at(3)},
			{Title: "無關新聞", PublishedAt: at(4)},
		},
	}}
	agg := newTestAggregator(search)
	topic := model.Topic{Keywords: model.KeywordSets{"zh": {"囤房稅", "房屋稅"}}}

	pool := []model.NewsItem{{Title: "囤房稅首則", PublishedAt: at(1)}}

	got := agg.Domestic(context.Background(), topic, pool, nil)
	require.Equal(t, []string{"囤房稅"}, search.queries, "first keyword drives the query")
	require.Len(t, got, 2, "backfill results still go through the matcher")
}

func TestInternationalTranslatesAndKeepsOriginal(t *testing.T) {
	agg := newTestAggregator(nil)
	topic := model.Topic{Keywords: model.KeywordSets{"en": {"quantum"}}}

	pool := []model.NewsItem{{Title: "Quantum breakthrough", PublishedAt: at(1)}}

	got := agg.International(context.Background(), topic, pool, nil)
	require.Len(t, got, 1)
	require.Equal(t, "譯: Quantum breakthrough", got[0].Title)
	require.Equal(t, "Quantum breakthrough", got[0].TitleOriginal)
}

func TestInternationalDedupSurvivesTranslation(t *testing.T) {
	agg := newTestAggregator(nil)
	topic := model.Topic{Keywords: model.KeywordSets{"en": {"quantum"}}}

	existing := agg.International(context.Background(), topic,
		[]model.NewsItem{{Title: "Quantum breakthrough", PublishedAt: at(2)}}, nil)

	// The same story arrives again untranslated; identity must match the
	// original title, not the translated one.
	got := agg.International(context.Background(), topic,
		[]model.NewsItem{{Title: "Quantum breakthrough", PublishedAt: at(1)}}, existing)
	require.Len(t, got, 1)
}

func TestInternationalBackfillWalksRegions(t *testing.T) {
	search := &fakeSearcher{results: map[string][]model.NewsItem{
		"US": {{Title: "quantum from US", PublishedAt: at(2)}},
		"JP": {{Title: "量子 ニュース", PublishedAt: at(3)}},
	}}
	agg := newTestAggregator(search)
	topic := model.Topic{Keywords: model.KeywordSets{
		"en": {"quantum"},
		"ja": {"量子"},
	}}

	got := agg.International(context.Background(), topic, nil, nil)
	require.Equal(t, []string{"quantum", "量子"}, search.queries)
	require.Len(t, got, 2)
	for _, item := range got {
		require.NotEmpty(t, item.TitleOriginal, "backfill items are translated too")
	}
}

func TestInternationalBackfillSkippedAtThreshold(t *testing.T) {
	search := &fakeSearcher{results: map[string][]model.NewsItem{}}
	agg := newTestAggregator(search)
	topic := model.Topic{Keywords: model.KeywordSets{"en": {"quantum"}}}

	var pool []model.NewsItem
	for i := 0; i < 5; i++ {
		pool = append(pool, model.NewsItem{
			Title:       fmt.Sprintf("quantum story %d", i),
			PublishedAt: at(i),
		})
	}

	got := agg.International(context.Background(), topic, pool, nil)
	require.Len(t, got, 5)
	require.Empty(t, search.queries, "no backfill at or above five items")
}
