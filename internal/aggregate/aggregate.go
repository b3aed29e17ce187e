// Package aggregate produces the per-topic result sets: it filters candidate
// pools by keyword, deduplicates against the rolling window, translates
// international headlines and backfills thin result sets from search.
package aggregate

import (
	"context"
	"sort"
	"strings"

	"github.com/topicradar/topicradar/internal/dedup"
	"github.com/topicradar/topicradar/internal/fetch"
	"github.com/topicradar/topicradar/internal/match"
	"github.com/topicradar/topicradar/internal/metrics"
	"github.com/topicradar/topicradar/internal/model"
)

// intlBackfillThreshold triggers region-search backfill when the merged
// international list stays below it. The domestic threshold is the full
// window size.
const intlBackfillThreshold = 5

// Searcher runs a keyword query against the news-search endpoint.
type Searcher interface {
	Search(ctx context.Context, query string, region fetch.Region, limit int) []model.NewsItem
}

// Translator translates a headline to Traditional Chinese. Implementations
// never fail: persistent errors come back as marker-wrapped originals.
type Translator interface {
	TranslateTitle(ctx context.Context, title string) string
}

type Aggregator struct {
	search          Searcher
	translate       Translator
	domesticRegion  fetch.Region
	backfillRegions []fetch.Region
	searchLimit     int
}

func New(search Searcher, translate Translator, sources *fetch.SourceConfig, searchLimit int) *Aggregator {
	return &Aggregator{
		search:          search,
		translate:       translate,
		domesticRegion:  sources.DomesticRegion,
		backfillRegions: sources.BackfillRegions,
		searchLimit:     searchLimit,
	}
}

// Domestic merges new zh-keyword matches from the candidate pool into the
// existing rolling window: new matches are prepended, deduplicated against
// the window, then the merged list is re-sorted and truncated. Merging
// before truncation keeps prior items visible when sources return nothing.
// A topic without zh keywords yields an empty set.
func (a *Aggregator) Domestic(ctx context.Context, topic model.Topic, pool, existing []model.NewsItem) []model.NewsItem {
	keywords := topic.DomesticKeywords()
	if len(keywords) == 0 {
		return nil
	}

	seen := dedup.NewSeen(existing)
	merged := a.collect(pool, keywords, topic.NegativeKeywords, seen, nil)
	merged = append(merged, existing...)

	// Primary sources too thin: supplement from the generic search feed
	// with the first keyword as the query term.
	if len(merged) < model.MaxDomesticItems && a.search != nil {
		metrics.Global.IncrementBackfillSearches()
		results := a.search.Search(ctx, keywords[0], a.domesticRegion, a.searchLimit)
		more := a.collect(results, keywords, topic.NegativeKeywords, seen, nil)
		for _, item := range more {
			if len(merged) >= model.MaxDomesticItems {
				break
			}
			merged = append(merged, item)
		}
	}

	sortByPublished(merged)
	return truncate(merged, model.MaxDomesticItems)
}

// International merges new non-zh matches into the existing window.
// Every newly matched headline is translated before insertion, with the
// original retained; translation never changes deduplication identity.
// Backfill kicks in below five items, walking the fixed region list and
// using each region's own keyword list.
func (a *Aggregator) International(ctx context.Context, topic model.Topic, pool, existing []model.NewsItem) []model.NewsItem {
	keywords := topic.InternationalKeywords()
	if len(keywords) == 0 {
		return nil
	}

	seen := dedup.NewSeen(existing)
	merged := a.collect(pool, keywords, topic.NegativeKeywords, seen, a.translateItem(ctx))
	merged = append(merged, existing...)

	if len(merged) < intlBackfillThreshold && a.search != nil {
		for _, region := range a.backfillRegions {
			if len(merged) >= intlBackfillThreshold {
				break
			}
			langKeywords := topic.Keywords[baseLang(region.Lang)]
			if len(langKeywords) == 0 {
				continue
			}
			metrics.Global.IncrementBackfillSearches()
			results := a.search.Search(ctx, langKeywords[0], region, a.searchLimit)
			more := a.collect(results, langKeywords, topic.NegativeKeywords, seen, a.translateItem(ctx))
			for _, item := range more {
				if len(merged) >= intlBackfillThreshold {
					break
				}
				merged = append(merged, item)
			}
		}
	}

	sortByPublished(merged)
	return truncate(merged, model.MaxInternationalItems)
}

// collect filters a candidate pool by keywords, rejects duplicates against
// seen, and applies an optional per-item transform before collection.
func (a *Aggregator) collect(pool []model.NewsItem, keywords, negative []string, seen dedup.Seen, transform func(model.NewsItem) model.NewsItem) []model.NewsItem {
	var out []model.NewsItem
	for _, item := range pool {
		metrics.Global.AddItemsProcessed(1)

		text := item.Title + " " + item.Summary
		if !match.Matches(text, keywords, negative) {
			continue
		}

		hash := dedup.Identity(item)
		if seen.Duplicate(hash) {
			metrics.Global.IncrementDuplicatesFiltered()
			continue
		}
		seen.Mark(hash)

		if transform != nil {
			item = transform(item)
		}
		out = append(out, item)
	}
	return out
}

// translateItem overwrites the title with its translation, preserving the
// original for display and for deduplication identity.
func (a *Aggregator) translateItem(ctx context.Context) func(model.NewsItem) model.NewsItem {
	if a.translate == nil {
		return nil
	}
	return func(item model.NewsItem) model.NewsItem {
		original := item.Title
		item.TitleOriginal = original
		item.Title = a.translate.TranslateTitle(ctx, original)
		return item
	}
}

// sortByPublished orders newest first. The sort is stable so that, on equal
// timestamps, freshly prepended items stay ahead of window survivors.
func sortByPublished(items []model.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

func truncate(items []model.NewsItem, n int) []model.NewsItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func baseLang(lang string) string {
	if i := strings.IndexByte(lang, '-'); i > 0 {
		return lang[:i]
	}
	return lang
}
