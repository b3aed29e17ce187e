// Package fetch retrieves and normalizes news items from RSS feeds and
// keyword-driven search endpoints.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/topicradar/topicradar/internal/logger"
	"github.com/topicradar/topicradar/internal/model"
)

const maxFeedBody = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches feed and search sources. All failures are converted to an
// empty result plus a logged warning; callers never see an error.
type Client struct {
	http    HTTPClient
	loc     *time.Location
	timeout time.Duration
}

// New creates a Client. Timestamps are normalized into loc.
func New(loc *time.Location, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		loc:     loc,
		timeout: timeout,
	}
}

// NewWithHTTPClient creates a Client with a custom HTTP client (tests).
func NewWithHTTPClient(client HTTPClient, loc *time.Location, timeout time.Duration) *Client {
	return &Client{http: client, loc: loc, timeout: timeout}
}

// FetchFeed polls one fixed feed URL and returns at most limit normalized
// items. Network failures, malformed content and timeouts all yield an
// empty slice.
func (c *Client) FetchFeed(ctx context.Context, src Source, limit int) []model.NewsItem {
	feed, err := c.fetch(ctx, src.URL)
	if err != nil {
		logger.Warn("feed fetch failed", "source", src.Name, "error", err)
		return nil
	}
	items := c.normalize(feed.Items, src.Name, limit, false)
	logger.Debug("feed fetched", "source", src.Name, "items", len(items))
	return items
}

// Search runs a keyword query against the news-search RSS endpoint for the
// given region and language. Used only as backfill. Items are flagged as
// day-level placeholders when their normalized time lands exactly on an
// hour boundary.
func (c *Client) Search(ctx context.Context, query string, region Region, limit int) []model.NewsItem {
	u := searchURL(query, region)
	feed, err := c.fetch(ctx, u)
	if err != nil {
		logger.Warn("search fetch failed", "query", query, "region", region.Code, "error", err)
		return nil
	}
	source := fmt.Sprintf("搜尋 (%s)", region.Code)
	items := c.normalize(feed.Items, source, limit, true)
	logger.Debug("search fetched", "query", query, "region", region.Code, "items", len(items))
	return items
}

func searchURL(query string, region Region) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("hl", region.Lang)
	v.Set("gl", region.Code)
	v.Set("ceid", region.Code+":"+shortLang(region.Lang))
	return "https://news.google.com/rss/search?" + v.Encode()
}

// shortLang trims a BCP 47 tag to its base language ("zh-TW" -> "zh-TW" is
// kept as-is for the ceid parameter only when Chinese, else base language).
func shortLang(lang string) string {
	if strings.HasPrefix(lang, "zh") {
		return lang
	}
	if i := strings.IndexByte(lang, '-'); i > 0 {
		return lang[:i]
	}
	return lang
}

func (c *Client) fetch(ctx context.Context, rawURL string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TopicRadar/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (c *Client) normalize(items []*gofeed.Item, sourceName string, limit int, fromSearch bool) []model.NewsItem {
	out := make([]model.NewsItem, 0, min(limit, len(items)))
	for _, item := range items {
		if len(out) >= limit {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		published := c.publishedAt(item)

		out = append(out, model.NewsItem{
			Title:       title,
			Link:        item.Link,
			Source:      sourceName,
			PublishedAt: published,
			Summary:     model.TruncateRunes(StripHTML(item.Description), model.ExcerptMaxRunes),
			IsDateOnly:  fromSearch && published.Minute() == 0 && published.Second() == 0,
		})
	}
	return out
}

// publishedAt normalizes the source timestamp into the configured zone.
// Source times are interpreted as UTC; a missing timestamp becomes "now".
func (c *Client) publishedAt(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().In(c.loc)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().In(c.loc)
	default:
		return time.Now().In(c.loc)
	}
}

// StripHTML removes markup from a feed excerpt and collapses whitespace.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
