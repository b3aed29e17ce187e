package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>test</title>%s</channel></rss>`

func rssBody(items string) string {
	return fmt.Sprintf(rssTemplate, items)
}

func serveRSS(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchFeed(t *testing.T) {
	srv := serveRSS(t, rssBody(`
		<item><title>囤房稅2.0上路 財政部說明</title><link>http://a</link>
			<description>&lt;p&gt;細節  說明&lt;/p&gt;</description>
			<pubDate>Mon, 03 Mar 2025 04:30:15 GMT</pubDate></item>
		<item><title></title><link>http://b</link></item>
		<item><title>第二則</title><link>http://c</link>
			<pubDate>Mon, 03 Mar 2025 05:00:00 GMT</pubDate></item>
	`))

	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	c := New(loc, 5*time.Second)
	items := c.FetchFeed(context.Background(), Source{Name: "測試來源", URL: srv.URL}, 30)

	require.Len(t, items, 2, "empty titles are skipped")
	require.Equal(t, "囤房稅2.0上路 財政部說明", items[0].Title)
	require.Equal(t, "測試來源", items[0].Source)
	require.Equal(t, "細節 說明", items[0].Summary, "markup stripped, whitespace collapsed")
	require.False(t, items[0].IsDateOnly, "feed items are never day placeholders")

	// UTC 04:30 is 12:30 in Asia/Taipei.
	require.Equal(t, 12, items[0].PublishedAt.Hour())
	require.Equal(t, 30, items[0].PublishedAt.Minute())
}

func TestFetchFeedLimit(t *testing.T) {
	var b string
	for i := 0; i < 5; i++ {
		b += fmt.Sprintf("<item><title>headline %d</title></item>", i)
	}
	srv := serveRSS(t, rssBody(b))

	c := New(time.UTC, 5*time.Second)
	items := c.FetchFeed(context.Background(), Source{Name: "s", URL: srv.URL}, 3)
	require.Len(t, items, 3)
}

func TestFetchFeedFailuresYieldEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(time.UTC, 5*time.Second)
	require.Empty(t, c.FetchFeed(context.Background(), Source{Name: "s", URL: srv.URL}, 30))
	require.Empty(t, c.FetchFeed(context.Background(), Source{Name: "s", URL: "http://127.0.0.1:0"}, 30))
}

func TestSearchMarksDayPlaceholders(t *testing.T) {
	srv := serveRSS(t, rssBody(`
		<item><title>exact hour</title>
			<pubDate>Mon, 03 Mar 2025 06:00:00 GMT</pubDate></item>
		<item><title>real time</title>
			<pubDate>Mon, 03 Mar 2025 06:17:42 GMT</pubDate></item>
	`))

	c := NewWithHTTPClient(rewriteClient{srv.Client(), srv.URL}, time.UTC, 5*time.Second)
	items := c.Search(context.Background(), "query", Region{Code: "US", Lang: "en"}, 20)

	require.Len(t, items, 2)
	require.True(t, items[0].IsDateOnly)
	require.False(t, items[1].IsDateOnly)
	require.Equal(t, "搜尋 (US)", items[0].Source)
}

// rewriteClient redirects every request to a fixed test server URL.
type rewriteClient struct {
	inner *http.Client
	base  string
}

func (r rewriteClient) Do(req *http.Request) (*http.Response, error) {
	redirected, err := http.NewRequestWithContext(req.Context(), req.Method, r.base, nil)
	if err != nil {
		return nil, err
	}
	return r.inner.Do(redirected)
}

func TestSearchURL(t *testing.T) {
	u := searchURL("keyword", Region{Code: "JP", Lang: "ja"})
	require.Contains(t, u, "news.google.com/rss/search")
	require.Contains(t, u, "q=keyword")
	require.Contains(t, u, "gl=JP")
	require.Contains(t, u, "ceid=JP%3Aja")

	// Chinese keeps the full tag in ceid.
	u = searchURL("關鍵字", Region{Code: "TW", Lang: "zh-TW"})
	require.Contains(t, u, "ceid=TW%3Azh-TW")
}

func TestStripHTML(t *testing.T) {
	require.Equal(t, "plain text", StripHTML("plain   text"))
	require.Equal(t, "bold and link", StripHTML(`<b>bold</b> and <a href="x">link</a>`))
	require.Equal(t, "", StripHTML(""))
}
