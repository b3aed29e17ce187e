package summary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/topicradar/topicradar/internal/model"
)

func TestSummarizeWithoutKeyReturnsSentinel(t *testing.T) {
	g := NewGenerator("", "sonar", time.Second)
	require.False(t, g.Configured())

	got := g.Summarize(context.Background(), model.Topic{Name: "囤房稅"}, nil)
	require.Equal(t, SentinelNotConfigured, got)
}

func TestBuildContext(t *testing.T) {
	require.Equal(t, "（暫無相關 RSS 新聞）", buildContext(nil))

	items := []model.NewsItem{
		{Title: "囤房稅三讀", PublishedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	require.Equal(t, "- 囤房稅三讀 (2025/03/01)", buildContext(items))
}

func TestBuildContextCapsAtFive(t *testing.T) {
	var items []model.NewsItem
	for i := 0; i < 8; i++ {
		items = append(items, model.NewsItem{
			Title:       "headline",
			PublishedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	got := buildContext(items)
	require.Len(t, splitLines(got), maxContextTitles)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"citations", "政策已送審[1]，預計下月實施[2]。", "政策已送審，預計下月實施。"},
		{"markdown", "## 進展\n**重要**變化與*次要*變化", "進展\n重要變化與次要變化"},
		{"list items", "- 第一點\n- 第二點", "第一點\n第二點"},
		{"boilerplate prefix", "進度更新：協商進入第二輪。", "協商進入第二輪。"},
		{"word count suffix", "協商進入第二輪。（約 180 字）", "協商進入第二輪。"},
		{"clean text unchanged", "協商進入第二輪。", "協商進入第二輪。"},
		{"whitespace", "  內容  ", "內容"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}
