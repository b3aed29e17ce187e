// Package summary generates per-topic progress summaries through a
// Perplexity-compatible chat-completions endpoint.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/topicradar/topicradar/internal/logger"
	"github.com/topicradar/topicradar/internal/model"
)

// Fixed placeholder texts for each failure mode. The serving layer shows
// these verbatim instead of an empty summary.
const (
	SentinelNotConfigured = "（尚未設定 Perplexity API Key）"
	SentinelUnknownTopic  = "（未知專題）"
	SentinelFailed        = "（摘要生成失敗）"
	SentinelEmpty         = "（無法生成摘要）"
)

const perplexityBaseURL = "https://api.perplexity.ai"

// maxContextTitles caps how many recent headlines are sent as context.
const maxContextTitles = 5

type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewGenerator creates a Generator. Without an API key every Summarize call
// short-circuits to the not-configured sentinel.
func NewGenerator(apiKey, modelName string, timeout time.Duration) *Generator {
	g := &Generator{model: modelName, timeout: timeout}
	if apiKey == "" {
		logger.Warn("no Perplexity API key configured, summaries disabled")
		return g
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = perplexityBaseURL
	g.client = openai.NewClientWithConfig(cfg)
	return g
}

// Configured reports whether an API key was provided.
func (g *Generator) Configured() bool {
	return g.client != nil
}

// Summarize produces a short progress update for a topic, using up to five
// recent item titles as context. It never returns an error; failures come
// back as sentinel texts.
func (g *Generator) Summarize(ctx context.Context, topic model.Topic, recent []model.NewsItem) string {
	if !g.Configured() {
		return SentinelNotConfigured
	}

	context_ := buildContext(recent)
	today := time.Now().Format("2006/01/02")

	userPrompt := fmt.Sprintf(`議題：%s
日期：%s

近期相關報導：
%s

請用進度報告格式，重點說明：
1. 本週或近期有什麼新動態？（政策發布、協商進展、重要事件、爭議）
2. 目前推進到什麼階段？有什麼關鍵進展或轉折？
3. 接下來值得關注的焦點是什麼？

格式要求：
- 200 字以內，繁體中文
- 用「進度更新」語氣，不是「議題介紹」
- 不要使用引用標記（[1][2] 等）
- 語氣專業、客觀、精簡`, topic.Name, today, context_)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "你是一位資深專題記者，正在為已經熟悉議題背景的同事更新最新進展。請用「進度報告」的格式撰寫，假設讀者已了解議題背景，不需要重複說明基本概念或歷史脈絡。直接切入最新動態和變化。",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		MaxTokens:   500,
		Temperature: 0.2,
	})
	if err != nil {
		logger.Warn("summary generation failed", "topic", topic.Name, "error", err)
		return SentinelFailed
	}
	if len(resp.Choices) == 0 {
		return SentinelFailed
	}

	out := Sanitize(resp.Choices[0].Message.Content)
	if out == "" {
		return SentinelEmpty
	}
	return out
}

func buildContext(recent []model.NewsItem) string {
	if len(recent) == 0 {
		return "（暫無相關 RSS 新聞）"
	}
	n := len(recent)
	if n > maxContextTitles {
		n = maxContextTitles
	}
	lines := make([]string, 0, n)
	for _, item := range recent[:n] {
		lines = append(lines, fmt.Sprintf("- %s (%s)", item.Title, item.PublishedAt.Format("2006/01/02")))
	}
	return strings.Join(lines, "\n")
}
