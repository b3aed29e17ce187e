// Package gemini wraps the Gemini API for title translation and topic
// keyword generation.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/topicradar/topicradar/internal/logger"
	"github.com/topicradar/topicradar/internal/metrics"
	"github.com/topicradar/topicradar/internal/model"
	"github.com/topicradar/topicradar/internal/ratelimit"
	"github.com/topicradar/topicradar/internal/retry"
)

// Markers wrapping the original text when translation is unavailable or
// fails. The pre-translation title is preserved separately, so these are
// display fallbacks only.
const (
	MarkerNotConfigured = "[未翻譯] "
	MarkerFailed        = "[翻譯失敗] "
)

type Client struct {
	client         *genai.Client
	model          string
	timeout        time.Duration
	keywordTimeout time.Duration
	retries        int
	backoff        time.Duration
	limiter        *ratelimit.Limiter
}

// Options configures a Client.
type Options struct {
	APIKey string
	Model  string
	// Timeout bounds translation calls. KeywordTimeout bounds keyword
	// generation, which produces a much longer response; zero falls back
	// to Timeout.
	Timeout        time.Duration
	KeywordTimeout time.Duration
	Retries        int
	Backoff        time.Duration
	Limiter        *ratelimit.Limiter
}

// NewClient creates a Gemini client. An empty API key is not an error: the
// returned client short-circuits every call to its fallback output, so no
// network request is ever made.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	c := &Client{
		model:          opts.Model,
		timeout:        opts.Timeout,
		keywordTimeout: opts.KeywordTimeout,
		retries:        opts.Retries,
		backoff:        opts.Backoff,
		limiter:        opts.Limiter,
	}
	if c.keywordTimeout == 0 {
		c.keywordTimeout = opts.Timeout
	}
	if opts.APIKey == "" {
		logger.Warn("no Gemini API key configured, translation and keyword generation disabled")
		return c, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	c.client = client
	return c, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Configured reports whether an API key was provided.
func (c *Client) Configured() bool {
	return c.client != nil
}

// TranslateTitle translates a news headline to Traditional Chinese. It never
// returns an error: on persistent failure the original text comes back
// wrapped in a marker. Rate-limit responses are retried with linear backoff;
// any other error fails immediately.
func (c *Client) TranslateTitle(ctx context.Context, title string) string {
	if !c.Configured() {
		return MarkerNotConfigured + title
	}
	if c.limiter != nil && !c.limiter.Acquire() {
		return MarkerNotConfigured + title
	}

	prompt := "請將以下新聞標題翻譯成繁體中文，只輸出翻譯結果，不要有任何其他說明：\n\n" + title

	var translated string
	err := retry.Do(ctx, retry.Config{
		MaxAttempts: c.retries,
		Delay:       c.backoff,
		Retryable:   isRateLimited,
	}, func() error {
		out, err := c.generate(ctx, c.timeout, prompt, 200, 0.1)
		if err != nil {
			return err
		}
		translated = out
		return nil
	})
	if err != nil {
		logger.Warn("title translation failed", "error", err)
		metrics.Global.IncrementTranslationsFailed()
		return MarkerFailed + title
	}
	if translated == "" {
		metrics.Global.IncrementTranslationsFailed()
		return MarkerFailed + title
	}
	metrics.Global.IncrementTranslationsOK()
	return translated
}

// GenerateKeywords asks the model for multilingual search keywords for a new
// topic. Without a key, or on any failure, the topic name itself becomes the
// only zh keyword so the topic still matches something.
func (c *Client) GenerateKeywords(ctx context.Context, topicName string) model.KeywordSets {
	fallback := model.KeywordSets{"zh": []string{topicName}}
	if !c.Configured() {
		return fallback
	}
	if c.limiter != nil && !c.limiter.Acquire() {
		return fallback
	}

	prompt := fmt.Sprintf(`你是一位專業的新聞資料庫管理員。請針對「%s」這個新聞議題，列出搜尋關鍵字。

要求：
1. 繁體中文關鍵字：10-15 個（核心詞彙、相關單位、同義詞）
2. 英文關鍵字：8-10 個（對應的英文詞彙，用於搜尋國際新聞）
3. 日文關鍵字：8-10 個（對應的日文詞彙，用於搜尋日本新聞）
4. 韓文關鍵字：8-10 個（對應的韓文詞彙，用於搜尋韓國新聞）

格式（請嚴格遵守）：
ZH: 關鍵字1, 關鍵字2, 關鍵字3
EN: keyword1, keyword2, keyword3
JA: キーワード1, キーワード2, キーワード3
KO: 키워드1, 키워드2, 키워드3

直接輸出，不要有其他開場白或解釋。`, topicName)

	out, err := c.generate(ctx, c.keywordTimeout, prompt, 800, 0.3)
	if err != nil {
		logger.Warn("keyword generation failed", "topic", topicName, "error", err)
		return fallback
	}

	keywords := parseKeywordLines(out)
	if len(keywords["zh"]) == 0 {
		keywords["zh"] = []string{topicName}
	}
	logger.Info("keywords generated", "topic", topicName,
		"zh", len(keywords["zh"]), "en", len(keywords["en"]),
		"ja", len(keywords["ja"]), "ko", len(keywords["ko"]))
	return keywords
}

func (c *Client) generate(ctx context.Context, timeout time.Duration, prompt string, maxTokens int32, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m := c.client.GenerativeModel(c.model)
	m.SetMaxOutputTokens(maxTokens)
	m.SetTemperature(temperature)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", errors.New("unexpected response part type")
	}
	return strings.TrimSpace(string(text)), nil
}

// parseKeywordLines extracts the ZH:/EN:/JA:/KO: lines from the model
// output into keyword lists.
func parseKeywordLines(out string) model.KeywordSets {
	keywords := model.KeywordSets{"zh": nil, "en": nil, "ja": nil, "ko": nil}
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		for _, lang := range []struct{ prefix, code string }{
			{"ZH:", "zh"}, {"EN:", "en"}, {"JA:", "ja"}, {"KO:", "ko"},
		} {
			if !strings.HasPrefix(line, lang.prefix) {
				continue
			}
			for _, kw := range strings.Split(line[len(lang.prefix):], ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					keywords[lang.code] = append(keywords[lang.code], kw)
				}
			}
		}
	}
	return keywords
}

func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429
	}
	// The genai SDK does not always surface a typed error.
	return strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "quota")
}
