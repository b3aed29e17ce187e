// Package model defines the core data shapes shared across the pipeline:
// news items, topics, result sets and summary records.
package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

const (
	// MaxDomesticItems bounds the rolling domestic window per topic.
	MaxDomesticItems = 10
	// MaxInternationalItems bounds the rolling international window per topic.
	MaxInternationalItems = 10
	// ExcerptMaxRunes caps the stored item excerpt.
	ExcerptMaxRunes = 200

	DefaultIcon         = "📌"
	DefaultDisplayOrder = 999
)

// Languages lists the recognized keyword languages. "zh" selects the
// domestic pool; the rest select the international pool, in this order.
var Languages = []string{"zh", "en", "ja", "ko"}

// NewsItem is one piece of content from a feed or search source.
type NewsItem struct {
	Title string `json:"title"`
	// TitleOriginal holds the pre-translation title when Title has been
	// overwritten by a translation. Empty otherwise.
	TitleOriginal string    `json:"title_original,omitempty"`
	Link          string    `json:"link"`
	Source        string    `json:"source"`
	PublishedAt   time.Time `json:"published"`
	Summary       string    `json:"summary"`
	// IsDateOnly marks timestamps suspected to be day-level placeholders.
	// Display hint only; never used for sorting or filtering.
	IsDateOnly bool `json:"is_date_only,omitempty"`
}

// KeywordSets maps a language code to its ordered keyword list. A missing
// language means "no filtering in that language", not "match everything".
type KeywordSets map[string][]string

// UnmarshalJSON accepts both the canonical language map and the legacy flat
// list shape still found in old topic files, normalizing the latter to
// {"zh": [...]}. The flat list is a wire format only; internal code always
// sees the map.
func (k *KeywordSets) UnmarshalJSON(data []byte) error {
	var m map[string][]string
	if err := json.Unmarshal(data, &m); err == nil {
		*k = m
		return nil
	}

	var flat []string
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("keywords: unsupported shape: %w", err)
	}
	*k = KeywordSets{"zh": flat}
	return nil
}

// Topic is a user-defined filter definition.
type Topic struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Keywords         KeywordSets `json:"keywords"`
	NegativeKeywords []string    `json:"negative_keywords,omitempty"`
	Icon             string      `json:"icon,omitempty"`
	DisplayOrder     int         `json:"order,omitempty"`
	// OwnerID is empty in single-tenant mode.
	OwnerID string `json:"user_id,omitempty"`
}

// DomesticKeywords returns the keyword list driving the domestic pool.
func (t Topic) DomesticKeywords() []string {
	return t.Keywords["zh"]
}

// InternationalKeywords returns the union of all non-zh keyword lists, in
// the fixed language order.
func (t Topic) InternationalKeywords() []string {
	var out []string
	for _, lang := range Languages {
		if lang == "zh" {
			continue
		}
		out = append(out, t.Keywords[lang]...)
	}
	return out
}

// SummaryRecord is the per-topic AI progress summary. Overwritten wholesale
// on every generation attempt, successful or not.
type SummaryRecord struct {
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

var topicIDStrip = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// NewTopicID derives a stable opaque id from the topic name plus a
// millisecond-timestamp suffix. Never reused after deletion.
func NewTopicID(name string, now time.Time) string {
	prefix := topicIDStrip.ReplaceAllString(name, "")
	r := []rune(prefix)
	if len(r) > 10 {
		r = r[:10]
	}
	return fmt.Sprintf("%s_%d", string(r), now.UnixMilli()%100000)
}

// TruncateRunes cuts s to at most n code points.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FormatDisplayTime renders an item timestamp for the front end: HH:MM for
// today, MM/DD otherwise. Day-placeholder timestamps always render MM/DD.
func FormatDisplayTime(t, now time.Time, dateOnly bool) string {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	if !dateOnly && y1 == y2 && m1 == m2 && d1 == d2 {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
