// Package dedup computes stable item identities for duplicate rejection.
package dedup

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/topicradar/topicradar/internal/model"
)

// Identity returns the deduplication hash for an item: an md5 digest of its
// title. When the title has been overwritten by a translation, the
// pre-translation original is hashed instead, so translating never changes
// an item's identity. Identity is title-only: the same story under two
// differently worded headlines is not recognized as a duplicate.
func Identity(item model.NewsItem) string {
	title := item.Title
	if item.TitleOriginal != "" {
		title = item.TitleOriginal
	}
	sum := md5.Sum([]byte(title))
	return hex.EncodeToString(sum[:])
}

// Seen tracks identity hashes within a batch or across refresh cycles.
type Seen map[string]struct{}

// NewSeen builds a seen-set pre-populated from existing items.
func NewSeen(items []model.NewsItem) Seen {
	s := make(Seen, len(items))
	for _, it := range items {
		s[Identity(it)] = struct{}{}
	}
	return s
}

// Duplicate reports whether hash was already marked.
func (s Seen) Duplicate(hash string) bool {
	_, ok := s[hash]
	return ok
}

// Mark records hash as seen.
func (s Seen) Mark(hash string) {
	s[hash] = struct{}{}
}
