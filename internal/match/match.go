// Package match implements the topic keyword matcher.
package match

import "strings"

// Matches reports whether text belongs to a topic given its positive and
// negative keyword lists.
//
// Negative keywords are checked first and short-circuit: any hit excludes
// the text unconditionally. An empty positive list matches nothing. Matching
// is case-insensitive substring containment without word boundaries, since
// CJK text has none to split on; short latin keywords can over-match inside
// longer words.
func Matches(text string, positive, negative []string) bool {
	if text == "" || len(positive) == 0 {
		return false
	}

	lower := strings.ToLower(text)

	for _, kw := range negative {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return false
		}
	}

	for _, kw := range positive {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
