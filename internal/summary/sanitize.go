package summary

import (
	"regexp"
	"strings"
)

// The model does not reliably honor "plain text only" instructions, so the
// raw response is scrubbed of structural artifacts before storage.
var (
	reCitation  = regexp.MustCompile(`\[\d+\]`)
	reHeading   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	reBold      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic    = regexp.MustCompile(`\*([^*]+)\*`)
	reListItem  = regexp.MustCompile(`(?m)^[-*]\s+`)
	reWordCount = regexp.MustCompile(`[（(]\s*(?:約|共)?\s*\d+\s*(?:字|words?)\s*[）)]\s*$`)
)

// Known lead-in phrases the model prepends despite instructions.
var boilerplatePrefixes = []string{
	"進度報告：",
	"進度更新：",
	"摘要：",
	"以下是最新進展：",
	"以下是進度更新：",
}

// Sanitize strips citation markers, markdown syntax, boilerplate lead-ins
// and a trailing word-count annotation from a model response, then trims
// surrounding whitespace.
func Sanitize(raw string) string {
	s := reCitation.ReplaceAllString(raw, "")
	s = reHeading.ReplaceAllString(s, "")
	s = reBold.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reListItem.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
			break
		}
	}

	s = reWordCount.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
