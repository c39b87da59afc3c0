package submission

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	urlRe   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Sanitize strips HTML tags and links from user text and collapses whitespace.
func Sanitize(text string) string {
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = urlRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
