// Package moderation finds banned words in member messages and decides when warnings escalate to removal.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultWords is seeded as the global list (group 0) at startup.
var DefaultWords = []string{
	"fuck", "shit", "bitch", "asshole", "bastard", "crap",
	"dick", "pussy", "cock", "whore", "slut", "motherfucker", "retard",
	"chutiya", "madarchod", "bhenchod", "gaandu", "harami", "kamina",
	"kutta", "kutti", "saala", "saali", "bhadwa", "randi", "lodu", "gandu",
	"porn", "nude", "naked", "xxx", "nsfw",
	"rape", "terrorist",
}

type rule struct {
	word   string
	phrase bool
	re     *regexp.Regexp
}

// Matcher checks text against a banned list. Phrases (anything with a space)
// match as substrings, single words only between non-letters (any script).
type Matcher struct {
	rules []rule
}

func NewMatcher(words []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}

		if strings.Contains(w, " ") {
			m.rules = append(m.rules, rule{word: w, phrase: true})
			continue
		}
		m.rules = append(m.rules, rule{word: w, re: regexp.MustCompile(`(?:^|[^\p{L}\p{M}\p{N}_])` + regexp.QuoteMeta(w) + `(?:$|[^\p{L}\p{M}\p{N}_])`)})
	}
	return m
}

// Match returns the first banned entry found in text.
func (m *Matcher) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, r := range m.rules {
		if r.phrase {
			if strings.Contains(lower, r.word) {
				return r.word, true
			}
			continue
		}
		if r.re.MatchString(lower) {
			return r.word, true
		}
	}
	return "", false
}

func (m *Matcher) Len() int {
	return len(m.rules)
}

// ShouldRemove reports whether a member with count banned-word warnings must be removed.
func ShouldRemove(count, limit int) bool {
	return limit > 0 && count >= limit
}

func WarningNotice(name, word string, count, limit, penalty int) string {
	return fmt.Sprintf(
		"⚠️ %s, please avoid using inappropriate language!\nWarning %d/%d. Banned word: '%s'\n⚠️ -%d knockout points deducted!",
		name, count, limit, word, penalty,
	)
}

// RemovalNotice congratulates members who earned at least threshold points before they were removed.
func RemovalNotice(name string, points, threshold, limit int) string {
	if points >= threshold {
		return fmt.Sprintf(
			"👋 Congratulations %s! You earned %d points.\nHowever, you have been removed for repeated use of inappropriate language.\nReason: %d warnings for banned words",
			name, points, limit,
		)
	}
	return fmt.Sprintf("🚫 %s has been removed.\nReason: %d warnings for banned words", name, limit)
}
