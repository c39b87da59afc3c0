package models

import (
	"testing"
	"time"
)

func TestMatchesKeyword(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{"substring", "Breakfast time!", []string{"breakfast"}, true},
		{"case insensitive keyword", "lunch", []string{"LUNCH"}, true},
		{"multi word", "my morning meal", []string{"breakfast", "morning meal"}, true},
		{"no match", "dinner", []string{"breakfast"}, false},
		{"empty text", "", []string{"breakfast"}, false},
		{"no keywords", "breakfast", nil, false},
		{"blank keyword ignored", "anything", []string{"  "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesKeyword(tt.text, tt.keywords); got != tt.want {
				t.Errorf("MatchesKeyword(%q, %v) = %v, want %v", tt.text, tt.keywords, got, tt.want)
			}
		})
	}
}

func TestMemberRestrictedAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		member Member
		want   bool
	}{
		{"not restricted", Member{}, false},
		{"open ended", Member{IsRestricted: true}, true},
		{"expired", Member{IsRestricted: true, RestrictionUntil: &past}, false},
		{"in force", Member{IsRestricted: true, RestrictionUntil: &future}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.member.RestrictedAt(now); got != tt.want {
				t.Errorf("RestrictedAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemberNetScore(t *testing.T) {
	m := Member{TotalPoints: 5, KnockoutPoints: 10}
	if got := m.NetScore(); got != -5 {
		t.Errorf("NetScore() = %d, want -5", got)
	}
}
