package models

import (
	"fmt"
	"strings"
)

type SlotType string

const (
	SlotTypeText   SlotType = "text"
	SlotTypeButton SlotType = "button"
	SlotTypeMedia  SlotType = "media"
)

type Slot struct {
	ID      uint  `gorm:"primaryKey"`
	GroupID int64 `gorm:"index;not null"`
	EventID *uint `gorm:"index"`

	Name string `gorm:"not null"`
	// StartTime and EndTime are wall-clock "15:04" values in the bot's timezone.
	// EndTime earlier than StartTime means the window wraps past midnight.
	StartTime string `gorm:"not null"`
	EndTime   string `gorm:"not null"`
	Type      SlotType
	Points    int

	InitialMessage   string
	ResponsePositive string
	ResponseClarify  string
	ImagePath        string
	IsMandatory      bool

	Keywords []SlotKeyword `gorm:"constraint:OnDelete:CASCADE"`
}

func (s *Slot) KeywordList() []string {
	out := make([]string, 0, len(s.Keywords))
	for _, k := range s.Keywords {
		out = append(out, k.Keyword)
	}
	return out
}

func (s *Slot) String() string {
	return fmt.Sprintf("Slot(%d, %q, %s-%s, %s)", s.ID, s.Name, s.StartTime, s.EndTime, s.Type)
}

type SlotKeyword struct {
	ID      uint   `gorm:"primaryKey"`
	SlotID  uint   `gorm:"index;not null"`
	Keyword string `gorm:"not null"`
}

// MatchesKeyword reports whether text contains any of the keywords, case-insensitively.
func MatchesKeyword(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
