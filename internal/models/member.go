package models

import (
	"fmt"
	"time"
)

const CycleLength = 7

type Member struct {
	GroupID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID  int64 `gorm:"primaryKey;autoIncrement:false"`

	Username  string
	FirstName string
	LastName  string

	TotalPoints     int
	KnockoutPoints  int
	GeneralWarnings int
	BannedWordCount int

	IsRestricted     bool `gorm:"index"`
	RestrictionUntil *time.Time

	DayNumber      int    `gorm:"default:1"`
	CycleStartDate string // "2006-01-02"
	CycleEndDate   string

	IsAdmin      bool
	LastActiveAt time.Time `gorm:"index"`
	JoinedAt     time.Time
}

func (m *Member) NetScore() int {
	return m.TotalPoints - m.KnockoutPoints
}

func (m *Member) DisplayName() string {
	switch {
	case m.FirstName != "":
		return m.FirstName
	case m.Username != "":
		return m.Username
	default:
		return fmt.Sprintf("user%d", m.UserID)
	}
}

// RestrictedAt reports whether the restriction is still in force at now.
// A restriction without an end time never expires on its own.
func (m *Member) RestrictedAt(now time.Time) bool {
	if !m.IsRestricted {
		return false
	}
	return m.RestrictionUntil == nil || now.Before(*m.RestrictionUntil)
}

type HistoryAction string

const (
	HistoryActionJoined HistoryAction = "joined"
	HistoryActionLeft   HistoryAction = "left"
	HistoryActionKicked HistoryAction = "kicked"
	HistoryActionBanned HistoryAction = "banned"
)

func (a HistoryAction) IsPenalty() bool {
	return a == HistoryActionKicked || a == HistoryActionBanned
}

// MemberHistory is an append-only snapshot of a member taken when they join or depart.
type MemberHistory struct {
	ID      string        `gorm:"type:uuid;primaryKey"`
	GroupID int64         `gorm:"index:idx_history_member"`
	UserID  int64         `gorm:"index:idx_history_member"`
	Action  HistoryAction `gorm:"index"`

	Username        string
	FirstName       string
	TotalPoints     int
	KnockoutPoints  int
	GeneralWarnings int
	BannedWordCount int
	IsRestricted    bool
	DayNumber       int
	CycleStartDate  string
	CycleEndDate    string
	JoinedAt        time.Time

	CreatedAt time.Time `gorm:"index:idx_history_member"`
}

type InactivityWarning struct {
	GroupID     int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID      int64  `gorm:"primaryKey;autoIncrement:false"`
	Day         string `gorm:"primaryKey"`
	WarningType string `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
