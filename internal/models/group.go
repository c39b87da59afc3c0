package models

import "time"

type GroupConfig struct {
	ChatID      int64 `gorm:"primaryKey;autoIncrement:false"`
	Title       string
	AdminUserID int64
	LicenseKey  string `gorm:"uniqueIndex"`
	IsActive    bool

	WelcomeMessage string
	KickMessage    string

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// GlobalGroupID marks rows (banned words, runtime state) that are not bound to a single group.
const GlobalGroupID int64 = 0

type BannedWord struct {
	ID      uint   `gorm:"primaryKey"`
	GroupID int64  `gorm:"uniqueIndex:idx_banned_group_word"`
	Word    string `gorm:"uniqueIndex:idx_banned_group_word;not null"`
}

type RuntimeState struct {
	GroupID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
