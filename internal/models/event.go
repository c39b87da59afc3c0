package models

import "time"

type Event struct {
	ID      uint  `gorm:"primaryKey"`
	GroupID int64 `gorm:"index;not null"`
	Name    string

	// StartDate and EndDate are inclusive "2006-01-02" days.
	StartDate     string `gorm:"index"`
	EndDate       string `gorm:"index"`
	MinPassPoints int
	IsActive      bool

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
