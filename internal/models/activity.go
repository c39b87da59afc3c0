package models

import "time"

type TrackerStatus string

const (
	TrackerStatusCompleted TrackerStatus = "completed"
	TrackerStatusMissed    TrackerStatus = "missed"
)

// DailySlotTracker has one row per (event, slot, user, day). Inserting it is the
// authoritative "first completion today" check. EventID is 0 when no event is running.
type DailySlotTracker struct {
	ID      uint   `gorm:"primaryKey"`
	GroupID int64  `gorm:"index"`
	EventID uint   `gorm:"uniqueIndex:idx_tracker_unique"`
	SlotID  uint   `gorm:"uniqueIndex:idx_tracker_unique"`
	UserID  int64  `gorm:"uniqueIndex:idx_tracker_unique"`
	Day     string `gorm:"uniqueIndex:idx_tracker_unique"`

	Status               TrackerStatus
	PointsScored         int
	DuplicateSubmissions int

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type ActivityType string

const (
	ActivityText      ActivityType = "text"
	ActivityPhoto     ActivityType = "photo"
	ActivityButton    ActivityType = "button"
	ActivityVideo     ActivityType = "video"
	ActivityDocument  ActivityType = "document"
	ActivitySticker   ActivityType = "sticker"
	ActivityAnimation ActivityType = "animation"
	ActivityVoice     ActivityType = "voice"
	ActivityVideoNote ActivityType = "video_note"
)

type ActivityLog struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	GroupID  int64  `gorm:"index:idx_activity_member"`
	UserID   int64  `gorm:"index:idx_activity_member"`
	SlotName string
	Type     ActivityType

	Content        string
	TelegramFileID string
	LocalFilePath  string
	PointsEarned   int
	IsValid        bool

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}
